package address

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"checkout-service/internal/domain"
)

// Outcome records how far resolution got down the catalog tree.
type Outcome string

const (
	OutcomeResolved          Outcome = "resolved"
	OutcomeWardUnmatched     Outcome = "ward_unmatched"
	OutcomeDistrictUnmatched Outcome = "district_unmatched"
	OutcomeProvinceUnmatched Outcome = "province_unmatched"
)

// Catalog is the read side of the location catalog.
type Catalog interface {
	Provinces() []domain.Province
	Districts(provinceID string) []domain.District
	Wards(districtID string) []domain.Ward
}

// Resolution is a resolved shipping form plus the catalog ids that drive the
// dependent dropdowns. Ids are empty for levels that did not match.
type Resolution struct {
	Info       domain.ShippingInfo `json:"info"`
	ProvinceID string              `json:"provinceId,omitempty"`
	DistrictID string              `json:"districtId,omitempty"`
	WardID     string              `json:"wardId,omitempty"`
	Outcome    Outcome             `json:"outcome"`
}

// Resolver maps free-text saved addresses back onto the location catalog.
type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve never fails. Levels that cannot be matched keep the stored text
// verbatim, and every match is scoped to the already-resolved parent.
func (r *Resolver) Resolve(saved domain.SavedAddress, user domain.AuthContext, prev domain.ShippingInfo) Resolution {
	storedDistrict, storedCity := SplitProvince(saved.Province)

	info := domain.ShippingInfo{
		FullName: firstNonEmpty(saved.Name, user.Name),
		Phone:    firstNonEmpty(saved.Phone, user.Phone),
		Email:    user.Email,
		Address:  saved.Street,
		City:     storedCity,
		District: storedDistrict,
		Ward:     saved.Ward,
		Note:     prev.Note,
	}
	res := Resolution{Info: info, Outcome: OutcomeProvinceUnmatched}

	province, ok := matchProvince(r.catalog.Provinces(), storedCity)
	if !ok {
		return res
	}
	res.ProvinceID = province.ID
	res.Info.City = province.Name
	res.Outcome = OutcomeDistrictUnmatched

	district, ok := firstMatch(r.catalog.Districts(province.ID), storedDistrict, func(d domain.District) string { return d.Name })
	if !ok {
		return res
	}
	res.DistrictID = district.ID
	res.Info.District = district.Name
	res.Outcome = OutcomeWardUnmatched

	ward, ok := firstMatch(r.catalog.Wards(district.ID), saved.Ward, func(w domain.Ward) string { return w.Name })
	if !ok {
		return res
	}
	res.WardID = ward.ID
	res.Info.Ward = ward.Name
	res.Outcome = OutcomeResolved
	return res
}

// SplitProvince splits "<district>, <city>[, ...]" into its first two
// comma-separated parts. Without a comma the whole string is the city.
func SplitProvince(stored string) (district, city string) {
	left, rest, found := strings.Cut(stored, ",")
	if !found {
		return "", strings.TrimSpace(stored)
	}
	city, _, _ = strings.Cut(rest, ",")
	return strings.TrimSpace(left), strings.TrimSpace(city)
}

// matchProvince takes the first province whose name equals or contains the
// stored city. Names are also compared with accents and administrative
// prefixes folded away so "TP. Hồ Chí Minh" finds "Thành phố Hồ Chí Minh".
func matchProvince(provinces []domain.Province, city string) (domain.Province, bool) {
	if strings.TrimSpace(city) == "" {
		return domain.Province{}, false
	}
	folded := foldProvince(city)
	for _, p := range provinces {
		if p.Name == city || strings.Contains(p.Name, city) {
			return p, true
		}
		if folded == "" {
			continue
		}
		name := foldProvince(p.Name)
		if name == folded || strings.Contains(name, folded) {
			return p, true
		}
	}
	return domain.Province{}, false
}

// firstMatch returns the first entry whose normalized name equals the stored
// name or where either contains the other. List order decides ties.
func firstMatch[T any](entries []T, stored string, name func(T) string) (T, bool) {
	var zero T
	want := normalize(stored)
	if want == "" {
		return zero, false
	}
	for _, e := range entries {
		got := normalize(name(e))
		if got == "" {
			continue
		}
		if got == want || strings.Contains(got, want) || strings.Contains(want, got) {
			return e, true
		}
	}
	return zero, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var provincePrefixes = []string{"thanh pho ", "tp. ", "tp.", "tp ", "tinh "}

func foldProvince(s string) string {
	out := strings.Join(strings.Fields(stripAccents(normalize(s))), " ")
	for _, prefix := range provincePrefixes {
		if strings.HasPrefix(out, prefix) {
			out = strings.TrimSpace(strings.TrimPrefix(out, prefix))
			break
		}
	}
	return out
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
