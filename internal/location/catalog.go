package location

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"checkout-service/internal/domain"
)

//go:embed data/locations.json
var bundled []byte

// ErrEmptyCatalog is returned when a source yields no provinces.
var ErrEmptyCatalog = errors.New("location: catalog is empty")

// Catalog is an immutable province/district/ward tree. Lookups never fail;
// an unknown parent id yields an empty list.
type Catalog struct {
	provinces    []domain.Province
	districts    map[string][]domain.District
	wards        map[string][]domain.Ward
	provinceByID map[string]domain.Province
	districtByID map[string]domain.District
	wardByID     map[string]domain.Ward
}

type rawWard struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	Level string `json:"Level"`
}

type rawDistrict struct {
	ID    string    `json:"Id"`
	Name  string    `json:"Name"`
	Wards []rawWard `json:"Wards"`
}

type rawProvince struct {
	ID        string        `json:"Id"`
	Name      string        `json:"Name"`
	Districts []rawDistrict `json:"Districts"`
}

// Record is one flattened catalog row, as stored in Postgres or a CSV export.
// Rows without a ward only register their province and district.
type Record struct {
	ProvinceID   string
	ProvinceName string
	DistrictID   string
	DistrictName string
	WardID       string
	WardName     string
	WardLevel    string
}

// Default parses the catalog bundled into the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(bundled))
}

// Parse reads the nested JSON catalog format.
func Parse(r io.Reader) (*Catalog, error) {
	var raw []rawProvince
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("location: decode catalog: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, p := range raw {
		if len(p.Districts) == 0 {
			records = append(records, Record{ProvinceID: p.ID, ProvinceName: p.Name})
			continue
		}
		for _, d := range p.Districts {
			if len(d.Wards) == 0 {
				records = append(records, Record{ProvinceID: p.ID, ProvinceName: p.Name, DistrictID: d.ID, DistrictName: d.Name})
				continue
			}
			for _, w := range d.Wards {
				records = append(records, Record{
					ProvinceID:   p.ID,
					ProvinceName: p.Name,
					DistrictID:   d.ID,
					DistrictName: d.Name,
					WardID:       w.ID,
					WardName:     w.Name,
					WardLevel:    w.Level,
				})
			}
		}
	}
	return FromRecords(records)
}

// FromRecords builds a catalog preserving first-seen order at every level.
func FromRecords(records []Record) (*Catalog, error) {
	c := &Catalog{
		districts:    make(map[string][]domain.District),
		wards:        make(map[string][]domain.Ward),
		provinceByID: make(map[string]domain.Province),
		districtByID: make(map[string]domain.District),
		wardByID:     make(map[string]domain.Ward),
	}
	for i, rec := range records {
		provinceID := strings.TrimSpace(rec.ProvinceID)
		if provinceID == "" {
			return nil, fmt.Errorf("location: record %d: province id required", i)
		}
		if _, ok := c.provinceByID[provinceID]; !ok {
			p := domain.Province{ID: provinceID, Name: strings.TrimSpace(rec.ProvinceName)}
			c.provinces = append(c.provinces, p)
			c.provinceByID[provinceID] = p
		}

		districtID := strings.TrimSpace(rec.DistrictID)
		if districtID == "" {
			continue
		}
		if existing, ok := c.districtByID[districtID]; ok {
			if existing.ParentID != provinceID {
				return nil, fmt.Errorf("location: district %s listed under provinces %s and %s", districtID, existing.ParentID, provinceID)
			}
		} else {
			d := domain.District{ID: districtID, Name: strings.TrimSpace(rec.DistrictName), ParentID: provinceID}
			c.districts[provinceID] = append(c.districts[provinceID], d)
			c.districtByID[districtID] = d
		}

		wardID := strings.TrimSpace(rec.WardID)
		if wardID == "" {
			continue
		}
		if existing, ok := c.wardByID[wardID]; ok {
			if existing.ParentID != districtID {
				return nil, fmt.Errorf("location: ward %s listed under districts %s and %s", wardID, existing.ParentID, districtID)
			}
			continue
		}
		w := domain.Ward{ID: wardID, Name: strings.TrimSpace(rec.WardName), ParentID: districtID, Level: strings.TrimSpace(rec.WardLevel)}
		c.wards[districtID] = append(c.wards[districtID], w)
		c.wardByID[wardID] = w
	}
	if len(c.provinces) == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Provinces returns every province in catalog order.
func (c *Catalog) Provinces() []domain.Province {
	return append([]domain.Province(nil), c.provinces...)
}

// Districts returns the districts of provinceID in catalog order.
func (c *Catalog) Districts(provinceID string) []domain.District {
	return append([]domain.District{}, c.districts[provinceID]...)
}

// Wards returns the wards of districtID in catalog order.
func (c *Catalog) Wards(districtID string) []domain.Ward {
	return append([]domain.Ward{}, c.wards[districtID]...)
}

func (c *Catalog) Province(id string) (domain.Province, bool) {
	p, ok := c.provinceByID[id]
	return p, ok
}

func (c *Catalog) District(id string) (domain.District, bool) {
	d, ok := c.districtByID[id]
	return d, ok
}

func (c *Catalog) Ward(id string) (domain.Ward, bool) {
	w, ok := c.wardByID[id]
	return w, ok
}

// Records flattens the catalog back into rows, in catalog order.
func (c *Catalog) Records() []Record {
	var out []Record
	for _, p := range c.provinces {
		districts := c.districts[p.ID]
		if len(districts) == 0 {
			out = append(out, Record{ProvinceID: p.ID, ProvinceName: p.Name})
			continue
		}
		for _, d := range districts {
			wards := c.wards[d.ID]
			if len(wards) == 0 {
				out = append(out, Record{ProvinceID: p.ID, ProvinceName: p.Name, DistrictID: d.ID, DistrictName: d.Name})
				continue
			}
			for _, w := range wards {
				out = append(out, Record{
					ProvinceID:   p.ID,
					ProvinceName: p.Name,
					DistrictID:   d.ID,
					DistrictName: d.Name,
					WardID:       w.ID,
					WardName:     w.Name,
					WardLevel:    w.Level,
				})
			}
		}
	}
	return out
}
