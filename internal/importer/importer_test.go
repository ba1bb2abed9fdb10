package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"checkout-service/internal/location"
)

type stubLocationRepo struct {
	items []location.Record
	err   error
}

func (s *stubLocationRepo) Upsert(_ context.Context, rec location.Record) error {
	if s.err != nil {
		return s.err
	}
	s.items = append(s.items, rec)
	return nil
}

func TestImporter_RunCSV(t *testing.T) {
	csvData := `province_id,province_name,district_id,district_name,ward_id,ward_name,ward_level
79,Thành phố Hồ Chí Minh,760,Quận 1,26734,Phường Tân Định,Phường
79,Thành phố Hồ Chí Minh,760,Quận 1,26740,Phường Bến Nghé,Phường
,,,,,,
01,Thành phố Hà Nội,,,,,`

	repo := &stubLocationRepo{}
	count, err := New(strings.NewReader(csvData), repo).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows imported, got %d", count)
	}
	if repo.items[1].WardName != "Phường Bến Nghé" || repo.items[1].DistrictID != "760" || repo.items[1].WardLevel != "Phường" {
		t.Fatalf("unexpected row: %+v", repo.items[1])
	}
	if repo.items[2].ProvinceID != "01" || repo.items[2].DistrictID != "" {
		t.Fatalf("expected province-only row, got %+v", repo.items[2])
	}
}

func TestImporter_RunJSON(t *testing.T) {
	jsonData := `
[{"Id":"48","Name":"Thành phố Đà Nẵng","Districts":[{"Id":"490","Name":"Quận Liên Chiểu","Wards":[{"Id":"20194","Name":"Phường Hòa Hiệp Bắc","Level":"Phường"}]}]}]`

	repo := &stubLocationRepo{}
	count, err := New(strings.NewReader(jsonData), repo).Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 1 || repo.items[0].WardID != "20194" || repo.items[0].ProvinceName != "Thành phố Đà Nẵng" {
		t.Fatalf("unexpected import %d %+v", count, repo.items)
	}
}

func TestImporter_RejectsConflictingParentsBeforeWriting(t *testing.T) {
	csvData := `province_id,province_name,district_id,district_name
79,Thành phố Hồ Chí Minh,760,Quận 1
01,Thành phố Hà Nội,760,Quận 1`

	repo := &stubLocationRepo{}
	if _, err := New(strings.NewReader(csvData), repo).Run(context.Background()); err == nil {
		t.Fatalf("expected conflicting parent error")
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected nothing written, got %d rows", len(repo.items))
	}
}

func TestImporter_RejectsWardWithoutDistrict(t *testing.T) {
	csvData := `province_id,province_name,ward_id,ward_name
79,Thành phố Hồ Chí Minh,26740,Phường Bến Nghé`

	if _, err := New(strings.NewReader(csvData), &stubLocationRepo{}).Run(context.Background()); err == nil {
		t.Fatalf("expected missing district error")
	}
}

func TestImporter_PropagatesWriteError(t *testing.T) {
	boom := errors.New("db down")
	csvData := "province_id,province_name\n79,Hồ Chí Minh"

	count, err := New(strings.NewReader(csvData), &stubLocationRepo{err: boom}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 imported, got %d", count)
	}
}

func TestDetectKind(t *testing.T) {
	kind, err := DetectKind(strings.NewReader("  \n[{}]"))
	if err != nil {
		t.Fatalf("detect json kind: %v", err)
	}
	if kind != KindJSON {
		t.Fatalf("expected json kind, got %s", kind)
	}

	kind, err = DetectKind(strings.NewReader("province_id,province_name\n"))
	if err != nil {
		t.Fatalf("detect csv kind: %v", err)
	}
	if kind != KindCSV {
		t.Fatalf("expected csv kind, got %s", kind)
	}

	if _, err := DetectKind(strings.NewReader("   ")); err == nil {
		t.Fatalf("expected error for blank input")
	}
}
