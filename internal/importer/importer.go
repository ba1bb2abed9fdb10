package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"checkout-service/internal/location"
)

type Kind string

const (
	KindCSV  Kind = "csv"
	KindJSON Kind = "json"
)

type LocationWriter interface {
	Upsert(ctx context.Context, rec location.Record) error
}

// Importer loads a location catalog export into the location store. CSV
// exports carry one flattened row per ward; JSON exports use the nested
// catalog format.
type Importer struct {
	reader *bufio.Reader
	repo   LocationWriter
}

func New(r io.Reader, repo LocationWriter) *Importer {
	return &Importer{reader: bufio.NewReader(r), repo: repo}
}

// DetectKind peeks at the first non-blank byte: JSON exports start with '['.
func DetectKind(r io.Reader) (Kind, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return detect(br)
}

func detect(br *bufio.Reader) (Kind, error) {
	for n := 1; ; n++ {
		buf, err := br.Peek(n)
		if len(buf) == n {
			trimmed := bytes.TrimLeft(buf, " \t\r\n")
			if len(trimmed) > 0 {
				if trimmed[0] == '[' {
					return KindJSON, nil
				}
				return KindCSV, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("empty input")
			}
			return "", err
		}
	}
}

// Run validates every row before writing any, then upserts them in file
// order and returns how many were written.
func (i *Importer) Run(ctx context.Context) (int, error) {
	kind, err := detect(i.reader)
	if err != nil {
		return 0, fmt.Errorf("detect kind: %w", err)
	}

	var records []location.Record
	switch kind {
	case KindJSON:
		catalog, err := location.Parse(i.reader)
		if err != nil {
			return 0, fmt.Errorf("parse json: %w", err)
		}
		records = catalog.Records()
	default:
		records, err = readCSV(i.reader)
		if err != nil {
			return 0, err
		}
		// FromRecords enforces one parent per district and ward.
		if _, err := location.FromRecords(records); err != nil {
			return 0, fmt.Errorf("validate rows: %w", err)
		}
	}

	imported := 0
	for _, rec := range records {
		if err := i.repo.Upsert(ctx, rec); err != nil {
			return imported, fmt.Errorf("upsert province %s district %s ward %s: %w", rec.ProvinceID, rec.DistrictID, rec.WardID, err)
		}
		imported++
	}
	return imported, nil
}

func readCSV(r io.Reader) ([]location.Record, error) {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas

	headers, err := csvr.Read()
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, required := range []string{"province_id", "province_name"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var out []location.Record
	line := 1
	for {
		record, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		rec := location.Record{
			ProvinceID:   pick(record, index, "province_id"),
			ProvinceName: pick(record, index, "province_name"),
			DistrictID:   pick(record, index, "district_id"),
			DistrictName: pick(record, index, "district_name"),
			WardID:       pick(record, index, "ward_id"),
			WardName:     pick(record, index, "ward_name"),
			WardLevel:    pick(record, index, "ward_level"),
		}
		if rec == (location.Record{}) {
			continue
		}
		if err := checkRow(rec); err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func checkRow(rec location.Record) error {
	switch {
	case rec.ProvinceID == "" || rec.ProvinceName == "":
		return errors.New("province id and name required")
	case rec.DistrictID != "" && rec.DistrictName == "":
		return fmt.Errorf("district %s has no name", rec.DistrictID)
	case rec.WardID != "" && rec.DistrictID == "":
		return fmt.Errorf("ward %s has no district", rec.WardID)
	case rec.WardID != "" && rec.WardName == "":
		return fmt.Errorf("ward %s has no name", rec.WardID)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
