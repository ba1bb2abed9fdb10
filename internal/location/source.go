package location

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// RecordSource lists flattened catalog rows from storage.
type RecordSource interface {
	ListRecords(ctx context.Context) ([]Record, error)
}

// Load builds the catalog from the configured source. It runs once at startup.
func Load(ctx context.Context, source, path string, store RecordSource) (*Catalog, error) {
	switch strings.ToLower(strings.TrimSpace(source)) {
	case "", SourceEmbedded:
		return Default()
	case SourceFile:
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("location: file source requires a path")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("location: open %s: %w", path, err)
		}
		defer f.Close()
		return Parse(f)
	case SourcePostgres:
		if store == nil {
			return nil, fmt.Errorf("location: postgres source requires a repository")
		}
		records, err := store.ListRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("location: list records: %w", err)
		}
		return FromRecords(records)
	default:
		return nil, fmt.Errorf("location: unknown source %q", source)
	}
}
