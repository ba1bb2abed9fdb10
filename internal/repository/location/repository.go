package location

import (
	"context"

	"checkout-service/internal/location"
)

// Repository persists the province/district/ward catalog. List order is the
// order entries were first written.
type Repository interface {
	ListRecords(ctx context.Context) ([]location.Record, error)
	Upsert(ctx context.Context, rec location.Record) error
}
