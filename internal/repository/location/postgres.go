package location

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"checkout-service/internal/location"
	"checkout-service/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	logger = logging.OrNop(logger)
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) ListRecords(ctx context.Context) ([]location.Record, error) {
	const q = `
SELECT p.id, p.name,
       COALESCE(d.id, ''), COALESCE(d.name, ''),
       COALESCE(w.id, ''), COALESCE(w.name, ''), COALESCE(w.level, '')
FROM location_provinces p
LEFT JOIN location_districts d ON d.province_id = p.id
LEFT JOIN location_wards w ON w.district_id = d.id
ORDER BY p.position, d.position NULLS FIRST, w.position NULLS FIRST
`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []location.Record
	for rows.Next() {
		var rec location.Record
		if err := rows.Scan(
			&rec.ProvinceID,
			&rec.ProvinceName,
			&rec.DistrictID,
			&rec.DistrictName,
			&rec.WardID,
			&rec.WardName,
			&rec.WardLevel,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("listed location records", zap.Int("count", len(out)))
	return out, nil
}

// Upsert writes the province of rec and, when present, its district and ward.
// Existing entries keep their list position.
func (r *postgresRepo) Upsert(ctx context.Context, rec location.Record) error {
	if strings.TrimSpace(rec.ProvinceID) == "" {
		return fmt.Errorf("province id required")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO location_provinces (id, name)
VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
`, rec.ProvinceID, rec.ProvinceName); err != nil {
		return fmt.Errorf("upsert province %s: %w", rec.ProvinceID, err)
	}

	if rec.DistrictID != "" {
		if _, err := tx.Exec(ctx, `
INSERT INTO location_districts (id, province_id, name)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET province_id = EXCLUDED.province_id, name = EXCLUDED.name
`, rec.DistrictID, rec.ProvinceID, rec.DistrictName); err != nil {
			return fmt.Errorf("upsert district %s: %w", rec.DistrictID, err)
		}
	}

	if rec.DistrictID != "" && rec.WardID != "" {
		if _, err := tx.Exec(ctx, `
INSERT INTO location_wards (id, district_id, name, level)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET district_id = EXCLUDED.district_id, name = EXCLUDED.name, level = EXCLUDED.level
`, rec.WardID, rec.DistrictID, rec.WardName, rec.WardLevel); err != nil {
			return fmt.Errorf("upsert ward %s: %w", rec.WardID, err)
		}
	}

	return tx.Commit(ctx)
}
