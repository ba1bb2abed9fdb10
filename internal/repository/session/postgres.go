package session

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
)

const uniqueViolation = "23505"

type postgresRepo struct {
	pool   *pgxpool.Pool
	ttl    time.Duration
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, ttl time.Duration, logger *zap.Logger) Repository {
	logger = logging.OrNop(logger)
	return &postgresRepo{pool: pool, ttl: ttl, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, s *domain.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO checkout_sessions (id, state, data, created_at, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err = r.pool.Exec(ctx, q, s.ID, string(s.State), data, s.CreatedAt, s.UpdatedAt, r.expiry())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		r.logger.Error("insert checkout session", zap.String("session_id", s.ID), zap.Error(err))
		return err
	}
	return nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	const q = `
SELECT data
FROM checkout_sessions
WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())
`
	var data []byte
	if err := r.pool.QueryRow(ctx, q, id).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decode(data)
}

func (r *postgresRepo) Save(ctx context.Context, s *domain.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	const q = `
UPDATE checkout_sessions
SET state = $2,
    data = $3,
    updated_at = $4,
    expires_at = $5
WHERE id = $1 AND (expires_at IS NULL OR expires_at > now())
`
	tag, err := r.pool.Exec(ctx, q, s.ID, string(s.State), data, s.UpdatedAt, r.expiry())
	if err != nil {
		r.logger.Error("update checkout session", zap.String("session_id", s.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and reports how many went.
func (r *postgresRepo) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM checkout_sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *postgresRepo) expiry() *time.Time {
	if r.ttl <= 0 {
		return nil
	}
	t := time.Now().Add(r.ttl)
	return &t
}
