package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"checkout-service/internal/domain"
)

type redisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis stores each session under "checkout:session:<id>" with the TTL
// refreshed on every save.
func NewRedis(client *redis.Client, ttl time.Duration) Repository {
	return &redisRepo{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("checkout:session:%s", id)
}

func (r *redisRepo) Create(ctx context.Context, s *domain.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *redisRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return decode(data)
}

func (r *redisRepo) Save(ctx context.Context, s *domain.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, sessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return nil
}
