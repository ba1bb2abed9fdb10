package session

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/internal/domain"
)

// Repository stores checkout sessions as JSON documents. Expired sessions
// read as domain.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
}

// Sweeper is implemented by stores that need expired sessions purged
// explicitly. Redis expires keys on its own.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func encode(s *domain.Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	return data, nil
}

func decode(data []byte) (*domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Seq == nil {
		s.Seq = domain.Sequences{}
	}
	return &s, nil
}
