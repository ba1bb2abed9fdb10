package session

import (
	"context"
	"sync"
	"time"

	"checkout-service/internal/domain"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

type memoryRepo struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemory keeps sessions in process. Stored values are copies, so callers
// never share state with the store.
func NewMemory(ttl time.Duration) Repository {
	return &memoryRepo{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (r *memoryRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[s.ID]; ok && !r.expired(e) {
		return domain.ErrAlreadyExists
	}
	return r.put(s)
}

func (r *memoryRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok || r.expired(e) {
		return nil, domain.ErrNotFound
	}
	return decode(e.data)
}

func (r *memoryRepo) Save(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[s.ID]; !ok || r.expired(e) {
		return domain.ErrNotFound
	}
	return r.put(s)
}

func (r *memoryRepo) put(s *domain.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	var exp time.Time
	if r.ttl > 0 {
		exp = r.now().Add(r.ttl)
	}
	r.entries[s.ID] = memoryEntry{data: data, expiresAt: exp}
	return nil
}

func (r *memoryRepo) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && r.now().After(e.expiresAt)
}

func (r *memoryRepo) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.entries {
		if r.expired(e) {
			delete(r.entries, id)
			n++
		}
	}
	return n, nil
}
