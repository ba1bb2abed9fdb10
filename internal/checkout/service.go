package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"checkout-service/internal/address"
	"checkout-service/internal/domain"
	"checkout-service/internal/events"
	"checkout-service/internal/metrics"
)

var (
	ErrInvalidTransition  = errors.New("checkout: invalid state transition")
	ErrEmptyCart          = errors.New("checkout: no items to check out")
	ErrInvalidItem        = errors.New("checkout: invalid item")
	ErrAddressNotFound    = errors.New("checkout: saved address not found")
	ErrCouponCodeRequired = errors.New("checkout: coupon code required")
	ErrUnknownField       = errors.New("checkout: unknown shipping field")
	ErrInvalidMethod      = errors.New("checkout: unknown method")
	ErrStaleResponse      = errors.New("checkout: response superseded by a newer change")
	ErrPaymentURL         = errors.New("checkout: payment url unavailable")
	ErrSubmitInProgress   = errors.New("checkout: order submission in progress")
	ErrCompleted          = errors.New("checkout: session already completed")
)

// Sequence fields guarding collaborator responses.
const (
	seqAddress = "address"
	seqCoupon  = "coupon"
	seqOrder   = "order"
)

// SessionStore persists checkout sessions.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
}

// Catalog is the location lookup the orchestrator needs for dependent dropdowns.
type Catalog interface {
	address.Catalog
	Province(id string) (domain.Province, bool)
	District(id string) (domain.District, bool)
	Ward(id string) (domain.Ward, bool)
}

type AddressBook interface {
	List(ctx context.Context, token string) ([]domain.SavedAddress, error)
}

type DiscountFinder interface {
	FindByCode(ctx context.Context, token, code string) (*domain.DiscountDetail, error)
}

type OrderCreator interface {
	Create(ctx context.Context, token string, req domain.OrderRequest) (*domain.CreatedOrder, error)
}

type PaymentURLCreator interface {
	CreatePaymentURL(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentResponse, error)
}

type CartRemover interface {
	RemoveItem(ctx context.Context, token, productID string) error
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, evt events.OrderPlaced) error
}

// Deps wires the orchestrator. Events, Logger, Now and NewID are optional.
type Deps struct {
	Sessions  SessionStore
	Catalog   Catalog
	Addresses AddressBook
	Discounts DiscountFinder
	Orders    OrderCreator
	Payments  PaymentURLCreator
	Cart      CartRemover
	Events    EventPublisher
	Logger    *zap.Logger
	Now       func() time.Time
	NewID     func() string
}

// Service runs checkout sessions. Mutations of one session are serialized;
// collaborator calls happen outside the session lock and their results are
// applied only while their sequence is still current.
type Service struct {
	sessions  SessionStore
	catalog   Catalog
	resolver  *address.Resolver
	addresses AddressBook
	discounts DiscountFinder
	orders    OrderCreator
	payments  PaymentURLCreator
	cart      CartRemover
	events    EventPublisher
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string

	locks sync.Map
}

func New(deps Deps) (*Service, error) {
	switch {
	case deps.Sessions == nil:
		return nil, errors.New("session store required")
	case deps.Catalog == nil:
		return nil, errors.New("location catalog required")
	case deps.Addresses == nil, deps.Discounts == nil, deps.Orders == nil, deps.Payments == nil, deps.Cart == nil:
		return nil, errors.New("backend collaborators required")
	}
	s := &Service{
		sessions:  deps.Sessions,
		catalog:   deps.Catalog,
		resolver:  address.NewResolver(deps.Catalog),
		addresses: deps.Addresses,
		discounts: deps.Discounts,
		orders:    deps.Orders,
		payments:  deps.Payments,
		cart:      deps.Cart,
		events:    deps.Events,
		logger:    deps.Logger,
		tracer:    otel.Tracer("checkout"),
		now:       deps.Now,
		newID:     deps.NewID,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

// Get returns the session as stored.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.load(ctx, id)
}

func (s *Service) lock(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// PruneLocks drops the locks of sessions the store no longer has. Locks held
// at the time are left alone.
func (s *Service) PruneLocks(ctx context.Context) int {
	n := 0
	s.locks.Range(func(key, value any) bool {
		m := value.(*sync.Mutex)
		if !m.TryLock() {
			return true
		}
		defer m.Unlock()
		if _, err := s.sessions.Get(ctx, key.(string)); errors.Is(err, domain.ErrNotFound) {
			s.locks.Delete(key)
			n++
		}
		return true
	})
	return n
}

func (s *Service) load(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Seq == nil {
		sess.Seq = domain.Sequences{}
	}
	return sess, nil
}

func (s *Service) save(ctx context.Context, sess *domain.Session) error {
	sess.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// mutate applies fn under the session lock and saves when fn succeeds.
func (s *Service) mutate(ctx context.Context, id string, fn func(*domain.Session) error) (*domain.Session, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.locks.Delete(id)
		}
		return nil, err
	}
	// Completed sessions never change again, so their lock is not kept.
	defer func() {
		if sess.State == domain.StateCompleted {
			s.locks.Delete(id)
		}
	}()
	sess.Notice = ""
	if err := fn(sess); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// begin checks and tags an outgoing collaborator call for field. The returned
// session is a snapshot to read request inputs from.
func (s *Service) begin(ctx context.Context, id, field string, check func(*domain.Session) error) (*domain.Session, uint64, error) {
	var seq uint64
	sess, err := s.mutate(ctx, id, func(sess *domain.Session) error {
		if check != nil {
			if err := check(sess); err != nil {
				return err
			}
		}
		seq = sess.Seq.Next(field)
		return nil
	})
	return sess, seq, err
}

// finish applies a collaborator result unless a newer change to field has
// been made since begin.
func (s *Service) finish(ctx context.Context, id, field string, seq uint64, apply func(*domain.Session) error) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if !sess.Seq.Current(field, seq) {
			metrics.StaleResponses.WithLabelValues(field).Inc()
			s.logger.Info("discarding stale response",
				zap.String("session_id", sess.ID),
				zap.String("field", field),
				zap.Uint64("seq", seq),
			)
			return ErrStaleResponse
		}
		return apply(sess)
	})
}

// editable rejects changes to finished sessions and to sessions with an
// order submission in flight.
func editable(sess *domain.Session) error {
	if sess.State == domain.StateCompleted {
		return ErrCompleted
	}
	if sess.Submitting {
		return ErrSubmitInProgress
	}
	return nil
}
