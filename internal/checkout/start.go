package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/metrics"
)

// Notices surfaced to the storefront as transient messages.
const (
	NoticeAddressesUnavailable = "Không thể tải danh sách địa chỉ"
	NoticeAddressSelected      = "Đã chọn địa chỉ giao hàng"
)

// StartInput is how the storefront enters checkout: either a single
// "buy now" product or the items picked from the shared cart.
type StartInput struct {
	BuyNow    *domain.CartItem  `json:"buyNow,omitempty"`
	CartItems []domain.CartItem `json:"cartItems,omitempty"`
}

// Start opens a checkout session. Signed-in users get their saved addresses
// loaded and the default one (else the first) resolved into the form. A
// failing address book leaves a notice on the session rather than failing.
func (s *Service) Start(ctx context.Context, auth domain.AuthContext, in StartInput) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Start")
	defer span.End()

	items, shared, err := entryItems(in)
	if err != nil {
		return nil, err
	}

	user := auth
	user.Token = ""
	now := s.now()
	sess := &domain.Session{
		ID:             s.newID(),
		User:           user,
		State:          domain.StateViewing,
		Items:          items,
		FromSharedCart: shared,
		Shipping: domain.ShippingInfo{
			FullName: auth.Name,
			Phone:    auth.Phone,
			Email:    auth.Email,
		},
		SavedAddresses: []domain.SavedAddress{},
		ShippingMethod: domain.ShippingStandard,
		PaymentMethod:  domain.PaymentCOD,
		Seq:            domain.Sequences{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.logger.Info("checkout started",
		zap.String("session_id", sess.ID),
		zap.Int("items", len(items)),
		zap.Bool("shared_cart", shared),
		zap.Bool("guest", auth.IsGuest()),
	)

	if auth.IsGuest() {
		return sess, nil
	}
	loaded, err := s.loadAddresses(ctx, auth, sess.ID, true)
	if errors.Is(err, ErrStaleResponse) {
		return s.load(ctx, sess.ID)
	}
	return loaded, err
}

// ReloadAddresses refreshes the saved address list without touching the form.
func (s *Service) ReloadAddresses(ctx context.Context, auth domain.AuthContext, id string) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ReloadAddresses")
	defer span.End()

	if auth.IsGuest() {
		return s.load(ctx, id)
	}
	return s.loadAddresses(ctx, auth, id, false)
}

func (s *Service) loadAddresses(ctx context.Context, auth domain.AuthContext, id string, selectDefault bool) (*domain.Session, error) {
	_, seq, err := s.begin(ctx, id, seqAddress, editable)
	if err != nil {
		return nil, err
	}

	list, err := s.addresses.List(ctx, auth.Token)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("list_addresses").Inc()
		s.logger.Warn("load saved addresses", zap.String("session_id", id), zap.Error(err))
		return s.finish(ctx, id, seqAddress, seq, func(sess *domain.Session) error {
			sess.Notice = NoticeAddressesUnavailable
			return nil
		})
	}

	return s.finish(ctx, id, seqAddress, seq, func(sess *domain.Session) error {
		sess.SavedAddresses = append([]domain.SavedAddress{}, list...)
		if !selectDefault {
			if sess.SelectedAddressID != nil && findAddress(list, *sess.SelectedAddressID) == nil {
				sess.SelectedAddressID = nil
			}
			return nil
		}
		if chosen := defaultAddress(list); chosen != nil {
			s.applyAddress(sess, *chosen)
		}
		return nil
	})
}

// SelectSavedAddress loads one of the session's saved addresses into the form.
// It is only available while viewing.
func (s *Service) SelectSavedAddress(ctx context.Context, id string, addressID int64) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if sess.State != domain.StateViewing {
			return ErrInvalidTransition
		}
		saved := findAddress(sess.SavedAddresses, addressID)
		if saved == nil {
			return ErrAddressNotFound
		}
		sess.Seq.Next(seqAddress)
		s.applyAddress(sess, *saved)
		sess.Notice = NoticeAddressSelected
		return nil
	})
}

func (s *Service) applyAddress(sess *domain.Session, saved domain.SavedAddress) {
	res := s.resolver.Resolve(saved, sess.User, sess.Shipping)
	metrics.AddressResolutions.WithLabelValues(string(res.Outcome)).Inc()

	sess.Shipping = res.Info
	sess.ProvinceID = res.ProvinceID
	sess.DistrictID = res.DistrictID
	sess.WardID = res.WardID
	addressID := saved.ID
	sess.SelectedAddressID = &addressID
	sess.State = domain.StateViewing
	sess.Snapshot = nil
	sess.Errors = nil
}

// entryItems picks the buy-now product when it has a positive quantity and
// the cart selection otherwise.
func entryItems(in StartInput) ([]domain.CartItem, bool, error) {
	var items []domain.CartItem
	shared := false
	switch {
	case in.BuyNow != nil && in.BuyNow.Quantity > 0:
		items = []domain.CartItem{*in.BuyNow}
	case len(in.CartItems) > 0:
		items = append([]domain.CartItem{}, in.CartItems...)
		shared = true
	default:
		return nil, false, ErrEmptyCart
	}
	for _, item := range items {
		if err := checkItem(item); err != nil {
			return nil, false, err
		}
	}
	return items, shared, nil
}

func checkItem(item domain.CartItem) error {
	switch {
	case strings.TrimSpace(item.ProductID) == "":
		return fmt.Errorf("%w: missing product id", ErrInvalidItem)
	case item.Price < 0:
		return fmt.Errorf("%w: product %q has negative price %d", ErrInvalidItem, item.ProductID, item.Price)
	case item.Quantity < 1:
		return fmt.Errorf("%w: product %q has quantity %d", ErrInvalidItem, item.ProductID, item.Quantity)
	}
	return nil
}

func defaultAddress(list []domain.SavedAddress) *domain.SavedAddress {
	for i := range list {
		if list[i].IsDefault {
			return &list[i]
		}
	}
	if len(list) > 0 {
		return &list[0]
	}
	return nil
}

func findAddress(list []domain.SavedAddress, id int64) *domain.SavedAddress {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}
