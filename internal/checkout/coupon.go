package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/metrics"
	"checkout-service/internal/pricing"
)

var (
	ErrCouponRejected = errors.New("checkout: coupon rejected")
	ErrCouponNotFound = errors.New("checkout: coupon does not exist")
)

const (
	NoticeCouponRequired = "Vui lòng nhập mã giảm giá"
	NoticeCouponRemoved  = "Đã xóa mã giảm giá"

	msgCouponNotFound = "Mã giảm giá không tồn tại"
	msgCouponInvalid  = "Mã giảm giá không hợp lệ hoặc đã hết hạn"
)

// CouponRejectedError explains why a coupon was not applied. It matches both
// ErrCouponRejected and the specific reason.
type CouponRejectedError struct {
	Code    string
	Reason  error
	Message string
}

func (e *CouponRejectedError) Error() string {
	return fmt.Sprintf("%s %q: %v", ErrCouponRejected, e.Code, e.Reason)
}

func (e *CouponRejectedError) Unwrap() []error { return []error{ErrCouponRejected, e.Reason} }

// Totals derives the order totals of sess.
func Totals(sess *domain.Session) domain.Totals {
	return pricing.Compute(sess.Items, sess.ShippingMethod, sess.Shipping.City, sess.AppliedCoupon)
}

// ApplyCoupon looks up code and applies it if the acceptance rules pass. A
// rejected or failed attempt leaves the applied coupon unchanged.
func (s *Service) ApplyCoupon(ctx context.Context, auth domain.AuthContext, id, code string) (*domain.Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.ApplyCoupon")
	defer span.End()

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCouponCodeRequired
	}

	snap, seq, err := s.begin(ctx, id, seqCoupon, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		sess.CouponCode = code
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail, err := s.discounts.FindByCode(ctx, auth.Token, code)
	if err == nil && detail == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.CouponAttempts.WithLabelValues("not_found").Inc()
			return nil, &CouponRejectedError{Code: code, Reason: ErrCouponNotFound, Message: msgCouponNotFound}
		}
		metrics.CouponAttempts.WithLabelValues("error").Inc()
		metrics.BackendErrors.WithLabelValues("find_discount").Inc()
		span.RecordError(err)
		return nil, fmt.Errorf("find discount %q: %w", code, err)
	}

	subtotal := pricing.Subtotal(snap.Items)
	if err := pricing.ValidateCoupon(*detail, subtotal, s.now()); err != nil {
		metrics.CouponAttempts.WithLabelValues(rejectionLabel(err)).Inc()
		s.logger.Info("coupon rejected",
			zap.String("session_id", id),
			zap.String("code", code),
			zap.Error(err),
		)
		return nil, &CouponRejectedError{Code: code, Reason: err, Message: rejectionMessage(err)}
	}

	applied := *detail
	sess, err := s.finish(ctx, id, seqCoupon, seq, func(sess *domain.Session) error {
		sess.AppliedCoupon = &applied
		sess.Notice = fmt.Sprintf("Áp dụng mã %s thành công!", applied.Code)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.CouponAttempts.WithLabelValues("applied").Inc()
	return sess, nil
}

// RemoveCoupon clears the applied coupon and the entered code. Any lookup
// still in flight is discarded when it returns.
func (s *Service) RemoveCoupon(ctx context.Context, id string) (*domain.Session, error) {
	return s.mutate(ctx, id, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		sess.AppliedCoupon = nil
		sess.CouponCode = ""
		sess.Seq.Next(seqCoupon)
		sess.Notice = NoticeCouponRemoved
		return nil
	})
}

func rejectionMessage(err error) string {
	var minErr *pricing.MinOrderError
	if errors.As(err, &minErr) {
		return "Đơn tối thiểu phải đạt " + pricing.FormatVND(minErr.MinOrderValue)
	}
	return msgCouponInvalid
}

func rejectionLabel(err error) string {
	switch {
	case errors.Is(err, pricing.ErrCouponInactive):
		return "inactive"
	case errors.Is(err, pricing.ErrCouponNotStarted):
		return "not_started"
	case errors.Is(err, pricing.ErrCouponExpired):
		return "expired"
	case errors.Is(err, pricing.ErrCouponMinOrder):
		return "min_order"
	}
	return "error"
}
