package pricing

import (
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/domain"
)

var (
	ErrCouponInactive   = errors.New("pricing: coupon inactive")
	ErrCouponNotStarted = errors.New("pricing: coupon not started")
	ErrCouponExpired    = errors.New("pricing: coupon expired")
	ErrCouponMinOrder   = errors.New("pricing: order below coupon minimum")
)

// MinOrderError carries the minimum the subtotal failed to reach.
type MinOrderError struct {
	MinOrderValue int64
	Subtotal      int64
}

func (e *MinOrderError) Error() string {
	return fmt.Sprintf("%s: minimum %d, subtotal %d", ErrCouponMinOrder, e.MinOrderValue, e.Subtotal)
}

func (e *MinOrderError) Unwrap() error { return ErrCouponMinOrder }

// ValidateCoupon applies the acceptance rules checked when a coupon is applied.
// A nil return means the coupon may become the applied coupon.
func ValidateCoupon(d domain.DiscountDetail, subtotal int64, now time.Time) error {
	if !d.Active {
		return ErrCouponInactive
	}
	if now.Before(d.StartAt) {
		return ErrCouponNotStarted
	}
	if now.After(d.EndAt) {
		return ErrCouponExpired
	}
	if d.MinOrderValue != nil && d.MinOrderValue.IsPositive() {
		minimum := d.MinOrderValue.Ceil().IntPart()
		if subtotal < minimum {
			return &MinOrderError{MinOrderValue: minimum, Subtotal: subtotal}
		}
	}
	return nil
}
