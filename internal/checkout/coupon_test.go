package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkout-service/internal/domain"
	"checkout-service/internal/pricing"
)

func startMember(t *testing.T, svc *Service) *domain.Session {
	t.Helper()
	sess, err := svc.Start(context.Background(), member(), StartInput{CartItems: cartItems()})
	require.NoError(t, err)
	return sess
}

func TestApplyCoupon(t *testing.T) {
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{"SALE10": percentCoupon("SALE10", 10)},
	}
	svc, _ := newTestService(t, backend)
	sess := startMember(t, svc)

	sess, err := svc.ApplyCoupon(context.Background(), member(), sess.ID, "  sale10 ")
	require.NoError(t, err)
	require.NotNil(t, sess.AppliedCoupon)
	assert.Equal(t, "SALE10", sess.AppliedCoupon.Code)
	assert.Equal(t, "SALE10", sess.CouponCode)
	assert.Equal(t, "Áp dụng mã SALE10 thành công!", sess.Notice)
	assert.Equal(t, domain.Totals{
		Subtotal:       200000,
		ShippingFee:    25000,
		DiscountAmount: 20000,
		GrandTotal:     205000,
	}, Totals(sess))
}

func TestApplyCouponRequiresCode(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{addresses: savedAddresses()})
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(context.Background(), member(), sess.ID, "   ")
	require.ErrorIs(t, err, ErrCouponCodeRequired)
}

func TestApplyCouponNotFound(t *testing.T) {
	svc, _ := newTestService(t, &stubBackend{addresses: savedAddresses()})
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(context.Background(), member(), sess.ID, "NOPE")
	var rej *CouponRejectedError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, ErrCouponRejected)
	assert.ErrorIs(t, err, ErrCouponNotFound)
	assert.Equal(t, "Mã giảm giá không tồn tại", rej.Message)
}

func TestApplyCouponRejectionKeepsAppliedCoupon(t *testing.T) {
	expired := percentCoupon("OLD", 50)
	expired.EndAt = testNow.AddDate(0, 0, -1)
	expired.StartAt = testNow.AddDate(0, -1, 0)
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{
			"SALE10": percentCoupon("SALE10", 10),
			"OLD":    expired,
		},
	}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(ctx, member(), sess.ID, "SALE10")
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, member(), sess.ID, "OLD")
	var rej *CouponRejectedError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, pricing.ErrCouponExpired)
	assert.Equal(t, "Mã giảm giá không hợp lệ hoặc đã hết hạn", rej.Message)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AppliedCoupon)
	assert.Equal(t, "SALE10", stored.AppliedCoupon.Code)
	assert.Equal(t, int64(20000), Totals(stored).DiscountAmount)
}

func TestApplyCouponMinimumOrderMessage(t *testing.T) {
	big := percentCoupon("BIG", 20)
	minimum := decimal.NewFromInt(500000)
	big.MinOrderValue = &minimum
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{"BIG": big},
	}
	svc, _ := newTestService(t, backend)
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(context.Background(), member(), sess.ID, "BIG")
	var rej *CouponRejectedError
	require.ErrorAs(t, err, &rej)
	assert.ErrorIs(t, err, pricing.ErrCouponMinOrder)
	assert.Equal(t, "Đơn tối thiểu phải đạt 500.000 ₫", rej.Message)
}

func TestApplyCouponBackendFailure(t *testing.T) {
	boom := errors.New("read timeout")
	svc, _ := newTestService(t, &stubBackend{addresses: savedAddresses(), findErr: boom})
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(context.Background(), member(), sess.ID, "SALE10")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCouponRejected)
}

func TestApplyCouponDiscardedAfterRemoval(t *testing.T) {
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{"SALE10": percentCoupon("SALE10", 10)},
	}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	sess := startMember(t, svc)

	backend.findHook = func() {
		_, err := svc.RemoveCoupon(ctx, sess.ID)
		require.NoError(t, err)
	}

	_, err := svc.ApplyCoupon(ctx, member(), sess.ID, "SALE10")
	require.ErrorIs(t, err, ErrStaleResponse)

	stored, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AppliedCoupon)
	assert.Empty(t, stored.CouponCode)
}

func TestRemoveCoupon(t *testing.T) {
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{"SALE10": percentCoupon("SALE10", 10)},
	}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	sess := startMember(t, svc)

	_, err := svc.ApplyCoupon(ctx, member(), sess.ID, "SALE10")
	require.NoError(t, err)

	sess, err = svc.RemoveCoupon(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, sess.AppliedCoupon)
	assert.Equal(t, NoticeCouponRemoved, sess.Notice)
	assert.Zero(t, Totals(sess).DiscountAmount)
}

func TestFreeShipFollowsShippingMethod(t *testing.T) {
	free := percentCoupon("FREESHIP", 0)
	free.DiscountType = domain.DiscountFreeShip
	backend := &stubBackend{
		addresses: savedAddresses(),
		discounts: map[string]*domain.DiscountDetail{"FREESHIP": free},
	}
	svc, _ := newTestService(t, backend)
	ctx := context.Background()
	sess := startMember(t, svc)

	sess, err := svc.ApplyCoupon(ctx, member(), sess.ID, "FREESHIP")
	require.NoError(t, err)
	assert.Equal(t, int64(25000), Totals(sess).DiscountAmount)

	sess, err = svc.SetShippingMethod(ctx, sess.ID, domain.ShippingExpress)
	require.NoError(t, err)
	totals := Totals(sess)
	assert.Equal(t, int64(40000), totals.DiscountAmount)
	assert.Equal(t, int64(200000), totals.GrandTotal)
}
