package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"checkout-service/internal/domain"
)

// Shipping fees in VND.
const (
	StandardFeeHCM   int64 = 25000
	StandardFeeOther int64 = 40000
	ExpressFeeHCM    int64 = 40000
	ExpressFeeOther  int64 = 65000
)

const hcmMarker = "hồ chí minh"

var hundred = decimal.NewFromInt(100)

// IsHCM reports whether city is Ho Chi Minh City for fee purposes.
func IsHCM(city string) bool {
	return strings.Contains(strings.ToLower(city), hcmMarker)
}

// ShippingFee returns the fee for method delivered to city. Unknown methods
// are priced as standard.
func ShippingFee(method domain.ShippingMethod, city string) int64 {
	hcm := IsHCM(city)
	if method == domain.ShippingExpress {
		if hcm {
			return ExpressFeeHCM
		}
		return ExpressFeeOther
	}
	if hcm {
		return StandardFeeHCM
	}
	return StandardFeeOther
}

// Fees returns the fee of every method for city.
func Fees(city string) map[domain.ShippingMethod]int64 {
	return map[domain.ShippingMethod]int64{
		domain.ShippingStandard: ShippingFee(domain.ShippingStandard, city),
		domain.ShippingExpress:  ShippingFee(domain.ShippingExpress, city),
	}
}

// Subtotal sums unit price times quantity.
func Subtotal(items []domain.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Discount computes the amount coupon takes off. Percent and fixed discounts
// never exceed subtotal; free shipping equals the current shipping fee.
// Percent amounts are rounded half-up to whole VND.
func Discount(coupon *domain.DiscountDetail, subtotal, shippingFee int64) int64 {
	if coupon == nil {
		return 0
	}
	var amount int64
	switch coupon.DiscountType {
	case domain.DiscountPercent:
		amount = decimal.NewFromInt(subtotal).Mul(coupon.DiscountValue).Div(hundred).Round(0).IntPart()
		amount = min(amount, subtotal)
	case domain.DiscountFixedAmount:
		amount = min(coupon.DiscountValue.Round(0).IntPart(), subtotal)
	case domain.DiscountFreeShip:
		amount = shippingFee
	}
	return max(amount, 0)
}

// Compute derives all order totals from the current inputs.
func Compute(items []domain.CartItem, method domain.ShippingMethod, city string, coupon *domain.DiscountDetail) domain.Totals {
	subtotal := Subtotal(items)
	fee := ShippingFee(method, city)
	discount := Discount(coupon, subtotal, fee)
	return domain.Totals{
		Subtotal:       subtotal,
		ShippingFee:    fee,
		DiscountAmount: discount,
		GrandTotal:     max(subtotal+fee-discount, 0),
	}
}
