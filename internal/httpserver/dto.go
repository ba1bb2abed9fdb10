package httpserver

import (
	"time"

	"checkout-service/internal/checkout"
	"checkout-service/internal/domain"
	"checkout-service/internal/pricing"
)

type userRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type startRequest struct {
	User      userRequest       `json:"user"`
	BuyNow    *domain.CartItem  `json:"buyNow" binding:"-"`
	CartItems []domain.CartItem `json:"cartItems" binding:"omitempty,dive"`
}

type fieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

type methodRequest struct {
	Method string `json:"method" binding:"required"`
}

type couponRequest struct {
	Code string `json:"code"`
}

type quoteRequest struct {
	Items          []domain.CartItem      `json:"items" binding:"required,dive"`
	ShippingMethod domain.ShippingMethod  `json:"shippingMethod"`
	City           string                 `json:"city"`
	Coupon         *domain.DiscountDetail `json:"coupon"`
}

// shippingFees lists the fee of every option so both can be shown at once.
type shippingFees struct {
	Standard int64 `json:"standard"`
	Express  int64 `json:"express"`
}

type displayTotals struct {
	Subtotal       string `json:"subtotal"`
	ShippingFee    string `json:"shippingFee"`
	DiscountAmount string `json:"discountAmount"`
	GrandTotal     string `json:"grandTotal"`
}

type quoteResponse struct {
	Totals       domain.Totals `json:"totals"`
	Display      displayTotals `json:"display"`
	ShippingFees shippingFees  `json:"shippingFees"`
}

type sessionResponse struct {
	ID                string                 `json:"id"`
	State             domain.SessionState    `json:"state"`
	Items             []domain.CartItem      `json:"items"`
	FromSharedCart    bool                   `json:"fromSharedCart"`
	Shipping          domain.ShippingInfo    `json:"shipping"`
	ProvinceID        string                 `json:"provinceId,omitempty"`
	DistrictID        string                 `json:"districtId,omitempty"`
	WardID            string                 `json:"wardId,omitempty"`
	SavedAddresses    []domain.SavedAddress  `json:"savedAddresses"`
	SelectedAddressID *int64                 `json:"selectedAddressId,omitempty"`
	ShippingMethod    domain.ShippingMethod  `json:"shippingMethod"`
	PaymentMethod     domain.PaymentMethod   `json:"paymentMethod"`
	CouponCode        string                 `json:"couponCode"`
	AppliedCoupon     *domain.DiscountDetail `json:"appliedCoupon,omitempty"`
	Totals            domain.Totals          `json:"totals"`
	Display           displayTotals          `json:"display"`
	ShippingFees      shippingFees           `json:"shippingFees"`
	Errors            map[string]string      `json:"errors,omitempty"`
	Notice            string                 `json:"notice,omitempty"`
	Submitting        bool                   `json:"submitting"`
	PendingOrderID    string                 `json:"pendingOrderId,omitempty"`
	Confirmation      *domain.Confirmation   `json:"confirmation,omitempty"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

type placeOrderResponse struct {
	RedirectURL  string               `json:"redirectUrl,omitempty"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
	Session      sessionResponse      `json:"session"`
}

type validateResponse struct {
	Valid   bool            `json:"valid"`
	Session sessionResponse `json:"session"`
}

func toDisplay(t domain.Totals) displayTotals {
	return displayTotals{
		Subtotal:       pricing.FormatVND(t.Subtotal),
		ShippingFee:    pricing.FormatVND(t.ShippingFee),
		DiscountAmount: pricing.FormatVND(t.DiscountAmount),
		GrandTotal:     pricing.FormatVND(t.GrandTotal),
	}
}

func feesFor(city string) shippingFees {
	fees := pricing.Fees(city)
	return shippingFees{
		Standard: fees[domain.ShippingStandard],
		Express:  fees[domain.ShippingExpress],
	}
}

func toSessionResponse(s *domain.Session) sessionResponse {
	totals := checkout.Totals(s)
	saved := s.SavedAddresses
	if saved == nil {
		saved = []domain.SavedAddress{}
	}
	return sessionResponse{
		ID:                s.ID,
		State:             s.State,
		Items:             s.Items,
		FromSharedCart:    s.FromSharedCart,
		Shipping:          s.Shipping,
		ProvinceID:        s.ProvinceID,
		DistrictID:        s.DistrictID,
		WardID:            s.WardID,
		SavedAddresses:    saved,
		SelectedAddressID: s.SelectedAddressID,
		ShippingMethod:    s.ShippingMethod,
		PaymentMethod:     s.PaymentMethod,
		CouponCode:        s.CouponCode,
		AppliedCoupon:     s.AppliedCoupon,
		Totals:            totals,
		Display:           toDisplay(totals),
		ShippingFees:      feesFor(s.Shipping.City),
		Errors:            s.Errors,
		Notice:            s.Notice,
		Submitting:        s.Submitting,
		PendingOrderID:    s.PendingOrderID,
		Confirmation:      s.Confirmation,
		UpdatedAt:         s.UpdatedAt,
	}
}
