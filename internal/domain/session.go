package domain

import "time"

type SessionState string

const (
	StateViewing   SessionState = "viewing"
	StateEditing   SessionState = "editing"
	StateCompleted SessionState = "completed"
)

// Totals are derived on every read and never stored as input.
type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	ShippingFee    int64 `json:"shippingFee"`
	DiscountAmount int64 `json:"discountAmount"`
	GrandTotal     int64 `json:"grandTotal"`
}

// Confirmation is what the storefront shows after a cash or transfer order.
type Confirmation struct {
	OrderID        string          `json:"orderId"`
	OrderNumber    string          `json:"orderNumber"`
	Items          []CartItem      `json:"items"`
	ShippingInfo   ShippingInfo    `json:"shippingInfo"`
	ShippingMethod ShippingMethod  `json:"shippingMethod"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Totals         Totals          `json:"totals"`
	Coupon         *DiscountDetail `json:"coupon,omitempty"`
	OrderDate      time.Time       `json:"orderDate"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"paymentStatus"`
}

// Sequences tags in-flight collaborator calls per input field.
type Sequences map[string]uint64

// Next bumps and returns the sequence for field.
func (s Sequences) Next(field string) uint64 {
	s[field]++
	return s[field]
}

// Current reports whether seq is still the latest for field.
func (s Sequences) Current(field string, seq uint64) bool {
	return s[field] == seq
}

// EditSnapshot is what cancelling an edit restores.
type EditSnapshot struct {
	Shipping   ShippingInfo `json:"shipping"`
	ProvinceID string       `json:"provinceId,omitempty"`
	DistrictID string       `json:"districtId,omitempty"`
	WardID     string       `json:"wardId,omitempty"`
}

// Session is the persisted state of one checkout.
type Session struct {
	ID                string            `json:"id"`
	User              AuthContext       `json:"user"`
	State             SessionState      `json:"state"`
	Items             []CartItem        `json:"items"`
	FromSharedCart    bool              `json:"fromSharedCart"`
	Shipping          ShippingInfo      `json:"shipping"`
	Snapshot          *EditSnapshot     `json:"snapshot,omitempty"`
	ProvinceID        string            `json:"provinceId,omitempty"`
	DistrictID        string            `json:"districtId,omitempty"`
	WardID            string            `json:"wardId,omitempty"`
	SavedAddresses    []SavedAddress    `json:"savedAddresses"`
	SelectedAddressID *int64            `json:"selectedAddressId,omitempty"`
	ShippingMethod    ShippingMethod    `json:"shippingMethod"`
	PaymentMethod     PaymentMethod     `json:"paymentMethod"`
	CouponCode        string            `json:"couponCode"`
	AppliedCoupon     *DiscountDetail   `json:"appliedCoupon,omitempty"`
	Errors            map[string]string `json:"errors,omitempty"`
	Notice            string            `json:"notice,omitempty"`
	Submitting        bool              `json:"submitting"`
	PendingOrderID    string            `json:"pendingOrderId,omitempty"`
	Confirmation      *Confirmation     `json:"confirmation,omitempty"`
	Seq               Sequences         `json:"seq"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
