package domain

import (
	"strings"
	"time"
)

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"
)

type PaymentMethod string

const (
	PaymentCOD          PaymentMethod = "cod"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentEWallet      PaymentMethod = "e_wallet"
)

// Valid reports whether m is a known shipping method.
func (m ShippingMethod) Valid() bool {
	return m == ShippingStandard || m == ShippingExpress
}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentBankTransfer, PaymentEWallet:
		return true
	}
	return false
}

// Wire returns the upper-case form the order API expects.
func (m PaymentMethod) Wire() string {
	return strings.ToUpper(string(m))
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest is the order-creation payload.
type OrderRequest struct {
	Items           []OrderItem       `json:"items"`
	ShippingFee     int64             `json:"shippingFee"`
	DiscountCode    *string           `json:"discountCode"`
	ShippingAddress map[string]string `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod"`
}

// CreatedOrder is the subset of the created order the checkout needs.
type CreatedOrder struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
}

type PaymentRequest struct {
	OrderID   string `json:"orderId"`
	Amount    int64  `json:"amount"`
	OrderInfo string `json:"orderInfo"`
	Language  string `json:"language"`
}

type PaymentResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message,omitempty"`
	PaymentURL string `json:"paymentUrl,omitempty"`
}
