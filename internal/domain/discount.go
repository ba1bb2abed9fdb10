package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercent     DiscountType = "PERCENT"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	DiscountFreeShip    DiscountType = "FREE_SHIP"
)

// DiscountDetail is a coupon as returned by the discount lookup. It is never
// mutated after it has been fetched.
type DiscountDetail struct {
	ID            string           `json:"id,omitempty"`
	Code          string           `json:"code"`
	DiscountType  DiscountType     `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue,omitempty"`
	StartAt       time.Time        `json:"startAt"`
	EndAt         time.Time        `json:"endAt"`
	Active        bool             `json:"active"`
}
