package domain

import "strings"

// SavedAddress is an address-book entry as stored by the shop backend.
// Province holds free text, optionally "<district>, <city>".
type SavedAddress struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Street    string `json:"street"`
	Ward      string `json:"ward"`
	Province  string `json:"province"`
	IsDefault bool   `json:"isDefault"`
}

// ShippingInfo is the editable shipping form. City, District and Ward carry
// canonical catalog names once resolved.
type ShippingInfo struct {
	FullName string `json:"fullName" validate:"nonblank"`
	Phone    string `json:"phone" validate:"nonblank,vnphone"`
	Email    string `json:"email" validate:"nonblank,simpleemail"`
	Address  string `json:"address" validate:"nonblank"`
	City     string `json:"city" validate:"nonblank"`
	District string `json:"district" validate:"nonblank"`
	Ward     string `json:"ward" validate:"nonblank"`
	Note     string `json:"note"`
}

// AuthContext is the authenticated user as seen by the checkout flow.
// It is hydrated once per request and treated as read-only.
type AuthContext struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Token string `json:"-"`
}

// IsGuest reports whether saved-address loading must be skipped.
func (a AuthContext) IsGuest() bool {
	return a.Token == "" || strings.EqualFold(strings.TrimSpace(a.Role), "guest")
}
