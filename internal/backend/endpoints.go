package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"checkout-service/internal/domain"
)

// List returns the shopper's address book.
func (c *Client) List(ctx context.Context, token string) ([]domain.SavedAddress, error) {
	var out []domain.SavedAddress
	if err := c.do(ctx, http.MethodGet, token, nil, &out, "addresses"); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.SavedAddress{}
	}
	return out, nil
}

type discountPayload struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	DiscountType  string           `json:"discountType"`
	DiscountValue *decimal.Decimal `json:"discountValue"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue"`
	StartAt       flexTime         `json:"startAt"`
	EndAt         flexTime         `json:"endAt"`
	Active        *bool            `json:"active"`
}

// FindByCode looks a coupon up by code. Unknown codes report domain.ErrNotFound.
func (c *Client) FindByCode(ctx context.Context, token, code string) (*domain.DiscountDetail, error) {
	var p discountPayload
	if err := c.do(ctx, http.MethodGet, token, nil, &p, "discounts", "code", code); err != nil {
		if statusIs(err, http.StatusNotFound) {
			return nil, fmt.Errorf("discount %q: %w", code, domain.ErrNotFound)
		}
		return nil, err
	}

	kind := domain.DiscountType(strings.ToUpper(strings.TrimSpace(p.DiscountType)))
	switch kind {
	case domain.DiscountPercent, domain.DiscountFixedAmount, domain.DiscountFreeShip:
	default:
		return nil, fmt.Errorf("%w: discount type %q", ErrMalformedResponse, p.DiscountType)
	}
	if strings.TrimSpace(p.Code) == "" || p.Active == nil {
		return nil, fmt.Errorf("%w: discount without code or active flag", ErrMalformedResponse)
	}
	if p.DiscountValue == nil && kind != domain.DiscountFreeShip {
		return nil, fmt.Errorf("%w: discount without value", ErrMalformedResponse)
	}
	if p.StartAt.IsZero() || p.EndAt.IsZero() {
		return nil, fmt.Errorf("%w: discount without validity window", ErrMalformedResponse)
	}

	d := &domain.DiscountDetail{
		ID:            p.ID,
		Code:          p.Code,
		DiscountType:  kind,
		MinOrderValue: p.MinOrderValue,
		StartAt:       p.StartAt.Time,
		EndAt:         p.EndAt.Time,
		Active:        *p.Active,
	}
	if p.DiscountValue != nil {
		d.DiscountValue = *p.DiscountValue
	}
	return d, nil
}

type orderPayload struct {
	ID            string   `json:"id"`
	CreatedAt     flexTime `json:"createdAt"`
	Status        string   `json:"status"`
	PaymentStatus string   `json:"paymentStatus"`
}

// Create submits an order.
func (c *Client) Create(ctx context.Context, token string, req domain.OrderRequest) (*domain.CreatedOrder, error) {
	var p orderPayload
	if err := c.do(ctx, http.MethodPost, token, req, &p, "orders"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: order without id", ErrMalformedResponse)
	}
	return &domain.CreatedOrder{
		ID:            p.ID,
		CreatedAt:     p.CreatedAt.Time,
		Status:        p.Status,
		PaymentStatus: p.PaymentStatus,
	}, nil
}

// CreatePaymentURL asks the VNPay integration for a redirect URL.
func (c *Client) CreatePaymentURL(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	var out domain.PaymentResponse
	if err := c.do(ctx, http.MethodPost, token, req, &out, "vnpay", "create-payment"); err != nil {
		return nil, err
	}
	if out.Code == "" {
		return nil, fmt.Errorf("%w: payment response without code", ErrMalformedResponse)
	}
	return &out, nil
}

// RemoveItem drops a product from the shopper's shared cart.
func (c *Client) RemoveItem(ctx context.Context, token, productID string) error {
	return c.do(ctx, http.MethodDelete, token, nil, nil, "cart", "remove", productID)
}

// flexTime accepts RFC 3339 strings as well as epoch seconds, which is how
// the backend serializes instants depending on its Jackson settings.
type flexTime struct {
	time.Time
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if parsed, err := time.Parse(layout, unquoted); err == nil {
				t.Time = parsed
				return nil
			}
		}
		return fmt.Errorf("unrecognized time %q", unquoted)
	}
	secs, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("unrecognized time %s", s)
	}
	whole := secs.IntPart()
	nanos := secs.Sub(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(int64(time.Second))).IntPart()
	t.Time = time.Unix(whole, nanos).UTC()
	return nil
}
