package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/events"
	"checkout-service/internal/metrics"
)

const (
	NoticeOrderPlaced      = "Đặt hàng thành công!"
	NoticeOrderFailed      = "Đặt hàng thất bại. Vui lòng thử lại!"
	NoticePaymentURLFailed = "Không thể tạo link thanh toán VNPay"

	paymentOK       = "00"
	paymentLanguage = "vn"

	// submitTimeout bounds everything after the session is marked submitting.
	submitTimeout = time.Minute
)

// SubmitError is an order creation failure with the message to show.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return fmt.Sprintf("place order: %v", e.Err) }

func (e *SubmitError) Unwrap() error { return e.Err }

// PlaceResult is either a payment redirect (e-wallet) or a confirmation.
type PlaceResult struct {
	Session      *domain.Session
	RedirectURL  string
	Confirmation *domain.Confirmation
}

// PlaceOrder submits the session as an order. An invalid form fails with a
// *ValidationError before anything is sent. Backend failures leave the
// session as it was, apart from the notice, so the user can retry. After the
// session is marked submitting, cancelling ctx no longer stops the submission.
func (s *Service) PlaceOrder(ctx context.Context, auth domain.AuthContext, id string) (*PlaceResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	var verr *ValidationError
	snap, seq, err := s.begin(ctx, id, seqOrder, func(sess *domain.Session) error {
		if err := editable(sess); err != nil {
			return err
		}
		if len(sess.Items) == 0 {
			return ErrEmptyCart
		}
		fields := ValidateShipping(sess.Shipping)
		sess.Errors = fields
		if len(fields) > 0 {
			verr = &ValidationError{Fields: fields}
			sess.Notice = NoticeInvalidForm
			return nil
		}
		sess.Submitting = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return nil, verr
	}

	// Once submitting, the outcome is recorded even if the caller goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()

	totals := Totals(snap)
	method := snap.PaymentMethod
	created, err := s.orders.Create(ctx, auth.Token, buildOrderRequest(snap, totals))
	if err == nil && (created == nil || created.ID == "") {
		err = errors.New("order created without id")
	}
	if err != nil {
		metrics.OrdersPlaced.WithLabelValues(string(method), "error").Inc()
		metrics.BackendErrors.WithLabelValues("create_order").Inc()
		span.RecordError(err)
		msg := userMessage(err, NoticeOrderFailed)
		s.logger.Warn("create order", zap.String("session_id", id), zap.Error(err))
		s.release(ctx, id, "", msg)
		return nil, &SubmitError{Message: msg, Err: err}
	}
	s.logger.Info("order created",
		zap.String("session_id", id),
		zap.String("order_id", created.ID),
		zap.String("payment_method", string(method)),
		zap.Int64("grand_total", totals.GrandTotal),
	)
	s.publish(ctx, snap, created, totals)

	if method == domain.PaymentEWallet {
		return s.redirectToPayment(ctx, auth, id, seq, created, totals)
	}
	return s.confirm(ctx, auth, snap, seq, created, totals)
}

func (s *Service) redirectToPayment(ctx context.Context, auth domain.AuthContext, id string, seq uint64, created *domain.CreatedOrder, totals domain.Totals) (*PlaceResult, error) {
	resp, err := s.payments.CreatePaymentURL(ctx, auth.Token, domain.PaymentRequest{
		OrderID:   created.ID,
		Amount:    totals.GrandTotal,
		OrderInfo: "Thanh toan don hang " + prefix(created.ID, 8),
		Language:  paymentLanguage,
	})
	if err == nil && (resp == nil || resp.Code != paymentOK || resp.PaymentURL == "") {
		code := ""
		if resp != nil {
			code = resp.Code
		}
		err = fmt.Errorf("payment gateway answered code %q", code)
	}
	if err != nil {
		metrics.OrdersPlaced.WithLabelValues(string(domain.PaymentEWallet), "payment_url_error").Inc()
		s.logger.Warn("create payment url",
			zap.String("session_id", id),
			zap.String("order_id", created.ID),
			zap.Error(err),
		)
		s.release(ctx, id, created.ID, NoticePaymentURLFailed)
		return nil, fmt.Errorf("%w: %w", ErrPaymentURL, err)
	}

	sess, err := s.finish(ctx, id, seqOrder, seq, func(sess *domain.Session) error {
		sess.Submitting = false
		sess.PendingOrderID = created.ID
		sess.State = domain.StateCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersPlaced.WithLabelValues(string(domain.PaymentEWallet), "redirect").Inc()
	return &PlaceResult{Session: sess, RedirectURL: resp.PaymentURL}, nil
}

func (s *Service) confirm(ctx context.Context, auth domain.AuthContext, snap *domain.Session, seq uint64, created *domain.CreatedOrder, totals domain.Totals) (*PlaceResult, error) {
	orderDate := created.CreatedAt
	if orderDate.IsZero() {
		orderDate = s.now()
	}
	conf := &domain.Confirmation{
		OrderID:        created.ID,
		OrderNumber:    OrderNumber(created.ID),
		Items:          snap.Items,
		ShippingInfo:   snap.Shipping,
		ShippingMethod: snap.ShippingMethod,
		PaymentMethod:  snap.PaymentMethod,
		Totals:         totals,
		Coupon:         snap.AppliedCoupon,
		OrderDate:      orderDate,
		Status:         created.Status,
		PaymentStatus:  created.PaymentStatus,
	}

	// The order exists at this point; a failed cleanup only leaves items in the cart.
	if snap.FromSharedCart {
		for _, item := range snap.Items {
			if err := s.cart.RemoveItem(ctx, auth.Token, item.ProductID); err != nil {
				metrics.BackendErrors.WithLabelValues("remove_cart_item").Inc()
				s.logger.Warn("remove purchased item from cart",
					zap.String("session_id", snap.ID),
					zap.String("product_id", item.ProductID),
					zap.Error(err),
				)
			}
		}
	}

	sess, err := s.finish(ctx, snap.ID, seqOrder, seq, func(sess *domain.Session) error {
		sess.Submitting = false
		sess.State = domain.StateCompleted
		sess.Confirmation = conf
		sess.AppliedCoupon = nil
		sess.CouponCode = ""
		sess.Errors = nil
		sess.Notice = NoticeOrderPlaced
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.OrdersPlaced.WithLabelValues(string(snap.PaymentMethod), "confirmed").Inc()
	return &PlaceResult{Session: sess, Confirmation: conf}, nil
}

// release clears the submitting flag after a failed submission.
func (s *Service) release(ctx context.Context, id, pendingOrderID, notice string) {
	_, err := s.mutate(ctx, id, func(sess *domain.Session) error {
		sess.Submitting = false
		if pendingOrderID != "" {
			sess.PendingOrderID = pendingOrderID
		}
		sess.Notice = notice
		return nil
	})
	if err != nil {
		s.logger.Error("release submitting session", zap.String("session_id", id), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, snap *domain.Session, created *domain.CreatedOrder, totals domain.Totals) {
	evt := events.OrderPlaced{
		SessionID:     snap.ID,
		OrderID:       created.ID,
		OrderNumber:   OrderNumber(created.ID),
		PaymentMethod: snap.PaymentMethod,
		Totals:        totals,
		Items:         orderItems(snap.Items),
		OccurredAt:    s.now(),
	}
	if snap.AppliedCoupon != nil {
		evt.CouponCode = snap.AppliedCoupon.Code
	}
	if err := s.events.PublishOrderPlaced(ctx, evt); err != nil {
		s.logger.Warn("publish order placed", zap.String("order_id", created.ID), zap.Error(err))
	}
}

func buildOrderRequest(sess *domain.Session, totals domain.Totals) domain.OrderRequest {
	info := sess.Shipping
	addr := map[string]string{
		"fullName": info.FullName,
		"phone":    info.Phone,
		"email":    info.Email,
		"address":  info.Address,
		"ward":     info.Ward,
		"district": info.District,
		"city":     info.City,
	}
	if strings.TrimSpace(info.Note) != "" {
		addr["note"] = info.Note
	}
	req := domain.OrderRequest{
		Items:           orderItems(sess.Items),
		ShippingFee:     totals.ShippingFee,
		ShippingAddress: addr,
		PaymentMethod:   sess.PaymentMethod.Wire(),
	}
	if sess.AppliedCoupon != nil && sess.AppliedCoupon.Code != "" {
		code := sess.AppliedCoupon.Code
		req.DiscountCode = &code
	}
	return req
}

func orderItems(items []domain.CartItem) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// OrderNumber is "ORD" plus the upper-cased first dash-separated segment of id.
func OrderNumber(id string) string {
	head, _, _ := strings.Cut(id, "-")
	return "ORD" + strings.ToUpper(head)
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// userMessage returns the server-provided message carried by err, if any.
func userMessage(err error, fallback string) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}
