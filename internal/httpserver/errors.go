package httpserver

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"checkout-service/internal/backend"
	"checkout-service/internal/checkout"
	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
)

const msgNoItems = "Không có sản phẩm nào để thanh toán!"

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Session *sessionResponse  `json:"session,omitempty"`
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
}

// writeError maps service errors onto HTTP responses. sess, when non-nil, is
// the session state to return alongside the error.
func writeError(c *gin.Context, err error, sess *domain.Session) {
	status, body := classify(err)
	if sess != nil {
		resp := toSessionResponse(sess)
		body.Session = &resp
	}
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

func classify(err error) (int, errorResponse) {
	var (
		verr   *checkout.ValidationError
		rej    *checkout.CouponRejectedError
		serr   *checkout.SubmitError
		apiErr *backend.APIError
		urlErr *url.Error
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation_failed", Message: checkout.NoticeInvalidForm, Fields: verr.Fields}
	case errors.As(err, &rej):
		return http.StatusUnprocessableEntity, errorResponse{Error: "coupon_rejected", Message: rej.Message}
	case errors.As(err, &serr):
		return http.StatusBadGateway, errorResponse{Error: "order_failed", Message: serr.Message}
	case errors.Is(err, checkout.ErrPaymentURL):
		return http.StatusBadGateway, errorResponse{Error: "payment_url_failed", Message: checkout.NoticePaymentURLFailed}
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, checkout.ErrAddressNotFound):
		return http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()}
	case errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrStaleResponse),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrCompleted):
		return http.StatusConflict, errorResponse{Error: "conflict", Message: err.Error()}
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest, errorResponse{Error: "empty_cart", Message: msgNoItems}
	case errors.Is(err, checkout.ErrCouponCodeRequired):
		return http.StatusBadRequest, errorResponse{Error: "coupon_required", Message: checkout.NoticeCouponRequired}
	case errors.Is(err, checkout.ErrUnknownField), errors.Is(err, checkout.ErrInvalidMethod), errors.Is(err, checkout.ErrInvalidItem):
		return http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()}
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, errorResponse{Error: "upstream_error", Message: apiErr.UserMessage()}
	case errors.Is(err, backend.ErrMalformedResponse), errors.As(err, &urlErr):
		return http.StatusBadGateway, errorResponse{Error: "upstream_error"}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error"}
}
