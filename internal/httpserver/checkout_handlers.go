package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"checkout-service/internal/checkout"
	"checkout-service/internal/domain"
)

type checkoutHandlers struct {
	svc CheckoutService
}

func (h *checkoutHandlers) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	auth := authFrom(c)
	auth.Name = req.User.Name
	auth.Phone = req.User.Phone
	auth.Email = req.User.Email
	auth.Role = req.User.Role

	sess, err := h.svc.Start(c.Request.Context(), auth, checkout.StartInput{BuyNow: req.BuyNow, CartItems: req.CartItems})
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(sess))
}

func (h *checkoutHandlers) get(c *gin.Context) {
	h.respond(c)(h.svc.Get(c.Request.Context(), c.Param("id")))
}

func (h *checkoutHandlers) reloadAddresses(c *gin.Context) {
	h.respond(c)(h.svc.ReloadAddresses(c.Request.Context(), authFrom(c), c.Param("id")))
}

func (h *checkoutHandlers) selectAddress(c *gin.Context) {
	addressID, err := strconv.ParseInt(c.Param("addressId"), 10, 64)
	if err != nil {
		badRequest(c, errors.New("invalid address id"))
		return
	}
	h.respond(c)(h.svc.SelectSavedAddress(c.Request.Context(), c.Param("id"), addressID))
}

func (h *checkoutHandlers) startEditing(c *gin.Context) {
	h.respond(c)(h.svc.StartEditing(c.Request.Context(), c.Param("id")))
}

func (h *checkoutHandlers) cancelEditing(c *gin.Context) {
	h.respond(c)(h.svc.CancelEditing(c.Request.Context(), c.Param("id")))
}

func (h *checkoutHandlers) saveAddress(c *gin.Context) {
	sess, err := h.svc.SaveAddress(c.Request.Context(), c.Param("id"))
	if err != nil {
		// A rejected form comes back with the session carrying the field errors.
		writeError(c, err, sess)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(sess))
}

func (h *checkoutHandlers) updateShippingField(c *gin.Context) {
	var req fieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c)(h.svc.UpdateShippingField(c.Request.Context(), c.Param("id"), req.Field, req.Value))
}

func (h *checkoutHandlers) setShippingMethod(c *gin.Context) {
	var req methodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c)(h.svc.SetShippingMethod(c.Request.Context(), c.Param("id"), domain.ShippingMethod(req.Method)))
}

func (h *checkoutHandlers) setPaymentMethod(c *gin.Context) {
	var req methodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c)(h.svc.SetPaymentMethod(c.Request.Context(), c.Param("id"), domain.PaymentMethod(req.Method)))
}

func (h *checkoutHandlers) applyCoupon(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c)(h.svc.ApplyCoupon(c.Request.Context(), authFrom(c), c.Param("id"), req.Code))
}

func (h *checkoutHandlers) removeCoupon(c *gin.Context) {
	h.respond(c)(h.svc.RemoveCoupon(c.Request.Context(), c.Param("id")))
}

func (h *checkoutHandlers) validate(c *gin.Context) {
	sess, ok, err := h.svc.Validate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, validateResponse{Valid: ok, Session: toSessionResponse(sess)})
}

func (h *checkoutHandlers) placeOrder(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	res, err := h.svc.PlaceOrder(ctx, authFrom(c), id)
	if err != nil {
		// The stored session carries the notice and field errors of the failure.
		sess, getErr := h.svc.Get(ctx, id)
		if getErr != nil {
			sess = nil
		}
		writeError(c, err, sess)
		return
	}
	c.JSON(http.StatusCreated, placeOrderResponse{
		RedirectURL:  res.RedirectURL,
		Confirmation: res.Confirmation,
		Session:      toSessionResponse(res.Session),
	})
}

// respond writes the session returned by a service call, or its error.
func (h *checkoutHandlers) respond(c *gin.Context) func(*domain.Session, error) {
	return func(sess *domain.Session, err error) {
		if err != nil {
			writeError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, toSessionResponse(sess))
	}
}
