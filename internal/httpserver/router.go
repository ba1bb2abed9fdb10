package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"checkout-service/internal/checkout"
	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
)

// CheckoutService is the orchestrator surface the handlers drive.
type CheckoutService interface {
	Start(ctx context.Context, auth domain.AuthContext, in checkout.StartInput) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	ReloadAddresses(ctx context.Context, auth domain.AuthContext, id string) (*domain.Session, error)
	SelectSavedAddress(ctx context.Context, id string, addressID int64) (*domain.Session, error)
	StartEditing(ctx context.Context, id string) (*domain.Session, error)
	CancelEditing(ctx context.Context, id string) (*domain.Session, error)
	SaveAddress(ctx context.Context, id string) (*domain.Session, error)
	UpdateShippingField(ctx context.Context, id, field, value string) (*domain.Session, error)
	SetShippingMethod(ctx context.Context, id string, method domain.ShippingMethod) (*domain.Session, error)
	SetPaymentMethod(ctx context.Context, id string, method domain.PaymentMethod) (*domain.Session, error)
	ApplyCoupon(ctx context.Context, auth domain.AuthContext, id, code string) (*domain.Session, error)
	RemoveCoupon(ctx context.Context, id string) (*domain.Session, error)
	Validate(ctx context.Context, id string) (*domain.Session, bool, error)
	PlaceOrder(ctx context.Context, auth domain.AuthContext, id string) (*checkout.PlaceResult, error)
}

// LocationCatalog serves the dependent location dropdowns.
type LocationCatalog interface {
	Provinces() []domain.Province
	Districts(provinceID string) []domain.District
	Wards(districtID string) []domain.Ward
}

// Deps carries the services the router needs.
type Deps struct {
	Checkout    CheckoutService
	Locations   LocationCatalog
	CORSOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if deps.Checkout == nil || deps.Locations == nil {
		return nil, errors.New("checkout service and location catalog required")
	}
	logger = logging.OrNop(logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger).Writer()), gin.Recovery(), requestLogger(logger), metricsMiddleware())

	if len(deps.CORSOrigins) > 0 {
		corsCfg := cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if err := corsCfg.Validate(); err != nil {
			return nil, err
		}
		router.Use(cors.New(corsCfg))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	loc := &locationHandlers{catalog: deps.Locations}
	router.GET("/locations/provinces", loc.provinces)
	router.GET("/locations/provinces/:id/districts", loc.districts)
	router.GET("/locations/districts/:id/wards", loc.wards)

	router.POST("/pricing/quote", quoteHandler)

	h := &checkoutHandlers{svc: deps.Checkout}
	sessions := router.Group("/checkout/sessions", authMiddleware())
	sessions.POST("", h.start)
	sessions.GET("/:id", h.get)
	sessions.POST("/:id/addresses/reload", h.reloadAddresses)
	sessions.POST("/:id/addresses/:addressId/select", h.selectAddress)
	sessions.POST("/:id/edit", h.startEditing)
	sessions.POST("/:id/edit/cancel", h.cancelEditing)
	sessions.POST("/:id/edit/save", h.saveAddress)
	sessions.PATCH("/:id/shipping", h.updateShippingField)
	sessions.PUT("/:id/shipping-method", h.setShippingMethod)
	sessions.PUT("/:id/payment-method", h.setPaymentMethod)
	sessions.POST("/:id/coupon", h.applyCoupon)
	sessions.DELETE("/:id/coupon", h.removeCoupon)
	sessions.POST("/:id/validate", h.validate)
	sessions.POST("/:id/orders", h.placeOrder)

	return router, nil
}
