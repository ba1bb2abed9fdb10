package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts handled requests by route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// CouponAttempts counts coupon applications by result
	// ("applied", "not_found", "inactive", "not_started", "expired", "min_order", "error").
	CouponAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_coupon_attempts_total",
			Help: "Coupon apply attempts",
		},
		[]string{"result"},
	)

	// OrdersPlaced counts placed orders by payment method and result.
	OrdersPlaced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_orders_total",
			Help: "Order placement attempts",
		},
		[]string{"payment_method", "result"},
	)

	AddressResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_address_resolutions_total",
			Help: "Saved address resolutions by outcome",
		},
		[]string{"outcome"},
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_stale_responses_total",
			Help: "Collaborator responses discarded as stale",
		},
		[]string{"field"},
	)

	BackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_backend_errors_total",
			Help: "Failed calls to the shop backend",
		},
		[]string{"operation"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_events_published_total",
			Help: "Domain events written to the broker",
		},
		[]string{"topic", "status"},
	)
)
