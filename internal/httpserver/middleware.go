package httpserver

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"checkout-service/internal/domain"
	"checkout-service/internal/logging"
	"checkout-service/internal/metrics"
)

type ctxKey string

const authCtxKey ctxKey = "auth"

// authMiddleware puts the caller's bearer token into the request context. A
// request without one is served as a guest.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := domain.AuthContext{Token: bearerToken(c.GetHeader("Authorization"))}
		ctx := context.WithValue(c.Request.Context(), authCtxKey, auth)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authFrom(c *gin.Context) domain.AuthContext {
	auth, _ := c.Request.Context().Value(authCtxKey).(domain.AuthContext)
	return auth
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

const requestIDHeader = "X-Request-ID"

// requestLogger tags the request context with a logger carrying the request id.
func requestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		ctx := logging.WithLogger(c.Request.Context(), base.With(zap.String("request_id", id)))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
