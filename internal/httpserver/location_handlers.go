package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"checkout-service/internal/domain"
	"checkout-service/internal/pricing"
)

type locationHandlers struct {
	catalog LocationCatalog
}

func (h *locationHandlers) provinces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.catalog.Provinces()})
}

// Unknown parents yield an empty list, not a 404.
func (h *locationHandlers) districts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.catalog.Districts(c.Param("id"))})
}

func (h *locationHandlers) wards(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"results": h.catalog.Wards(c.Param("id"))})
}

// quoteHandler prices a basket without a session.
func quoteHandler(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	method := req.ShippingMethod
	if method == "" {
		method = domain.ShippingStandard
	}
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "unknown shipping method"})
		return
	}
	totals := pricing.Compute(req.Items, method, req.City, req.Coupon)
	c.JSON(http.StatusOK, quoteResponse{
		Totals:       totals,
		Display:      toDisplay(totals),
		ShippingFees: feesFor(req.City),
	})
}
