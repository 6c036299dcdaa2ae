package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"settlement-service/internal/gateway"
	"settlement-service/internal/service"
	"settlement-service/internal/store"
	"settlement-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cancellationService *service.CancellationService
	settlementService   *service.SettlementService
	configCache         *service.ConfigCache
	store               *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cancellationService *service.CancellationService,
	settlementService *service.SettlementService,
	configCache *service.ConfigCache,
	st *store.Store,
) *Handler {
	return &Handler{
		cancellationService: cancellationService,
		settlementService:   settlementService,
		configCache:         configCache,
		store:               st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/cancellations", h.cancelOrder)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/settlements", h.settleOrders)
		v1.GET("/partners/:id/settlement-summary", h.settlementSummary)
		v1.POST("/commission-config/reload", h.reloadCommissionConfig)
		v1.POST("/gateway/webhook", h.gatewayWebhook)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// cancelOrder handles the inbound cancellation operation. Validation
// failures are 400, gateway or configuration failures 500; downstream
// persistence and notification failures do not change the response.
func (h *Handler) cancelOrder(c *gin.Context) {
	var req service.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	result, err := h.cancellationService.Cancel(c.Request.Context(), &req)
	if err != nil {
		h.writeCancelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"cancellation": result.Cancellation,
		"result":       result,
	})
}

// gatewayWebhook replays the local half of a cancellation the payment
// provider reports as completed (out-of-band reconciliation).
func (h *Handler) gatewayWebhook(c *gin.Context) {
	var req struct {
		PaymentID string `json:"payment_id" binding:"required"`
		Reason    string `json:"reason"`
		Amount    int64  `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid webhook body"})
		return
	}
	if req.Reason == "" {
		req.Reason = "gateway webhook reconciliation"
	}

	result, err := h.cancellationService.ReconcileGatewayCancellation(
		c.Request.Context(), req.PaymentID, req.Reason, req.Amount)
	if err != nil {
		h.writeCancelError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

func (h *Handler) writeCancelError(c *gin.Context, err error) {
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, store.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &gwErr):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": gwErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	agg, err := h.store.GetOrderAggregate(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":     agg.Order,
		"items":     agg.Items,
		"payments":  agg.Legs,
		"schedules": agg.Schedules,
	})
}

// settleOrders handles a settlement batch for one partner.
func (h *Handler) settleOrders(c *gin.Context) {
	var req struct {
		PartnerID int64   `json:"partner_id" binding:"required"`
		OrderIDs  []int64 `json:"order_ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.settlementService.Settle(c.Request.Context(), req.PartnerID, req.OrderIDs)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrIneligibleOrder) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": "Failed to settle orders", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// settlementSummary handles the partner settlement summary read side.
func (h *Handler) settlementSummary(c *gin.Context) {
	partnerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid partner ID"})
		return
	}

	from, err := parseDateQuery(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date, want YYYY-MM-DD"})
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date, want YYYY-MM-DD"})
		return
	}

	summary, err := h.settlementService.Summary(c.Request.Context(), partnerID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// reloadCommissionConfig handles the explicit commission schedule reload.
func (h *Handler) reloadCommissionConfig(c *gin.Context) {
	if err := h.configCache.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload commission config", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
}

func parseDateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if name == "to" {
		// Window is inclusive of the whole end day.
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
