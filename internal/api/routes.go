package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/tradeflow-africa/matching-core/internal/ingestion"
	"github.com/tradeflow-africa/matching-core/internal/rates"
)

// APIHandler wires the HTTP surface to the engine's domain packages.
type APIHandler struct {
	ingestion *ingestion.Handler
	rates     *rates.Engine
	wsHub     *Hub
	startedAt time.Time
}

// NewAPIHandler wires an APIHandler from its collaborators.
func NewAPIHandler(ingestionHandler *ingestion.Handler, ratesEngine *rates.Engine, wsHub *Hub) *APIHandler {
	return &APIHandler{ingestion: ingestionHandler, rates: ratesEngine, wsHub: wsHub, startedAt: time.Now()}
}

// SetupRouter builds the gin engine: CORS on every route, rate limiting on
// the public surface, bearer auth on the operational rates endpoints.
func SetupRouter(h *APIHandler, authToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	limiter := NewRateLimiter(120, 30)

	router.GET("/health", h.handleHealth)
	router.GET("/stream", h.wsHub.Subscribe)

	public := router.Group("/")
	public.Use(limiter.Middleware())
	public.POST("/webhooks/providus", h.handleProvidusWebhook)

	protected := router.Group("/")
	protected.Use(limiter.Middleware())
	protected.Use(AuthMiddleware(authToken))
	protected.GET("/rates/current", h.handleRatesCurrent)
	protected.GET("/rates/quote", h.handleRatesQuote)

	return router
}

// corsMiddleware allows the operator dashboard to call the API from a
// different origin during local development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "operational",
		"service":   "matching-core",
		"uptime":    time.Since(h.startedAt).String(),
		"timestamp": time.Now().UTC(),
	})
}

// handleProvidusWebhook ingests an inbound bank payment notification.
// Signature verification is assumed to have happened upstream of this
// handler (at the load balancer or webhook gateway).
func (h *APIHandler) handleProvidusWebhook(c *gin.Context) {
	var payload ingestion.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload: " + err.Error()})
		return
	}

	result, err := h.ingestion.Handle(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, ingestion.ErrUnknownReference) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *APIHandler) handleRatesCurrent(c *gin.Context) {
	current, err := h.rates.GetRates(c.Request.Context())
	if err != nil {
		if errors.Is(err, rates.ErrCircuitBreakerOpen) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate feed temporarily suspended"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, current)
}

func (h *APIHandler) handleRatesQuote(c *gin.Context) {
	source := c.Query("source")
	target := c.Query("target")
	amountStr := c.Query("amount")

	amount, err := decimal.NewFromString(amountStr)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive decimal"})
		return
	}

	monthlyVolumeUSD := decimal.Zero
	if raw := c.Query("monthlyVolumeUSD"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil || v.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "monthlyVolumeUSD must be a non-negative decimal"})
			return
		}
		monthlyVolumeUSD = v
	}

	quote, err := h.rates.Quote(c.Request.Context(), source, target, amount, monthlyVolumeUSD)
	if err != nil {
		switch {
		case errors.Is(err, rates.ErrUnsupportedPair):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, rates.ErrCircuitBreakerOpen):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate feed temporarily suspended"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, quote)
}
