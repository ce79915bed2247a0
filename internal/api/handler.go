package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the use cases served over HTTP
type Services struct {
	Requirements *service.RequirementService
	Inventory    *service.InventoryService
	Receipts     *service.ReceiptService
	Plans        *service.PlanService
	Alerts       *service.AlertService
}

// Handler contains HTTP handlers
type Handler struct {
	requirements *service.RequirementService
	inventory    *service.InventoryService
	receipts     *service.ReceiptService
	plans        *service.PlanService
	alerts       *service.AlertService

	store          Pinger
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
}

// NewHandler creates a new HTTP handler. idempotency may be nil, in which case
// Idempotency-Key headers are ignored.
func NewHandler(svc Services, store Pinger, idempotency IdempotencyStore, idempotencyTTL time.Duration) *Handler {
	return &Handler{
		requirements:   svc.Requirements,
		inventory:      svc.Inventory,
		receipts:       svc.Receipts,
		plans:          svc.Plans,
		alerts:         svc.Alerts,
		store:          store,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(accessLogMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", identityMiddleware())
	mut := v1.Group("", requireRole(RoleMaterial), idempotencyMiddleware(h.idempotency, h.idempotencyTTL))
	{
		v1.GET("/products/:code/bom", h.getBom)

		v1.GET("/plans/:id", h.getPlan)
		v1.GET("/plans/:id/requirements", h.getPlanRequirements)
		v1.GET("/plans/:id/reservations", h.listReservations)
		mut.POST("/plans/:id/reservations", h.recordReservations)
		mut.POST("/plans/:id/status", h.transitionPlan)

		v1.GET("/parts/:code", h.getPart)
		v1.GET("/parts/:code/availability", h.getPartAvailability)
		v1.GET("/parts/:code/requirements", h.getPartRequirements)
		v1.GET("/parts/:code/allocation", h.getPartAllocation)
		v1.GET("/parts/:code/ledger", h.listLedger)
		v1.GET("/parts/:code/ledger/verify", h.verifyLedger)
		mut.POST("/parts/:code/receive", h.mutateStock(h.inventory.ReceiveStock))
		mut.POST("/parts/:code/issue", h.mutateStock(h.inventory.IssueStock))
		mut.POST("/parts/:code/adjust", h.mutateStock(h.inventory.AdjustStock))
		mut.POST("/parts/:code/stocktake", h.mutateStock(h.inventory.RecordStocktake))

		v1.POST("/sufficiency", h.checkSufficiency)
		v1.GET("/alerts", h.listAlerts)

		v1.GET("/receipts", h.listReceipts)
		v1.GET("/receipts/:id", h.getReceipt)
		mut.POST("/receipts", h.createReceipt)
		mut.POST("/receipts/:id/transition", h.transitionReceipt)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the store answers
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.store != nil {
		if err := h.store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"time":   time.Now().Unix(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, apperr.InvalidInput("invalid %s %q", name, c.Param(name)))
		return 0, false
	}
	return id, true
}
