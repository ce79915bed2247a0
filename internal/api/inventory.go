package api

import (
	"context"
	"net/http"
	"strconv"

	"material-service/internal/apperr"
	"material-service/internal/models"
	"material-service/internal/service"

	"github.com/gin-gonic/gin"
)

const defaultLedgerLimit = 100

// getPart handles GET /parts/:code
func (h *Handler) getPart(c *gin.Context) {
	result, err := h.inventory.GetPart(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listLedger handles GET /parts/:code/ledger?limit=N; limit=0 returns everything
func (h *Handler) listLedger(c *gin.Context) {
	limit := defaultLedgerLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperr.InvalidInput("invalid limit %q", raw))
			return
		}
		limit = n
	}

	code := c.Param("code")
	entries, err := h.inventory.ListLedger(c.Request.Context(), code, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"part_code": code,
		"entries":   entries,
	})
}

// verifyLedger handles GET /parts/:code/ledger/verify
func (h *Handler) verifyLedger(c *gin.Context) {
	result, err := h.inventory.ReplayLedger(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// stockRequest is the body of every stock mutation. Quantity is the amount
// received or issued, the signed delta of an adjustment, or the counted
// quantity of a stocktake.
type stockRequest struct {
	Quantity   *int64 `json:"quantity" binding:"required"`
	PlanID     int64  `json:"plan_id"`
	ReasonCode string `json:"reason_code"`
}

type stockOperation func(ctx context.Context, code string, req *service.StockRequest) (*models.StockChange, error)

// mutateStock handles POST /parts/:code/{receive,issue,adjust,stocktake}
func (h *Handler) mutateStock(op stockOperation) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		change, err := op(c.Request.Context(), c.Param("code"), &service.StockRequest{
			Quantity:   *req.Quantity,
			PlanID:     req.PlanID,
			ReasonCode: req.ReasonCode,
			Actor:      actor(c),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, change)
	}
}
