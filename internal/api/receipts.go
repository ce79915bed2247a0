package api

import (
	"net/http"

	"material-service/internal/models"
	"material-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listReceipts handles GET /receipts?status=&part_code=
func (h *Handler) listReceipts(c *gin.Context) {
	receipts, err := h.receipts.ListReceipts(c.Request.Context(), models.ReceiptFilter{
		Status:   models.ReceiptStatus(c.Query("status")),
		PartCode: c.Query("part_code"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": receipts})
}

// getReceipt handles GET /receipts/:id
func (h *Handler) getReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	receipt, err := h.receipts.GetReceipt(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// createReceipt handles POST /receipts
func (h *Handler) createReceipt(c *gin.Context) {
	var req service.CreateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	req.Actor = actor(c)

	receipt, err := h.receipts.CreateReceipt(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

type receiptTransitionRequest struct {
	Status            string `json:"status" binding:"required"`
	ScheduledQuantity *int64 `json:"scheduled_quantity"`
	ScheduledDate     string `json:"scheduled_date"`
	ReceivedQuantity  *int64 `json:"received_quantity"`
	ReceivedDate      string `json:"received_date"`
	Remarks           string `json:"remarks"`
}

// transitionReceipt handles POST /receipts/:id/transition
func (h *Handler) transitionReceipt(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req receiptTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	scheduledDate, err := parseDate(req.ScheduledDate)
	if err != nil {
		respondError(c, err)
		return
	}
	receivedDate, err := parseDate(req.ReceivedDate)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.receipts.TransitionReceiptStatus(c.Request.Context(), id, &service.TransitionRequest{
		Target:            models.ReceiptStatus(req.Status),
		ScheduledQuantity: req.ScheduledQuantity,
		ScheduledDate:     scheduledDate,
		ReceivedQuantity:  req.ReceivedQuantity,
		ReceivedDate:      receivedDate,
		Remarks:           req.Remarks,
		Actor:             actor(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
