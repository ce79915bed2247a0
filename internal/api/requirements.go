package api

import (
	"net/http"

	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/service"

	"github.com/gin-gonic/gin"
)

// getBom handles GET /products/:code/bom
func (h *Handler) getBom(c *gin.Context) {
	code := c.Param("code")
	lines, err := h.requirements.ResolveBom(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product_code": code,
		"items":        lines,
	})
}

func (h *Handler) getPlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// getPlanRequirements handles GET /plans/:id/requirements
func (h *Handler) getPlanRequirements(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.requirements.ComputePlanRequirements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listReservations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	reservations, err := h.plans.ListReservations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":      id,
		"reservations": reservations,
	})
}

// recordReservations handles POST /plans/:id/reservations
func (h *Handler) recordReservations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	reservations, err := h.plans.RecordPlanReservations(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan_id":      id,
		"reservations": reservations,
	})
}

type planStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// transitionPlan handles POST /plans/:id/status
func (h *Handler) transitionPlan(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req planStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	result, err := h.plans.TransitionPlanStatus(c.Request.Context(), id, models.PlanStatus(req.Status), actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getPartAvailability handles GET /parts/:code/availability?as_of=YYYY-MM-DD
func (h *Handler) getPartAvailability(c *gin.Context) {
	asOf, err := parseDate(c.Query("as_of"))
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.requirements.ComputePartAvailability(c.Request.Context(), c.Param("code"), asOf)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// getPartRequirements handles GET /parts/:code/requirements
func (h *Handler) getPartRequirements(c *gin.Context) {
	code := c.Param("code")
	rows, err := h.requirements.PartRequirements(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"part_code":    code,
		"requirements": rows,
	})
}

// getPartAllocation handles GET /parts/:code/allocation
func (h *Handler) getPartAllocation(c *gin.Context) {
	result, err := h.requirements.AllocatePart(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type sufficiencyRequest struct {
	RequiredDate string                      `json:"required_date" binding:"required"`
	Parts        []engine.SufficiencyRequest `json:"parts" binding:"required"`
}

// checkSufficiency handles POST /sufficiency
func (h *Handler) checkSufficiency(c *gin.Context) {
	var req sufficiencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	date, err := parseDate(req.RequiredDate)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := h.requirements.CheckSufficiency(c.Request.Context(), &service.SufficiencyRequest{
		Parts:        req.Parts,
		RequiredDate: *date,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// listAlerts handles GET /alerts?category=
func (h *Handler) listAlerts(c *gin.Context) {
	report, err := h.alerts.ListAlerts(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
