package service

import (
	"context"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/util"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ReadStore is what the read-side services need
type ReadStore interface {
	SnapshotStore
	CatalogStore
}

// RequirementService answers requirement, availability and allocation queries
type RequirementService struct {
	store  ReadStore
	engine *engine.Engine
	clock  Clock
	logger *zap.Logger
}

// NewRequirementService creates a new requirement service
func NewRequirementService(store ReadStore, eng *engine.Engine, clock Clock) *RequirementService {
	return &RequirementService{
		store:  store,
		engine: eng,
		clock:  clock,
		logger: util.GetLogger(),
	}
}

// PlanRequirements is the requirement sheet of one plan
type PlanRequirements struct {
	PlanID        int64                `json:"plan_id"`
	ProductCode   string               `json:"product_code"`
	Status        models.PlanStatus    `json:"status"`
	StartDate     time.Time            `json:"start_date"`
	Requirements  []engine.Requirement `json:"requirements"`
	ShortageCount int                  `json:"shortage_count"`
}

// timed observes a computation's latency and counts it
func timed(operation string) func() {
	util.RequirementComputationsTotal.WithLabelValues(operation).Inc()
	timer := prometheus.NewTimer(util.RequirementComputationLatency.WithLabelValues(operation))
	return func() { timer.ObserveDuration() }
}

func countShortages(operation string, rows []engine.Requirement) int {
	n := 0
	for _, r := range rows {
		if r.ShortageQuantity > 0 {
			n++
		}
	}
	util.ShortagesFoundTotal.WithLabelValues(operation).Add(float64(n))
	return n
}

// ResolveBom returns a product's flattened BOM
func (s *RequirementService) ResolveBom(ctx context.Context, productCode string) ([]engine.BomLine, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.ResolveBom")
	defer span.End()

	items, err := s.store.ListBomItems(ctx, productCode)
	if err != nil {
		return nil, err
	}
	return engine.ResolveBom(productCode, items)
}

// ComputePlanRequirements computes one row per part used by the plan's product
func (s *RequirementService) ComputePlanRequirements(ctx context.Context, planID int64) (*PlanRequirements, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.ComputePlanRequirements", util.AttrPlanID.Int64(planID))
	defer span.End()
	defer timed("plan_requirements")()

	snap, err := s.store.LoadSnapshot(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan, err := snap.Plan(planID)
	if err != nil {
		return nil, err
	}
	rows, err := s.engine.PlanRequirements(snap, planID)
	if err != nil {
		return nil, err
	}

	result := &PlanRequirements{
		PlanID:        plan.ID,
		ProductCode:   plan.ProductCode,
		Status:        plan.Status,
		StartDate:     engine.Day(plan.StartDate),
		Requirements:  rows,
		ShortageCount: countShortages("plan_requirements", rows),
	}
	s.logger.Debug("Plan requirements computed",
		zap.Int64("plan_id", planID),
		zap.Int("parts", len(rows)),
		zap.Int("shortages", result.ShortageCount))
	return result, nil
}

// ComputePartAvailability reports a part's safety-stock health as of a date;
// nil asOf means today.
func (s *RequirementService) ComputePartAvailability(ctx context.Context, partCode string, asOf *time.Time) (*engine.PartAvailability, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.ComputePartAvailability", util.AttrPartCode.String(partCode))
	defer span.End()
	defer timed("part_availability")()

	date := s.clock.Today()
	if asOf != nil {
		date = engine.Day(*asOf)
	}

	snap, err := s.store.LoadSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	return s.engine.PartAvailability(snap, partCode, date)
}

// SufficiencyRequest asks whether a set of parts can be supplied by a date
type SufficiencyRequest struct {
	Parts        []engine.SufficiencyRequest `json:"parts"`
	RequiredDate time.Time                   `json:"required_date"`
}

// SufficiencyResponse answers a SufficiencyRequest
type SufficiencyResponse struct {
	RequiredDate  time.Time                  `json:"required_date"`
	AllSufficient bool                       `json:"all_sufficient"`
	Results       []engine.SufficiencyResult `json:"results"`
}

// CheckSufficiency evaluates a hypothetical demand against the current snapshot
func (s *RequirementService) CheckSufficiency(ctx context.Context, req *SufficiencyRequest) (*SufficiencyResponse, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.CheckSufficiency")
	defer span.End()
	defer timed("sufficiency")()

	if req.RequiredDate.IsZero() {
		return nil, apperr.InvalidInput("required_date is required")
	}

	snap, err := s.store.LoadSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	date := engine.Day(req.RequiredDate)
	results, err := s.engine.CheckSufficiency(snap, req.Parts, date)
	if err != nil {
		return nil, err
	}

	all := true
	for _, r := range results {
		all = all && r.Sufficient
	}
	return &SufficiencyResponse{RequiredDate: date, AllSufficient: all, Results: results}, nil
}

// PartRequirements lists each active plan's demand on one part in priority order
func (s *RequirementService) PartRequirements(ctx context.Context, partCode string) ([]engine.Requirement, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.PartRequirements")
	defer span.End()
	defer timed("part_requirements")()

	snap, err := s.store.LoadSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	rows, err := s.engine.PartRequirements(snap, partCode)
	if err != nil {
		return nil, err
	}
	countShortages("part_requirements", rows)
	return rows, nil
}

// AllocatePart splits a part's supply across active plans first-come-first-served
func (s *RequirementService) AllocatePart(ctx context.Context, partCode string) (*engine.PartAllocation, error) {
	ctx, span := util.StartSpan(ctx, "RequirementService.AllocatePart", util.AttrPartCode.String(partCode))
	defer span.End()
	defer timed("allocation")()

	snap, err := s.store.LoadSnapshot(ctx, 0)
	if err != nil {
		return nil, err
	}
	return s.engine.AllocatePart(snap, partCode)
}
