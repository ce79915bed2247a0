package engine

import (
	"time"

	"material-service/internal/apperr"
	"material-service/internal/models"

	"github.com/shopspring/decimal"
)

// Config tunes the derived figures
type Config struct {
	SafetyStockMultiplier int64
	Thresholds            AlertThresholds
}

// DefaultConfig returns the standard multipliers and alert thresholds
func DefaultConfig() Config {
	return Config{
		SafetyStockMultiplier: 2,
		Thresholds:            DefaultThresholds(),
	}
}

// Engine computes requirement figures from snapshots
type Engine struct {
	cfg Config
}

// New creates an engine
func New(cfg Config) *Engine {
	if cfg.SafetyStockMultiplier <= 0 {
		cfg.SafetyStockMultiplier = 2
	}
	if cfg.Thresholds == (AlertThresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Engine{cfg: cfg}
}

// Thresholds returns the alert thresholds in use
func (e *Engine) Thresholds() AlertThresholds {
	return e.cfg.Thresholds
}

// Requirement is the derived availability of one part for one plan
type Requirement struct {
	PlanID                      int64             `json:"plan_id"`
	ProductCode                 string            `json:"product_code"`
	PlanStatus                  models.PlanStatus `json:"plan_status"`
	StartDate                   time.Time         `json:"start_date"`
	PartCode                    string            `json:"part_code"`
	PartName                    string            `json:"part_name"`
	Supplier                    string            `json:"supplier"`
	LeadTimeDays                int               `json:"lead_time_days"`
	RequiredQuantity            int64             `json:"required_quantity"`
	CurrentStock                int64             `json:"current_stock"`
	PriorReservedQuantity       int64             `json:"prior_reserved_quantity"`
	ScheduledReceiptsUntilStart int64             `json:"scheduled_receipts_until_start"`
	AvailableStock              int64             `json:"available_stock"`
	ShortageQuantity            int64             `json:"shortage_quantity"`
	ProcurementDueDate          time.Time         `json:"procurement_due_date"`
}

// PlanRequirements computes one row per part used by the plan's product
func (e *Engine) PlanRequirements(s *Snapshot, planID int64) ([]Requirement, error) {
	plan, err := s.Plan(planID)
	if err != nil {
		return nil, err
	}
	lines, err := ResolveBom(plan.ProductCode, s.BomItems)
	if err != nil {
		return nil, err
	}
	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}
	return e.planRequirements(s, idx, plan, ExpandPlan(plan, lines)), nil
}

func (e *Engine) planRequirements(s *Snapshot, idx *demandIndex, plan models.ProductionPlan, required map[string]int64) []Requirement {
	rows := make([]Requirement, 0, len(required))
	for _, partCode := range sortedParts(required) {
		rows = append(rows, e.requirement(s, idx, plan, partCode, required[partCode]))
	}
	return rows
}

func (e *Engine) requirement(s *Snapshot, idx *demandIndex, plan models.ProductionPlan, partCode string, required int64) Requirement {
	part := s.Parts[partCode]
	target := PlanDemand{PlanID: plan.ID, StartDate: plan.StartDate, Quantity: required}

	avail := ComputeAvailability(
		s.CurrentStock(partCode),
		ScheduledReceiptsUntil(s.Receipts, partCode, plan.StartDate),
		PriorQuantity(idx.byPart[partCode], target),
	)

	return Requirement{
		PlanID:                      plan.ID,
		ProductCode:                 plan.ProductCode,
		PlanStatus:                  plan.Status,
		StartDate:                   Day(plan.StartDate),
		PartCode:                    partCode,
		PartName:                    part.Name,
		Supplier:                    part.Supplier,
		LeadTimeDays:                part.LeadTimeDays,
		RequiredQuantity:            required,
		CurrentStock:                avail.CurrentStock,
		PriorReservedQuantity:       avail.PriorReserved,
		ScheduledReceiptsUntilStart: avail.ScheduledReceipts,
		AvailableStock:              avail.AvailableStock,
		ShortageQuantity:            ShortageQuantity(required, avail.AvailableStock),
		ProcurementDueDate:          ProcurementDueDate(plan.StartDate, part.LeadTimeDays),
	}
}

// AllRequirements computes requirement rows for every active plan, ordered by
// plan priority then part code.
func (e *Engine) AllRequirements(s *Snapshot) ([]Requirement, error) {
	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}

	plans := make([]PlanDemand, 0, len(idx.expanded))
	byID := make(map[int64]models.ProductionPlan, len(s.Plans))
	for _, plan := range s.Plans {
		if _, ok := idx.expanded[plan.ID]; ok {
			plans = append(plans, PlanDemand{PlanID: plan.ID, StartDate: plan.StartDate, Quantity: 1})
			byID[plan.ID] = plan
		}
	}

	var rows []Requirement
	for _, p := range SortByPriority(plans) {
		plan := byID[p.PlanID]
		rows = append(rows, e.planRequirements(s, idx, plan, idx.expanded[plan.ID])...)
	}
	return rows, nil
}

// PartRequirements lists every active plan's requirement row for one part in
// priority order.
func (e *Engine) PartRequirements(s *Snapshot, partCode string) ([]Requirement, error) {
	if _, err := s.Part(partCode); err != nil {
		return nil, err
	}
	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}

	rows := make([]Requirement, 0, len(idx.byPart[partCode]))
	for _, d := range idx.byPart[partCode] {
		plan, err := s.Plan(d.PlanID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, e.requirement(s, idx, plan, partCode, d.Quantity))
	}
	return rows, nil
}

// Allocation is the quantity granted to one plan from a part's supply
type Allocation struct {
	PlanID           int64     `json:"plan_id"`
	StartDate        time.Time `json:"start_date"`
	RequiredQuantity int64     `json:"required_quantity"`
	AvailableStock   int64     `json:"available_stock"`
	GrantedQuantity  int64     `json:"granted_quantity"`
	ShortageQuantity int64     `json:"shortage_quantity"`
}

// PartAllocation is the first-come-first-served split of one part's supply
type PartAllocation struct {
	PartCode     string       `json:"part_code"`
	CurrentStock int64        `json:"current_stock"`
	Allocations  []Allocation `json:"allocations"`
	TotalGranted int64        `json:"total_granted"`
}

// AllocatePart grants each active plan what remains after higher priority plans
// have claimed their full requirement.
func (e *Engine) AllocatePart(s *Snapshot, partCode string) (*PartAllocation, error) {
	rows, err := e.PartRequirements(s, partCode)
	if err != nil {
		return nil, err
	}

	result := &PartAllocation{
		PartCode:     partCode,
		CurrentStock: s.CurrentStock(partCode),
		Allocations:  make([]Allocation, 0, len(rows)),
	}
	for _, row := range rows {
		granted := GrantedQuantity(row.RequiredQuantity, row.AvailableStock)
		result.Allocations = append(result.Allocations, Allocation{
			PlanID:           row.PlanID,
			StartDate:        row.StartDate,
			RequiredQuantity: row.RequiredQuantity,
			AvailableStock:   row.AvailableStock,
			GrantedQuantity:  granted,
			ShortageQuantity: row.ShortageQuantity,
		})
		result.TotalGranted += granted
	}
	return result, nil
}

// Stock health statuses
const (
	StockStatusOK       = "OK"
	StockStatusShortage = "SHORTAGE"
)

// PartAvailability is the safety-stock view of one part at a date
type PartAvailability struct {
	PartCode                 string          `json:"part_code"`
	AsOfDate                 time.Time       `json:"as_of_date"`
	CurrentStock             int64           `json:"current_stock"`
	ReservedStock            int64           `json:"reserved_stock"`
	ScheduledReceipts        int64           `json:"scheduled_receipts"`
	PlannedDemand            int64           `json:"planned_demand"`
	AvailableStock           int64           `json:"available_stock"`
	SafetyStock              int64           `json:"safety_stock"`
	Status                   string          `json:"status"`
	ShortageQuantity         int64           `json:"shortage_quantity"`
	RecommendedOrderQuantity int64           `json:"recommended_order_quantity"`
	RecommendedOrderCost     decimal.Decimal `json:"recommended_order_cost"`
}

// PartAvailability reports supply for a part as of a date against its safety
// stock. Demand counted is that of active plans starting on or before asOf.
func (e *Engine) PartAvailability(s *Snapshot, partCode string, asOf time.Time) (*PartAvailability, error) {
	part, err := s.Part(partCode)
	if err != nil {
		return nil, err
	}
	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}

	avail := ComputeAvailability(
		s.CurrentStock(partCode),
		ScheduledReceiptsUntil(s.Receipts, partCode, asOf),
		DemandUntil(idx.byPart[partCode], asOf),
	)

	status := StockStatusOK
	if avail.AvailableStock < part.SafetyStock {
		status = StockStatusShortage
	}
	reorder := SafetyStockReorderQuantity(part.SafetyStock, avail.AvailableStock, e.cfg.SafetyStockMultiplier)

	return &PartAvailability{
		PartCode:                 partCode,
		AsOfDate:                 Day(asOf),
		CurrentStock:             avail.CurrentStock,
		ReservedStock:            s.Inventory[partCode].ReservedStock,
		ScheduledReceipts:        avail.ScheduledReceipts,
		PlannedDemand:            avail.PriorReserved,
		AvailableStock:           avail.AvailableStock,
		SafetyStock:              part.SafetyStock,
		Status:                   status,
		ShortageQuantity:         ShortageQuantity(part.SafetyStock, avail.AvailableStock),
		RecommendedOrderQuantity: reorder,
		RecommendedOrderCost:     part.UnitPrice.Mul(decimal.NewFromInt(reorder)),
	}, nil
}

// SufficiencyRequest asks whether a quantity of a part can be met by a date
type SufficiencyRequest struct {
	PartCode         string `json:"part_code"`
	RequiredQuantity int64  `json:"required_quantity"`
}

// SufficiencyResult answers one SufficiencyRequest
type SufficiencyResult struct {
	PartCode         string `json:"part_code"`
	RequiredQuantity int64  `json:"required_quantity"`
	AvailableStock   int64  `json:"available_stock"`
	ShortageQuantity int64  `json:"shortage_quantity"`
	Sufficient       bool   `json:"sufficient"`
}

// CheckSufficiency evaluates a hypothetical demand on requiredDate behind every
// active plan starting on or before that date. Repeated parts are summed.
func (e *Engine) CheckSufficiency(s *Snapshot, reqs []SufficiencyRequest, requiredDate time.Time) ([]SufficiencyResult, error) {
	if len(reqs) == 0 {
		return nil, apperr.InvalidInput("at least one part is required")
	}

	order := make([]string, 0, len(reqs))
	totals := make(map[string]int64, len(reqs))
	for _, r := range reqs {
		if r.RequiredQuantity <= 0 {
			return nil, apperr.InvalidInput("required quantity for part %s must be positive, got %d",
				r.PartCode, r.RequiredQuantity)
		}
		if _, err := s.Part(r.PartCode); err != nil {
			return nil, err
		}
		if _, seen := totals[r.PartCode]; !seen {
			order = append(order, r.PartCode)
		}
		totals[r.PartCode] += r.RequiredQuantity
	}

	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}

	results := make([]SufficiencyResult, 0, len(order))
	for _, partCode := range order {
		avail := ComputeAvailability(
			s.CurrentStock(partCode),
			ScheduledReceiptsUntil(s.Receipts, partCode, requiredDate),
			DemandUntil(idx.byPart[partCode], requiredDate),
		)
		required := totals[partCode]
		shortage := ShortageQuantity(required, avail.AvailableStock)
		results = append(results, SufficiencyResult{
			PartCode:         partCode,
			RequiredQuantity: required,
			AvailableStock:   avail.AvailableStock,
			ShortageQuantity: shortage,
			Sufficient:       shortage == 0,
		})
	}
	return results, nil
}

// ReservationTargets is what a plan should hold of each of its parts from the
// stock already on hand: its requirement, less whatever higher priority plans
// claim first. Scheduled receipts are not counted since they cannot be reserved
// before they arrive.
func (e *Engine) ReservationTargets(s *Snapshot, planID int64) (map[string]int64, error) {
	plan, err := s.Plan(planID)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive() {
		return nil, apperr.InvalidStateTransition("plan %d is %s and cannot reserve stock", plan.ID, plan.Status)
	}
	lines, err := ResolveBom(plan.ProductCode, s.BomItems)
	if err != nil {
		return nil, err
	}
	idx, err := buildDemandIndex(s)
	if err != nil {
		return nil, err
	}

	targets := make(map[string]int64)
	for partCode, required := range ExpandPlan(plan, lines) {
		target := PlanDemand{PlanID: plan.ID, StartDate: plan.StartDate, Quantity: required}
		onHand := s.CurrentStock(partCode) - PriorQuantity(idx.byPart[partCode], target)
		targets[partCode] = GrantedQuantity(required, onHand)
	}
	return targets, nil
}
