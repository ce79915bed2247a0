package engine

import (
	"material-service/internal/apperr"
	"material-service/internal/models"
)

// Snapshot is a consistent read of everything the engine needs. It is loaded in
// one read transaction and never mutated by the engine.
type Snapshot struct {
	Parts     map[string]models.Part
	Inventory map[string]models.Inventory
	// Plans holds every active plan, plus the plan being asked about when it is not active.
	Plans    []models.ProductionPlan
	BomItems []models.BomItem
	Receipts []models.ScheduledReceipt
}

// NewSnapshot indexes the given rows by part code
func NewSnapshot(parts []models.Part, inventory []models.Inventory, plans []models.ProductionPlan,
	bomItems []models.BomItem, receipts []models.ScheduledReceipt) *Snapshot {
	s := &Snapshot{
		Parts:     make(map[string]models.Part, len(parts)),
		Inventory: make(map[string]models.Inventory, len(inventory)),
		Plans:     plans,
		BomItems:  bomItems,
		Receipts:  receipts,
	}
	for _, p := range parts {
		s.Parts[p.Code] = p
	}
	for _, inv := range inventory {
		s.Inventory[inv.PartCode] = inv
	}
	return s
}

// Plan looks up a plan by id
func (s *Snapshot) Plan(id int64) (models.ProductionPlan, error) {
	for _, p := range s.Plans {
		if p.ID == id {
			return p, nil
		}
	}
	return models.ProductionPlan{}, apperr.NotFound("production plan %d not found", id)
}

// Part looks up a part by code
func (s *Snapshot) Part(code string) (models.Part, error) {
	part, ok := s.Parts[code]
	if !ok {
		return models.Part{}, apperr.NotFound("part %s not found", code)
	}
	return part, nil
}

// CurrentStock returns the on-hand quantity of a part, zero without a ledger row
func (s *Snapshot) CurrentStock(code string) int64 {
	return s.Inventory[code].CurrentStock
}

// demandIndex holds, per part, every active plan's requirement in priority order
type demandIndex struct {
	byPart   map[string][]PlanDemand
	expanded map[int64]map[string]int64
}

func buildDemandIndex(s *Snapshot) (*demandIndex, error) {
	idx := &demandIndex{
		byPart:   make(map[string][]PlanDemand),
		expanded: make(map[int64]map[string]int64),
	}

	for _, plan := range s.Plans {
		if !plan.IsActive() {
			continue
		}
		lines, err := ResolveBom(plan.ProductCode, s.BomItems)
		if apperr.IsKind(err, apperr.KindNotFound) {
			// a plan without a BOM has no demand to compete with
			continue
		}
		if err != nil {
			return nil, err
		}
		required := ExpandPlan(plan, lines)
		idx.expanded[plan.ID] = required
		for part, qty := range required {
			idx.byPart[part] = append(idx.byPart[part], PlanDemand{
				PlanID:    plan.ID,
				StartDate: plan.StartDate,
				Quantity:  qty,
			})
		}
	}

	for part, demands := range idx.byPart {
		idx.byPart[part] = SortByPriority(demands)
	}
	return idx, nil
}
