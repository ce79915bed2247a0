package engine

import (
	"sort"
	"time"
)

// PlanDemand is one plan's absolute requirement for a single part
type PlanDemand struct {
	PlanID    int64     `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
	Quantity  int64     `json:"quantity"`
}

// HasPriority reports whether a is served before b: earlier start date first,
// then lower plan id.
func HasPriority(a, b PlanDemand) bool {
	da, db := Day(a.StartDate), Day(b.StartDate)
	if !da.Equal(db) {
		return da.Before(db)
	}
	return a.PlanID < b.PlanID
}

// SortByPriority orders demands first-come-first-served and drops zero demands.
func SortByPriority(demands []PlanDemand) []PlanDemand {
	ordered := make([]PlanDemand, 0, len(demands))
	for _, d := range demands {
		if d.Quantity != 0 {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return HasPriority(ordered[i], ordered[j])
	})
	return ordered
}

// PriorQuantity sums the demands that strictly precede target. The target does
// not have to be a member of demands.
func PriorQuantity(demands []PlanDemand, target PlanDemand) int64 {
	var total int64
	for _, d := range demands {
		if d.PlanID == target.PlanID {
			continue
		}
		if HasPriority(d, target) {
			total += d.Quantity
		}
	}
	return total
}

// DemandUntil sums the demands starting on or before date
func DemandUntil(demands []PlanDemand, date time.Time) int64 {
	limit := Day(date)
	var total int64
	for _, d := range demands {
		if !Day(d.StartDate).After(limit) {
			total += d.Quantity
		}
	}
	return total
}
