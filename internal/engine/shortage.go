package engine

import "time"

// ShortageQuantity is how much of required cannot be met from available. Never negative.
func ShortageQuantity(required, available int64) int64 {
	if shortage := required - available; shortage > 0 {
		return shortage
	}
	return 0
}

// ProcurementDueDate is the last day an order can be placed and still arrive by start
func ProcurementDueDate(start time.Time, leadTimeDays int) time.Time {
	return AddDays(start, -leadTimeDays)
}

// SafetyStockReorderQuantity tops a part back up to multiplier times its safety
// stock, independent of any plan.
func SafetyStockReorderQuantity(safetyStock, available, multiplier int64) int64 {
	if qty := safetyStock*multiplier - available; qty > 0 {
		return qty
	}
	return 0
}

// GrantedQuantity is the part of required that available stock can cover
func GrantedQuantity(required, available int64) int64 {
	switch {
	case available <= 0:
		return 0
	case available < required:
		return available
	default:
		return required
	}
}
