package engine

import (
	"time"

	"material-service/internal/models"
)

// Availability is the supply picture of one part at one need date
type Availability struct {
	CurrentStock      int64 `json:"current_stock"`
	ScheduledReceipts int64 `json:"scheduled_receipts"`
	PriorReserved     int64 `json:"prior_reserved"`
	AvailableStock    int64 `json:"available_stock"`
}

// ScheduledReceiptsUntil sums scheduled quantities of Scheduled receipts for the
// part that are due on or before needDate.
func ScheduledReceiptsUntil(receipts []models.ScheduledReceipt, partCode string, needDate time.Time) int64 {
	limit := Day(needDate)
	var total int64
	for _, r := range receipts {
		if r.PartCode != partCode || r.Status != models.ReceiptStatusScheduled {
			continue
		}
		if r.ScheduledDate == nil || r.ScheduledQuantity == nil {
			continue
		}
		if Day(*r.ScheduledDate).After(limit) {
			continue
		}
		total += *r.ScheduledQuantity
	}
	return total
}

// ComputeAvailability combines stock, incoming receipts and higher priority
// demand. The result may be negative when prior demand alone exceeds supply.
func ComputeAvailability(currentStock, scheduledReceipts, priorReserved int64) Availability {
	return Availability{
		CurrentStock:      currentStock,
		ScheduledReceipts: scheduledReceipts,
		PriorReserved:     priorReserved,
		AvailableStock:    currentStock + scheduledReceipts - priorReserved,
	}
}
