package models

// PlanStatus is the lifecycle state of a production plan
type PlanStatus string

// Plan statuses
const (
	PlanStatusPlanned    PlanStatus = "PLANNED"
	PlanStatusInProgress PlanStatus = "IN_PROGRESS"
	PlanStatusCompleted  PlanStatus = "COMPLETED"
	PlanStatusCancelled  PlanStatus = "CANCELLED"
)

var planTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusPlanned:    {PlanStatusInProgress, PlanStatusCancelled},
	PlanStatusInProgress: {PlanStatusCompleted, PlanStatusCancelled},
}

// IsActive reports whether plans in this status compete for inventory
func (s PlanStatus) IsActive() bool {
	return s == PlanStatusPlanned || s == PlanStatusInProgress
}

// IsTerminal reports whether no further transition is possible
func (s PlanStatus) IsTerminal() bool {
	return s == PlanStatusCompleted || s == PlanStatusCancelled
}

// Valid reports whether s is a known plan status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusPlanned, PlanStatusInProgress, PlanStatusCompleted, PlanStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the plan may move from s to target
func (s PlanStatus) CanTransitionTo(target PlanStatus) bool {
	for _, next := range planTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ReceiptStatus is the lifecycle state of a scheduled receipt
type ReceiptStatus string

// Receipt statuses
const (
	ReceiptStatusAwaitingDeliveryDate ReceiptStatus = "AWAITING_DELIVERY_DATE"
	ReceiptStatusScheduled            ReceiptStatus = "SCHEDULED"
	ReceiptStatusReceived             ReceiptStatus = "RECEIVED"
	ReceiptStatusCancelled            ReceiptStatus = "CANCELLED"
)

// AwaitingDeliveryDate -> Scheduled -> Received, with Cancelled reachable from
// either open state.
var receiptTransitions = map[ReceiptStatus][]ReceiptStatus{
	ReceiptStatusAwaitingDeliveryDate: {ReceiptStatusScheduled, ReceiptStatusCancelled},
	ReceiptStatusScheduled:            {ReceiptStatusReceived, ReceiptStatusCancelled},
}

// Valid reports whether s is a known receipt status
func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptStatusAwaitingDeliveryDate, ReceiptStatusScheduled, ReceiptStatusReceived, ReceiptStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusReceived || s == ReceiptStatusCancelled
}

// CanTransitionTo reports whether the receipt may move from s to target
func (s ReceiptStatus) CanTransitionTo(target ReceiptStatus) bool {
	for _, next := range receiptTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}
