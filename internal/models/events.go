package models

import "time"

// Event types
const (
	EventTypeStockChanged         = "STOCK_CHANGED"
	EventTypeReceiptCreated       = "RECEIPT_CREATED"
	EventTypeReceiptStatusChanged = "RECEIPT_STATUS_CHANGED"
	EventTypeReservationsUpdated  = "RESERVATIONS_UPDATED"
	EventTypePlanStatusChanged    = "PLAN_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Meta returns the common envelope of an event
func (e BaseEvent) Meta() BaseEvent {
	return e
}

// StockChangedEvent published after a committed stock mutation
type StockChangedEvent struct {
	BaseEvent
	PartCode       string          `json:"part_code"`
	TransactionID  int64           `json:"transaction_id"`
	Type           TransactionType `json:"type"`
	QuantityChange int64           `json:"quantity_change"`
	StockBefore    int64           `json:"stock_before"`
	StockAfter     int64           `json:"stock_after"`
	ReservedStock  int64           `json:"reserved_stock"`
	Actor          string          `json:"actor"`
}

// ReceiptCreatedEvent published when a purchase order is raised
type ReceiptCreatedEvent struct {
	BaseEvent
	ReceiptID     int64  `json:"receipt_id"`
	OrderNo       string `json:"order_no"`
	PartCode      string `json:"part_code"`
	OrderQuantity int64  `json:"order_quantity"`
}

// ReceiptStatusChangedEvent published after a receipt transition
type ReceiptStatusChangedEvent struct {
	BaseEvent
	ReceiptID int64         `json:"receipt_id"`
	OrderNo   string        `json:"order_no"`
	PartCode  string        `json:"part_code"`
	From      ReceiptStatus `json:"from"`
	To        ReceiptStatus `json:"to"`
	Actor     string        `json:"actor"`
}

// ReservationsUpdatedEvent published when a plan's reservations are replaced
type ReservationsUpdatedEvent struct {
	BaseEvent
	PlanID       int64            `json:"plan_id"`
	Reservations map[string]int64 `json:"reservations"`
}

// PlanStatusChangedEvent published after a plan status flip
type PlanStatusChangedEvent struct {
	BaseEvent
	PlanID int64      `json:"plan_id"`
	From   PlanStatus `json:"from"`
	To     PlanStatus `json:"to"`
	Actor  string     `json:"actor"`
}
