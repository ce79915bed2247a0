package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part represents a purchasable component
type Part struct {
	Code         string          `db:"code" json:"code"`
	Name         string          `db:"name" json:"name"`
	LeadTimeDays int             `db:"lead_time_days" json:"lead_time_days"`
	SafetyStock  int64           `db:"safety_stock" json:"safety_stock"`
	Supplier     string          `db:"supplier" json:"supplier"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unit_price"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

// BomItem is one part consumed by a product at a process station
type BomItem struct {
	ID              int64  `db:"id" json:"id"`
	ProductCode     string `db:"product_code" json:"product_code"`
	StationCode     string `db:"station_code" json:"station_code"`
	PartCode        string `db:"part_code" json:"part_code"`
	QuantityPerUnit int64  `db:"quantity_per_unit" json:"quantity_per_unit"`
	Active          bool   `db:"active" json:"active"`
}

// ProductionPlan represents a scheduled production run
type ProductionPlan struct {
	ID              int64      `db:"id" json:"id"`
	ProductCode     string     `db:"product_code" json:"product_code"`
	PlannedQuantity int64      `db:"planned_quantity" json:"planned_quantity"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	Status          PlanStatus `db:"status" json:"status"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the plan takes part in requirement computation
func (p ProductionPlan) IsActive() bool {
	return p.Status.IsActive()
}

// Reservation is a plan's recorded claim on a part
type Reservation struct {
	PlanID           int64     `db:"plan_id" json:"plan_id"`
	PartCode         string    `db:"part_code" json:"part_code"`
	ReservedQuantity int64     `db:"reserved_quantity" json:"reserved_quantity"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// ScheduledReceipt represents an open purchase order awaiting delivery
type ScheduledReceipt struct {
	ID                int64           `db:"id" json:"id"`
	OrderNo           string          `db:"order_no" json:"order_no"`
	PartCode          string          `db:"part_code" json:"part_code"`
	OrderQuantity     int64           `db:"order_quantity" json:"order_quantity"`
	OrderAmount       decimal.Decimal `db:"order_amount" json:"order_amount"`
	ScheduledQuantity *int64          `db:"scheduled_quantity" json:"scheduled_quantity,omitempty"`
	ScheduledDate     *time.Time      `db:"scheduled_date" json:"scheduled_date,omitempty"`
	ReceivedQuantity  *int64          `db:"received_quantity" json:"received_quantity,omitempty"`
	ReceivedDate      *time.Time      `db:"received_date" json:"received_date,omitempty"`
	Status            ReceiptStatus   `db:"status" json:"status"`
	Remarks           string          `db:"remarks" json:"remarks,omitempty"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Inventory represents the stock ledger head for a part
type Inventory struct {
	PartCode      string    `db:"part_code" json:"part_code"`
	CurrentStock  int64     `db:"current_stock" json:"current_stock"`
	ReservedStock int64     `db:"reserved_stock" json:"reserved_stock"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StockTransaction is an immutable ledger entry
type StockTransaction struct {
	ID             int64           `db:"id" json:"id"`
	PartCode       string          `db:"part_code" json:"part_code"`
	Type           TransactionType `db:"type" json:"type"`
	QuantityChange int64           `db:"quantity_change" json:"quantity_change"`
	StockBefore    int64           `db:"stock_before" json:"stock_before"`
	StockAfter     int64           `db:"stock_after" json:"stock_after"`
	ReasonCode     string          `db:"reason_code" json:"reason_code,omitempty"`
	ReferenceType  string          `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID    string          `db:"reference_id" json:"reference_id,omitempty"`
	Actor          string          `db:"actor" json:"actor"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// TransactionType classifies a stock ledger entry
type TransactionType string

// Transaction types
const (
	TransactionReceipt    TransactionType = "RECEIPT"
	TransactionIssue      TransactionType = "ISSUE"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
	TransactionStocktake  TransactionType = "STOCKTAKE"
)

// Ledger reference types
const (
	ReferenceScheduledReceipt = "SCHEDULED_RECEIPT"
	ReferenceProductionPlan   = "PRODUCTION_PLAN"
)

// StockMutation derives the new inventory state from the locked row and returns
// the ledger entry to append. Returning an error aborts the transaction.
type StockMutation func(inv *Inventory) (*StockTransaction, error)

// ReceiptMutation changes a locked receipt in place. A non-nil StockMutation is
// applied to the receipt's part inside the same transaction.
type ReceiptMutation func(r *ScheduledReceipt) (StockMutation, error)

// PlanStockMutation is a StockMutation that also sees the plan's reservation on
// the part. res is never nil; a zero ReservedQuantity means the plan holds none.
type PlanStockMutation func(inv *Inventory, res *Reservation) (*StockTransaction, error)

// StockChange is the committed result of a stock mutation
type StockChange struct {
	Inventory   Inventory        `json:"inventory"`
	Transaction StockTransaction `json:"transaction"`
}

// ReceiptFilter narrows a receipt listing; zero fields match everything
type ReceiptFilter struct {
	Status   ReceiptStatus
	PartCode string
}
