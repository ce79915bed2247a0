package engine

import (
	"testing"

	"material-service/internal/apperr"
	"material-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    AlertCategory
		wantErr bool
	}{
		{"", CategoryAll, false},
		{"all", CategoryAll, false},
		{"overdue_procurement", CategoryOverdueProcurement, false},
		{"delayed_receipt", CategoryDelayedReceipt, false},
		{"impending_shortage", CategoryImpendingShortage, false},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverdueProcurement_Tiers(t *testing.T) {
	th := DefaultThresholds()
	reqs := []Requirement{
		{PlanID: 1, PartCode: "A", ShortageQuantity: 5, ProcurementDueDate: date("2025-01-01")},
		{PlanID: 2, PartCode: "B", ShortageQuantity: 5, ProcurementDueDate: date("2025-01-07")},
		{PlanID: 3, PartCode: "C", ShortageQuantity: 5, ProcurementDueDate: date("2025-01-10")},
		{PlanID: 4, PartCode: "D", ShortageQuantity: 0, ProcurementDueDate: date("2025-01-01")},
		{PlanID: 5, PartCode: "E", ShortageQuantity: 5, ProcurementDueDate: date("2025-01-03")},
	}

	b := OverdueProcurement(reqs, date("2025-01-10"), th)

	require.Len(t, b.Urgent, 2)
	assert.Equal(t, "A", b.Urgent[0].PartCode)
	assert.Equal(t, 9, b.Urgent[0].Days)
	assert.Equal(t, "E", b.Urgent[1].PartCode)
	require.Len(t, b.Warning, 1)
	assert.Equal(t, "B", b.Warning[0].PartCode)
	assert.Equal(t, 3, b.Warning[0].Days)
	assert.Equal(t, AlertSummary{Urgent: 2, Warning: 1, Total: 3}, b.Summary)
	assert.Equal(t, CategoryOverdueProcurement, b.Warning[0].Category)
}

func TestDelayedReceipts(t *testing.T) {
	th := DefaultThresholds()
	parts := map[string]models.Part{"X": {Code: "X", Name: "Bracket", Supplier: "Acme"}}
	receipts := []models.ScheduledReceipt{
		{ID: 1, OrderNo: "PO-1", PartCode: "X", Status: models.ReceiptStatusScheduled, ScheduledQuantity: ptr(int64(10)), ScheduledDate: ptr(date("2025-01-02"))},
		{ID: 2, OrderNo: "PO-2", PartCode: "X", Status: models.ReceiptStatusScheduled, ScheduledQuantity: ptr(int64(10)), ScheduledDate: ptr(date("2025-01-10"))},
		{ID: 3, OrderNo: "PO-3", PartCode: "X", Status: models.ReceiptStatusScheduled, ScheduledQuantity: ptr(int64(10)), ScheduledDate: ptr(date("2025-01-12"))},
		{ID: 4, OrderNo: "PO-4", PartCode: "X", Status: models.ReceiptStatusReceived, ScheduledQuantity: ptr(int64(10)), ScheduledDate: ptr(date("2025-01-01"))},
		{ID: 5, OrderNo: "PO-5", PartCode: "X", Status: models.ReceiptStatusAwaitingDeliveryDate},
	}

	b := DelayedReceipts(receipts, parts, date("2025-01-12"), th)

	require.Len(t, b.Urgent, 1)
	assert.Equal(t, "PO-1", b.Urgent[0].OrderNo)
	assert.Equal(t, 10, b.Urgent[0].Days)
	assert.Equal(t, "Acme", b.Urgent[0].Supplier)
	require.Len(t, b.Warning, 1)
	assert.Equal(t, int64(2), b.Warning[0].ReceiptID)
	assert.Equal(t, 2, b.Warning[0].Days)
}

func TestImpendingShortages_Window(t *testing.T) {
	th := DefaultThresholds()
	reqs := []Requirement{
		{PlanID: 1, PartCode: "A", ShortageQuantity: 5, StartDate: date("2025-01-01")},
		{PlanID: 2, PartCode: "A", ShortageQuantity: 5, StartDate: date("2025-01-08")},
		{PlanID: 3, PartCode: "A", ShortageQuantity: 5, StartDate: date("2025-01-09")},
		{PlanID: 4, PartCode: "A", ShortageQuantity: 5, StartDate: date("2025-01-15")},
		{PlanID: 5, PartCode: "A", ShortageQuantity: 5, StartDate: date("2025-01-16")},
		{PlanID: 6, PartCode: "A", ShortageQuantity: 5, StartDate: date("2024-12-31")},
		{PlanID: 7, PartCode: "A", ShortageQuantity: 0, StartDate: date("2025-01-02")},
	}

	b := ImpendingShortages(reqs, date("2025-01-01"), th)

	urgent := make([]int64, 0, len(b.Urgent))
	for _, a := range b.Urgent {
		urgent = append(urgent, a.PlanID)
	}
	warning := make([]int64, 0, len(b.Warning))
	for _, a := range b.Warning {
		warning = append(warning, a.PlanID)
	}
	assert.Equal(t, []int64{1, 2}, urgent)
	assert.Equal(t, []int64{3, 4}, warning)
	assert.Equal(t, 4, b.Summary.Total)
}

func TestEngineAlerts(t *testing.T) {
	e := New(DefaultConfig())
	s := twoPlanSnapshot()
	s.Receipts = []models.ScheduledReceipt{
		{ID: 9, OrderNo: "PO-20250101-0001", PartCode: "X", Status: models.ReceiptStatusScheduled,
			ScheduledQuantity: ptr(int64(5)), ScheduledDate: ptr(date("2025-01-20"))},
	}

	buckets, err := e.Alerts(s, CategoryAll, date("2025-01-01"))
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, CategoryOverdueProcurement, buckets[0].Category)
	assert.Equal(t, 0, buckets[0].Summary.Total)
	assert.Equal(t, 0, buckets[1].Summary.Total)

	// P1 starts 01-10 with a shortage of 30, nine days out
	impending := buckets[2]
	require.Len(t, impending.Warning, 1)
	assert.Equal(t, int64(1), impending.Warning[0].PlanID)
	assert.Equal(t, int64(30), impending.Warning[0].Quantity)

	buckets, err = e.Alerts(s, CategoryOverdueProcurement, date("2025-01-12"))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	require.Len(t, buckets[0].Warning, 1)
	assert.Equal(t, 5, buckets[0].Warning[0].Days)

	buckets, err = e.Alerts(s, CategoryDelayedReceipt, date("2025-01-28"))
	require.NoError(t, err)
	require.Len(t, buckets[0].Urgent, 1)
	assert.Equal(t, 8, buckets[0].Urgent[0].Days)
}
