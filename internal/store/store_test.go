package store

import (
	"context"
	"os"
	"testing"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/models"
	"material-service/internal/sequence"
	"material-service/internal/service"
	"material-service/internal/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ service.Store = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}

	store, err := NewStore(url, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))
	_, err = store.GetDB().ExecContext(ctx, `
		TRUNCATE stock_transactions, plan_reservations, scheduled_receipts, inventory,
		         production_plans, bom_items, order_sequences, parts RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = store.GetDB().ExecContext(ctx, `
		INSERT INTO parts (code, name, lead_time_days, safety_stock, supplier, unit_price)
		VALUES ('X', 'Bracket', 3, 20, 'Acme', 5.00)`)
	require.NoError(t, err)
	return store
}

func TestMutateStock_RejectsBelowReserved(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.MutateStock(ctx, "X", stock.Receive(100, "tester", stock.Reference{}))
	require.NoError(t, err)

	_, err = store.GetDB().ExecContext(ctx, "UPDATE inventory SET reserved_stock = 60 WHERE part_code = 'X'")
	require.NoError(t, err)

	_, err = store.MutateStock(ctx, "X", stock.Stocktake(50, "tester"))
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	inv, err := store.GetInventory(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, int64(100), inv.CurrentStock)

	ledger, err := store.ListLedger(ctx, "X", 0)
	require.NoError(t, err)
	assert.Len(t, ledger, 1)
}

func TestCreateReceipt_OrderNumbers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	gen := sequence.New("PO")
	at := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)

	first := &models.ScheduledReceipt{PartCode: "X", OrderQuantity: 10, Status: models.ReceiptStatusAwaitingDeliveryDate}
	require.NoError(t, store.CreateReceipt(ctx, first, gen, at))
	second := &models.ScheduledReceipt{PartCode: "X", OrderQuantity: 10, Status: models.ReceiptStatusAwaitingDeliveryDate}
	require.NoError(t, store.CreateReceipt(ctx, second, gen, at))

	assert.Equal(t, "PO-20250105-0001", first.OrderNo)
	assert.Equal(t, "PO-20250105-0002", second.OrderNo)
	assert.NotZero(t, first.ID)
}

func TestLoadSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetDB().ExecContext(ctx, `
		INSERT INTO bom_items (product_code, station_code, part_code, quantity_per_unit) VALUES ('P-A', 'S1', 'X', 2);
		INSERT INTO production_plans (product_code, planned_quantity, start_date, status)
		VALUES ('P-A', 10, '2025-01-10', 'PLANNED'), ('P-A', 5, '2025-01-01', 'COMPLETED')`)
	require.NoError(t, err)

	snap, err := store.LoadSnapshot(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, snap.Plans, 1)
	assert.Len(t, snap.BomItems, 1)
	assert.Contains(t, snap.Parts, "X")

	snap, err = store.LoadSnapshot(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, snap.Plans, 2)
}
