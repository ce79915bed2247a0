package stock

import (
	"testing"

	"material-service/internal/apperr"
	"material-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceive(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 10, ReservedStock: 5}

	tx, err := Receive(15, "alice", ReceiptReference(7))(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(25), inv.CurrentStock)
	assert.Equal(t, models.TransactionReceipt, tx.Type)
	assert.Equal(t, int64(10), tx.StockBefore)
	assert.Equal(t, int64(25), tx.StockAfter)
	assert.Equal(t, int64(15), tx.QuantityChange)
	assert.Equal(t, models.ReferenceScheduledReceipt, tx.ReferenceType)
	assert.Equal(t, "7", tx.ReferenceID)
	assert.Equal(t, "alice", tx.Actor)

	_, err = Receive(0, "alice", Reference{})(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestIssue_ReservedFloor(t *testing.T) {
	tests := []struct {
		name     string
		qty      int64
		wantKind apperr.Kind
		want     int64
	}{
		{"within free stock", 30, "", 70},
		{"down to reserved", 60, "", 40},
		{"below reserved", 61, apperr.KindInsufficientStock, 100},
		{"non-positive", -1, apperr.KindInvalidInput, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &models.Inventory{PartCode: "X", CurrentStock: 100, ReservedStock: 40}
			tx, err := Issue(tt.qty, "bob")(inv)
			if tt.wantKind != "" {
				assert.True(t, apperr.IsKind(err, tt.wantKind), "got %v", err)
				assert.Nil(t, tx)
			} else {
				require.NoError(t, err)
				assert.Equal(t, -tt.qty, tx.QuantityChange)
			}
			assert.Equal(t, tt.want, inv.CurrentStock)
		})
	}
}

func TestIssueForPlan_ConsumesOwnReservation(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 100, ReservedStock: 90}
	res := &models.Reservation{PlanID: 3, PartCode: "X", ReservedQuantity: 60}

	tx, err := IssueForPlan(3, 70, "carol")(inv, res)
	require.NoError(t, err)
	assert.Equal(t, int64(30), inv.CurrentStock)
	assert.Equal(t, int64(30), inv.ReservedStock)
	assert.Equal(t, int64(0), res.ReservedQuantity)
	assert.Equal(t, models.ReferenceProductionPlan, tx.ReferenceType)
	assert.Equal(t, "3", tx.ReferenceID)

	// only 30 reserved by others remain; taking 1 more than free stock fails unchanged
	res2 := &models.Reservation{PlanID: 4, PartCode: "X"}
	_, err = IssueForPlan(4, 1, "carol")(inv, res2)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	assert.Equal(t, int64(30), inv.CurrentStock)
	assert.Equal(t, int64(30), inv.ReservedStock)
}

func TestAdjust(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 20, ReservedStock: 10}

	tx, err := Adjust(-5, ReasonDamage, "dan")(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(15), inv.CurrentStock)
	assert.Equal(t, ReasonDamage, tx.ReasonCode)
	assert.Equal(t, models.TransactionAdjustment, tx.Type)

	_, err = Adjust(-6, ReasonLoss, "dan")(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	assert.Equal(t, int64(15), inv.CurrentStock)

	_, err = Adjust(3, "STOLEN", "dan")(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = Adjust(0, ReasonFound, "dan")(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestStocktake(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 50, ReservedStock: 20}

	tx, err := Stocktake(47, "erin")(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), tx.QuantityChange)
	assert.Equal(t, int64(47), inv.CurrentStock)

	tx, err = Stocktake(47, "erin")(inv)
	require.NoError(t, err)
	assert.Equal(t, int64(0), tx.QuantityChange)

	_, err = Stocktake(19, "erin")(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	_, err = Stocktake(-1, "erin")(inv)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestReplay_ReproducesFinalStock(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 12}
	mutations := []models.StockMutation{
		Receive(40, "a", ReceiptReference(1)),
		Issue(7, "a"),
		Adjust(-2, ReasonDamage, "a"),
		Stocktake(44, "a"),
		Receive(6, "a", ReceiptReference(2)),
	}

	var ledger []models.StockTransaction
	for i, m := range mutations {
		tx, err := m(inv)
		require.NoError(t, err)
		tx.ID = int64(i + 1)
		ledger = append(ledger, *tx)
	}

	got, err := Replay(ledger)
	require.NoError(t, err)
	assert.Equal(t, inv.CurrentStock, got)
	assert.Equal(t, int64(50), got)
}

func TestReplay_DetectsGap(t *testing.T) {
	ledger := []models.StockTransaction{
		{ID: 1, StockBefore: 0, QuantityChange: 10, StockAfter: 10},
		{ID: 2, StockBefore: 11, QuantityChange: -1, StockAfter: 10},
	}
	_, err := Replay(ledger)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	ledger[1] = models.StockTransaction{ID: 2, StockBefore: 10, QuantityChange: -1, StockAfter: 8}
	_, err = Replay(ledger)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))

	got, err := Replay(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}

func TestReserve_CapsAtFreeStock(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 100, ReservedStock: 70}
	res := &models.Reservation{PlanID: 1, PartCode: "X", ReservedQuantity: 20}

	// others hold 50, so at most 50 is free for this plan
	got := Reserve(inv, res, 60)
	assert.Equal(t, int64(50), got)
	assert.Equal(t, int64(100), inv.ReservedStock)
	assert.Equal(t, int64(50), res.ReservedQuantity)

	got = Reserve(inv, res, 10)
	assert.Equal(t, int64(10), got)
	assert.Equal(t, int64(60), inv.ReservedStock)

	Release(inv, res)
	assert.Equal(t, int64(50), inv.ReservedStock)
	assert.Equal(t, int64(0), res.ReservedQuantity)
}

func TestReserve_NeverNegative(t *testing.T) {
	inv := &models.Inventory{PartCode: "X", CurrentStock: 10, ReservedStock: 30}
	res := &models.Reservation{PlanID: 2, PartCode: "X"}

	assert.Equal(t, int64(0), Reserve(inv, res, 5))
	assert.Equal(t, int64(30), inv.ReservedStock)
	assert.LessOrEqual(t, res.ReservedQuantity, inv.CurrentStock)
}
