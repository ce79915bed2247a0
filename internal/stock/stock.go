// Package stock holds the rules for changing a part's on-hand quantity. Each
// rule returns a mutation that the store applies to the locked inventory row
// inside the transaction that also appends the ledger entry.
package stock

import (
	"strconv"

	"material-service/internal/apperr"
	"material-service/internal/models"
)

// Adjustment reason codes
const (
	ReasonDamage     = "DAMAGE"
	ReasonLoss       = "LOSS"
	ReasonFound      = "FOUND"
	ReasonCorrection = "CORRECTION"
	ReasonReturn     = "RETURN"
	ReasonOther      = "OTHER"
)

var reasons = map[string]bool{
	ReasonDamage:     true,
	ReasonLoss:       true,
	ReasonFound:      true,
	ReasonCorrection: true,
	ReasonReturn:     true,
	ReasonOther:      true,
}

// ValidReason reports whether code is a known adjustment reason
func ValidReason(code string) bool {
	return reasons[code]
}

// Reference ties a ledger entry to the document that caused it
type Reference struct {
	Type string
	ID   string
}

// ReceiptReference points at a scheduled receipt
func ReceiptReference(receiptID int64) Reference {
	return Reference{Type: models.ReferenceScheduledReceipt, ID: strconv.FormatInt(receiptID, 10)}
}

// PlanReference points at a production plan
func PlanReference(planID int64) Reference {
	return Reference{Type: models.ReferenceProductionPlan, ID: strconv.FormatInt(planID, 10)}
}

func entry(inv *models.Inventory, txType models.TransactionType, after int64, actor string, ref Reference) *models.StockTransaction {
	return &models.StockTransaction{
		PartCode:       inv.PartCode,
		Type:           txType,
		QuantityChange: after - inv.CurrentStock,
		StockBefore:    inv.CurrentStock,
		StockAfter:     after,
		ReferenceType:  ref.Type,
		ReferenceID:    ref.ID,
		Actor:          actor,
	}
}

// apply checks the invariants of the new level and moves inv to it
func apply(inv *models.Inventory, after int64) error {
	if after < 0 {
		return apperr.InsufficientStock("part %s: stock would drop to %d", inv.PartCode, after)
	}
	if after < inv.ReservedStock {
		return apperr.InsufficientStock("part %s: stock %d would fall below reserved %d",
			inv.PartCode, after, inv.ReservedStock)
	}
	inv.CurrentStock = after
	return nil
}

func positive(qty int64) error {
	if qty <= 0 {
		return apperr.InvalidInput("quantity must be positive, got %d", qty)
	}
	return nil
}

// Receive adds qty to stock
func Receive(qty int64, actor string, ref Reference) models.StockMutation {
	return func(inv *models.Inventory) (*models.StockTransaction, error) {
		if err := positive(qty); err != nil {
			return nil, err
		}
		tx := entry(inv, models.TransactionReceipt, inv.CurrentStock+qty, actor, ref)
		if err := apply(inv, tx.StockAfter); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// Issue removes qty from unreserved stock
func Issue(qty int64, actor string) models.StockMutation {
	return func(inv *models.Inventory) (*models.StockTransaction, error) {
		if err := positive(qty); err != nil {
			return nil, err
		}
		tx := entry(inv, models.TransactionIssue, inv.CurrentStock-qty, actor, Reference{})
		if err := apply(inv, tx.StockAfter); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// IssueForPlan removes qty from stock on behalf of a plan. The plan's own
// reservation on the part is consumed first, so the reserved floor only guards
// the other plans' claims.
func IssueForPlan(planID, qty int64, actor string) models.PlanStockMutation {
	return func(inv *models.Inventory, res *models.Reservation) (*models.StockTransaction, error) {
		if err := positive(qty); err != nil {
			return nil, err
		}
		consumed := qty
		if consumed > res.ReservedQuantity {
			consumed = res.ReservedQuantity
		}

		next := *inv
		next.ReservedStock -= consumed
		if next.ReservedStock < 0 {
			next.ReservedStock = 0
		}
		tx := entry(&next, models.TransactionIssue, next.CurrentStock-qty, actor, PlanReference(planID))
		if err := apply(&next, tx.StockAfter); err != nil {
			return nil, err
		}

		*inv = next
		res.ReservedQuantity -= consumed
		return tx, nil
	}
}

// Adjust changes stock by a signed delta for a recorded reason
func Adjust(delta int64, reasonCode, actor string) models.StockMutation {
	return func(inv *models.Inventory) (*models.StockTransaction, error) {
		if delta == 0 {
			return nil, apperr.InvalidInput("adjustment must be non-zero")
		}
		if !ValidReason(reasonCode) {
			return nil, apperr.InvalidInput("unknown reason code %q", reasonCode)
		}
		tx := entry(inv, models.TransactionAdjustment, inv.CurrentStock+delta, actor, Reference{})
		tx.ReasonCode = reasonCode
		if err := apply(inv, tx.StockAfter); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// Stocktake sets stock to a physically counted quantity. A count equal to the
// book quantity is still recorded.
func Stocktake(counted int64, actor string) models.StockMutation {
	return func(inv *models.Inventory) (*models.StockTransaction, error) {
		if counted < 0 {
			return nil, apperr.InvalidInput("counted quantity must not be negative, got %d", counted)
		}
		tx := entry(inv, models.TransactionStocktake, counted, actor, Reference{})
		if err := apply(inv, counted); err != nil {
			return nil, err
		}
		return tx, nil
	}
}

// Reserve sets a plan's reservation on a part to want, capped by the stock that
// other plans do not already hold. It returns the quantity now reserved.
func Reserve(inv *models.Inventory, res *models.Reservation, want int64) int64 {
	others := inv.ReservedStock - res.ReservedQuantity
	if others < 0 {
		others = 0
	}
	free := inv.CurrentStock - others
	if want > free {
		want = free
	}
	if want < 0 {
		want = 0
	}
	inv.ReservedStock = others + want
	res.ReservedQuantity = want
	return want
}

// Release drops a plan's reservation entirely
func Release(inv *models.Inventory, res *models.Reservation) {
	inv.ReservedStock -= res.ReservedQuantity
	if inv.ReservedStock < 0 {
		inv.ReservedStock = 0
	}
	res.ReservedQuantity = 0
}
