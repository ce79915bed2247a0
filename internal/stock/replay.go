package stock

import (
	"material-service/internal/apperr"
	"material-service/internal/models"
)

// Replay walks ledger entries in write order and returns the stock level they
// produce. It fails on the first entry that does not continue from the previous
// one or whose after-quantity disagrees with its change.
func Replay(entries []models.StockTransaction) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	level := entries[0].StockBefore
	for _, e := range entries {
		if e.StockBefore != level {
			return 0, apperr.Conflict("ledger entry %d starts at %d, expected %d", e.ID, e.StockBefore, level)
		}
		level += e.QuantityChange
		if e.StockAfter != level {
			return 0, apperr.Conflict("ledger entry %d ends at %d, expected %d", e.ID, e.StockAfter, level)
		}
	}
	return level, nil
}
