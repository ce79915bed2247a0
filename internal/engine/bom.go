// Package engine computes material requirements, availability, shortages and
// alerts as pure functions over an inventory snapshot.
package engine

import (
	"sort"

	"material-service/internal/apperr"
	"material-service/internal/models"
)

// BomLine is one resolved (station, part, quantity per unit) row of a product's BOM
type BomLine struct {
	StationCode     string `json:"station_code"`
	PartCode        string `json:"part_code"`
	QuantityPerUnit int64  `json:"quantity_per_unit"`
}

// ResolveBom returns the active BOM rows of productCode ordered by station then part.
func ResolveBom(productCode string, items []models.BomItem) ([]BomLine, error) {
	lines := make([]BomLine, 0)
	for _, item := range items {
		if item.ProductCode != productCode || !item.Active {
			continue
		}
		if item.QuantityPerUnit <= 0 {
			return nil, apperr.InvalidInput("bom item %d of product %s has non-positive quantity %d",
				item.ID, productCode, item.QuantityPerUnit)
		}
		lines = append(lines, BomLine{
			StationCode:     item.StationCode,
			PartCode:        item.PartCode,
			QuantityPerUnit: item.QuantityPerUnit,
		})
	}

	if len(lines) == 0 {
		return nil, apperr.NotFound("product %s has no active BOM", productCode)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].StationCode != lines[j].StationCode {
			return lines[i].StationCode < lines[j].StationCode
		}
		return lines[i].PartCode < lines[j].PartCode
	})
	return lines, nil
}

// ExpandPlan multiplies per-unit quantities by the plan quantity. A part used at
// several stations is summed into a single requirement.
func ExpandPlan(plan models.ProductionPlan, lines []BomLine) map[string]int64 {
	required := make(map[string]int64, len(lines))
	for _, line := range lines {
		required[line.PartCode] += line.QuantityPerUnit * plan.PlannedQuantity
	}
	return required
}

// sortedParts returns the keys of a requirement map in ascending order
func sortedParts(required map[string]int64) []string {
	parts := make([]string, 0, len(required))
	for part := range required {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	return parts
}
