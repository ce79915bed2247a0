package main

import (
	"time"

	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/store/memory"

	"github.com/shopspring/decimal"
)

// seedDemo loads a small assembly line into a memory store so a local run has
// something to compute: two products sharing parts, three plans in the next
// fortnight, and stock that covers the earliest plan only.
func seedDemo(st *memory.Store, now time.Time) error {
	today := engine.Day(now)

	parts := []models.Part{
		{Code: "BRK-100", Name: "Mounting bracket", LeadTimeDays: 5, SafetyStock: 50, Supplier: "Hanil Metal", UnitPrice: decimal.RequireFromString("1.25")},
		{Code: "SCR-M4", Name: "M4 screw", LeadTimeDays: 2, SafetyStock: 500, Supplier: "Daesung Fasteners", UnitPrice: decimal.RequireFromString("0.03")},
		{Code: "PCB-220", Name: "Controller board", LeadTimeDays: 14, SafetyStock: 20, Supplier: "Nexio Electronics", UnitPrice: decimal.RequireFromString("18.40")},
		{Code: "HSG-07", Name: "Plastic housing", LeadTimeDays: 7, SafetyStock: 30, Supplier: "Joil Plastics", UnitPrice: decimal.RequireFromString("2.10")},
	}
	for _, p := range parts {
		if err := st.AddPart(p); err != nil {
			return err
		}
	}

	bom := []models.BomItem{
		{ProductCode: "CTRL-A", StationCode: "ST10", PartCode: "PCB-220", QuantityPerUnit: 1},
		{ProductCode: "CTRL-A", StationCode: "ST20", PartCode: "HSG-07", QuantityPerUnit: 1},
		{ProductCode: "CTRL-A", StationCode: "ST20", PartCode: "SCR-M4", QuantityPerUnit: 4},
		{ProductCode: "CTRL-B", StationCode: "ST10", PartCode: "PCB-220", QuantityPerUnit: 2},
		{ProductCode: "CTRL-B", StationCode: "ST20", PartCode: "BRK-100", QuantityPerUnit: 2},
		{ProductCode: "CTRL-B", StationCode: "ST20", PartCode: "SCR-M4", QuantityPerUnit: 8},
	}
	for _, item := range bom {
		item.Active = true
		if _, err := st.AddBomItem(item); err != nil {
			return err
		}
	}

	plans := []models.ProductionPlan{
		{ProductCode: "CTRL-A", PlannedQuantity: 100, StartDate: engine.AddDays(today, 3)},
		{ProductCode: "CTRL-B", PlannedQuantity: 40, StartDate: engine.AddDays(today, 6)},
		{ProductCode: "CTRL-A", PlannedQuantity: 150, StartDate: engine.AddDays(today, 12)},
	}
	for _, p := range plans {
		if _, err := st.AddPlan(p); err != nil {
			return err
		}
	}

	stock := map[string]int64{"BRK-100": 60, "SCR-M4": 1200, "PCB-220": 130, "HSG-07": 180}
	for code, qty := range stock {
		if err := st.SetStock(code, qty); err != nil {
			return err
		}
	}
	return nil
}
