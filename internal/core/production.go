package core

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FeasibilityLine is one ingredient's requirement versus availability for a
// planned batch. Quantities are in the ingredient's base unit.
type FeasibilityLine struct {
	IngredientID   int             `json:"ingredient_id"`
	IngredientCode string          `json:"ingredient_code"`
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	LineCost       decimal.Decimal `json:"line_cost"`
	Sufficient     bool            `json:"sufficient"`
}

// FeasibilityReport is the full plan for producing a batch of a finished
// item at one location: per-ingredient requirements priced at the current
// ledger averages, plus the resulting batch and per-unit cost.
type FeasibilityReport struct {
	FinishedItemID int               `json:"finished_item_id"`
	LocationID     int               `json:"location_id"`
	Quantity       decimal.Decimal   `json:"quantity"`
	Lines          []FeasibilityLine `json:"lines"`
	BatchCost      decimal.Decimal   `json:"batch_cost"`
	UnitCost       decimal.Decimal   `json:"unit_cost"`
	Feasible       bool              `json:"feasible"`
}

// PlanProduction computes the feasibility report for producing qty units of
// finished from bom, against the given ingredient catalog and ledger entries.
// Pure: it reads nothing and writes nothing, so a report is only as fresh as
// the entries passed in. Line order follows ingredient item ID.
func PlanProduction(finished InventoryItem, qty decimal.Decimal, bom []BOMLine,
	ingredients map[int]InventoryItem, entries map[int]LedgerEntry) (FeasibilityReport, error) {

	report := FeasibilityReport{
		FinishedItemID: finished.ID,
		Quantity:       qty,
		Feasible:       true,
	}
	if !finished.IsFinished {
		return report, NewValidationError("item", finished.Code, "item has no bill of materials")
	}
	if !qty.IsPositive() {
		return report, NewValidationError("production", finished.Code, "quantity must be positive")
	}
	if len(bom) == 0 {
		return report, NewValidationError("item", finished.Code, "bill of materials is empty")
	}

	lines := make([]BOMLine, len(bom))
	copy(lines, bom)
	sort.Slice(lines, func(i, j int) bool { return lines[i].IngredientItemID < lines[j].IngredientItemID })

	for _, bl := range lines {
		ing, ok := ingredients[bl.IngredientItemID]
		if !ok {
			return report, NewNotFoundError("item", fmt.Sprint(bl.IngredientItemID))
		}
		perUnit, err := ConvertQuantity(bl.QtyPerUnit, bl.Unit, ing.Unit, ing.ConversionFactor)
		if err != nil {
			return report, err
		}
		required := perUnit.Mul(qty)

		entry := entries[bl.IngredientItemID]
		line := FeasibilityLine{
			IngredientID:   ing.ID,
			IngredientCode: ing.Code,
			Required:       required,
			Available:      entry.Quantity,
			UnitCost:       entry.UnitCost,
			LineCost:       required.Mul(entry.UnitCost),
			Sufficient:     entry.Quantity.GreaterThanOrEqual(required),
		}
		if !line.Sufficient {
			report.Feasible = false
		}
		report.BatchCost = report.BatchCost.Add(line.LineCost)
		report.Lines = append(report.Lines, line)
	}
	report.UnitCost = report.BatchCost.Div(qty)
	return report, nil
}
