package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ProductionResult is the outcome of a committed run: the order row, the
// plan it executed, and the finished item's entry after the output landed.
type ProductionResult struct {
	Order  *ProductionOrder   `json:"order"`
	Report *FeasibilityReport `json:"report"`
	Output *LedgerEntry       `json:"output"`
}

// ProductionService plans and commits manufacturing runs against the ledger.
type ProductionService interface {
	// Simulate prices a batch against live entries without writing anything.
	// An infeasible plan is a valid report, not an error.
	Simulate(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal) (*FeasibilityReport, error)

	// Commit re-checks feasibility under row locks and, if every ingredient
	// covers its requirement, consumes inputs and lands the output in one
	// transaction. An insufficient ingredient fails the whole run — the
	// consumption gate is the one place the engine refuses to drive stock
	// negative.
	Commit(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal, actor string) (*ProductionResult, error)
}

type productionService struct {
	pool *pgxpool.Pool
}

// NewProductionService constructs a ProductionService backed by PostgreSQL.
func NewProductionService(pool *pgxpool.Pool) ProductionService {
	return &productionService{pool: pool}
}

func (s *productionService) Simulate(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal) (*FeasibilityReport, error) {
	finished, err := fetchItemByCode(ctx, s.pool, finishedCode)
	if err != nil {
		return nil, err
	}
	loc, err := fetchLocationByCode(ctx, s.pool, locationCode)
	if err != nil {
		return nil, err
	}
	bom, ingredients, err := loadBOM(ctx, s.pool, finished.ID)
	if err != nil {
		return nil, err
	}

	entries := make(map[int]LedgerEntry, len(bom))
	for _, bl := range bom {
		var e LedgerEntry
		err := s.pool.QueryRow(ctx, `
			SELECT id, item_id, location_id, quantity, unit_cost, updated_at
			FROM ledger_entries WHERE item_id = $1 AND location_id = $2`,
			bl.IngredientItemID, loc.ID,
		).Scan(&e.ID, &e.ItemID, &e.LocationID, &e.Quantity, &e.UnitCost, &e.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // no entry yet reads as zero on hand
		}
		if err != nil {
			return nil, fmt.Errorf("read entry %d/%d: %w", bl.IngredientItemID, loc.ID, err)
		}
		entries[bl.IngredientItemID] = e
	}

	report, err := PlanProduction(finished, qty, bom, ingredients, entries)
	if err != nil {
		return nil, err
	}
	report.LocationID = loc.ID
	return &report, nil
}

func (s *productionService) Commit(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal, actor string) (*ProductionResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	finished, err := fetchItemByCode(ctx, tx, finishedCode)
	if err != nil {
		return nil, err
	}
	loc, err := fetchLocationByCode(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}
	bom, ingredients, err := loadBOM(ctx, tx, finished.ID)
	if err != nil {
		return nil, err
	}

	// Lock every ingredient entry before re-planning. loadBOM returns lines
	// ordered by ingredient ID, so concurrent commits lock in the same order.
	entries := make(map[int]LedgerEntry, len(bom))
	for _, bl := range bom {
		e, err := lockEntry(ctx, tx, bl.IngredientItemID, loc.ID)
		if err != nil {
			return nil, err
		}
		entries[bl.IngredientItemID] = e
	}

	report, err := PlanProduction(finished, qty, bom, ingredients, entries)
	if err != nil {
		return nil, err
	}
	report.LocationID = loc.ID
	if !report.Feasible {
		for _, line := range report.Lines {
			if !line.Sufficient {
				return nil, NewValidationError("production", finished.Code,
					fmt.Sprintf("insufficient %s: need %s, have %s",
						line.IngredientCode, line.Required, line.Available))
			}
		}
	}

	var order ProductionOrder
	if err := tx.QueryRow(ctx, `
		INSERT INTO production_orders (finished_item_id, location_id, quantity, batch_unit_cost, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		finished.ID, loc.ID, qty, report.UnitCost, actor,
	).Scan(&order.ID, &order.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert production order: %w", err)
	}
	order.FinishedItemID = finished.ID
	order.LocationID = loc.ID
	order.Quantity = qty
	order.BatchUnitCost = report.UnitCost
	order.CreatedBy = actor

	for _, line := range report.Lines {
		entry := entries[line.IngredientID]
		before := entry
		entry = ApplyMovement(entry, Movement{Quantity: line.Required.Neg(), UnitCost: line.UnitCost})
		if err := writeEntry(ctx, tx, entry); err != nil {
			return nil, err
		}
		cost := line.UnitCost
		if err := recordMovement(ctx, tx, StockMovement{
			ItemID:       line.IngredientID,
			LocationID:   loc.ID,
			Kind:         MovementProductionOut,
			Quantity:     line.Required.Neg(),
			UnitCost:     &cost,
			ProductionID: &order.ID,
			Notes:        fmt.Sprintf("consumed for %s × %s", finished.Code, qty),
		}); err != nil {
			return nil, err
		}
		if _, err := appendAudit(ctx, tx, "ledger.consume", "entry",
			fmt.Sprintf("%d/%d", line.IngredientID, loc.ID), before, entry, actor); err != nil {
			return nil, err
		}
	}

	outEntry, err := lockEntry(ctx, tx, finished.ID, loc.ID)
	if err != nil {
		return nil, err
	}
	beforeOut := outEntry
	outEntry = ApplyMovement(outEntry, Movement{Quantity: qty, UnitCost: report.UnitCost})
	if err := writeEntry(ctx, tx, outEntry); err != nil {
		return nil, err
	}
	unitCost := report.UnitCost
	if err := recordMovement(ctx, tx, StockMovement{
		ItemID:       finished.ID,
		LocationID:   loc.ID,
		Kind:         MovementProductionIn,
		Quantity:     qty,
		UnitCost:     &unitCost,
		ProductionID: &order.ID,
		Notes:        fmt.Sprintf("production of %s", finished.Code),
	}); err != nil {
		return nil, err
	}
	if _, err := appendAudit(ctx, tx, "ledger.produce", "entry",
		fmt.Sprintf("%d/%d", finished.ID, loc.ID), beforeOut, outEntry, actor); err != nil {
		return nil, err
	}
	if _, err := appendAudit(ctx, tx, "production.commit", "production",
		fmt.Sprint(order.ID), nil, order, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit production: %w", err), "production", fmt.Sprint(order.ID))
	}
	return &ProductionResult{Order: &order, Report: &report, Output: &outEntry}, nil
}

// loadBOM reads the finished item's bill of materials with its ingredient
// catalog, ordered by ingredient ID. A deactivated ingredient fails the load:
// a batch cannot consume an item that no longer exists.
func loadBOM(ctx context.Context, q querier, finishedItemID int) ([]BOMLine, map[int]InventoryItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, finished_item_id, ingredient_item_id, qty_per_unit, unit
		FROM bom_lines
		WHERE finished_item_id = $1
		ORDER BY ingredient_item_id`, finishedItemID)
	if err != nil {
		return nil, nil, fmt.Errorf("load bill of materials: %w", err)
	}
	defer rows.Close()

	var bom []BOMLine
	for rows.Next() {
		var bl BOMLine
		if err := rows.Scan(&bl.ID, &bl.FinishedItemID, &bl.IngredientItemID, &bl.QtyPerUnit, &bl.Unit); err != nil {
			return nil, nil, fmt.Errorf("scan bom line: %w", err)
		}
		bom = append(bom, bl)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate bom lines: %w", err)
	}

	ingredients := make(map[int]InventoryItem, len(bom))
	for _, bl := range bom {
		ing, err := fetchItem(ctx, q, bl.IngredientItemID)
		if err != nil {
			return nil, nil, err
		}
		ingredients[bl.IngredientItemID] = ing
	}
	return bom, ingredients, nil
}
