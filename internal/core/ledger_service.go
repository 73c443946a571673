package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockLevel is a read-model row: one ledger entry joined with its item and
// location for display.
type StockLevel struct {
	ItemID       int             `json:"item_id"`
	ItemCode     string          `json:"item_code"`
	ItemName     string          `json:"item_name"`
	Unit         string          `json:"unit"`
	LocationID   int             `json:"location_id"`
	LocationCode string          `json:"location_code"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Value        decimal.Decimal `json:"value"`
}

// AdjustResult is the outcome of a manual stock correction.
type AdjustResult struct {
	Entry LedgerEntry     `json:"entry"`
	Delta decimal.Decimal `json:"delta"`
	Audit AuditRecord     `json:"audit"`
}

// LedgerService exposes ledger reads and the manual adjustment path.
type LedgerService interface {
	// GetStockLevels lists entries, optionally filtered by location and/or
	// item code. Entries for deactivated items are excluded.
	GetStockLevels(ctx context.Context, locationCode, itemCode string) ([]StockLevel, error)

	// AdjustStock sets an entry's quantity to a counted value. The delta
	// bypasses cost blending entirely; unitCost, when non-nil, overwrites the
	// average. The correction lands as an ADJUSTMENT movement with the reason
	// on record.
	AdjustStock(ctx context.Context, itemCode, locationCode string, newCount decimal.Decimal,
		unitCost *decimal.Decimal, reason, actor string) (*AdjustResult, error)
}

type ledgerService struct {
	pool *pgxpool.Pool
}

// NewLedgerService constructs a LedgerService backed by PostgreSQL.
func NewLedgerService(pool *pgxpool.Pool) LedgerService {
	return &ledgerService{pool: pool}
}

func (s *ledgerService) GetStockLevels(ctx context.Context, locationCode, itemCode string) ([]StockLevel, error) {
	query := `
		SELECT i.id, i.code, i.name, i.unit, l.id, l.code, e.quantity, e.unit_cost
		FROM ledger_entries e
		JOIN items i ON i.id = e.item_id AND i.is_active = true
		JOIN stock_locations l ON l.id = e.location_id`
	args := []any{}
	if locationCode != "" {
		args = append(args, locationCode)
		query += fmt.Sprintf(" WHERE l.code = $%d", len(args))
	}
	if itemCode != "" {
		args = append(args, itemCode)
		if len(args) == 1 {
			query += " WHERE"
		} else {
			query += " AND"
		}
		query += fmt.Sprintf(" i.code = $%d", len(args))
	}
	query += " ORDER BY i.code, l.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var lv StockLevel
		if err := rows.Scan(&lv.ItemID, &lv.ItemCode, &lv.ItemName, &lv.Unit,
			&lv.LocationID, &lv.LocationCode, &lv.Quantity, &lv.UnitCost); err != nil {
			return nil, fmt.Errorf("scan stock level: %w", err)
		}
		lv.Value = lv.Quantity.Mul(lv.UnitCost)
		levels = append(levels, lv)
	}
	return levels, rows.Err()
}

func (s *ledgerService) AdjustStock(ctx context.Context, itemCode, locationCode string, newCount decimal.Decimal,
	unitCost *decimal.Decimal, reason, actor string) (*AdjustResult, error) {
	if reason == "" {
		return nil, NewValidationError("adjustment", itemCode, "a reason is required")
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, NewValidationError("adjustment", itemCode, "unit cost cannot be negative")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := fetchItemByCode(ctx, tx, itemCode)
	if err != nil {
		return nil, err
	}
	if !item.TrackStock {
		return nil, NewValidationError("adjustment", itemCode, "item does not track stock")
	}
	loc, err := fetchLocationByCode(ctx, tx, locationCode)
	if err != nil {
		return nil, err
	}

	entry, err := lockEntry(ctx, tx, item.ID, loc.ID)
	if err != nil {
		return nil, err
	}
	before := entry
	delta := newCount.Sub(entry.Quantity)

	entry.Quantity = newCount
	if unitCost != nil {
		entry.UnitCost = *unitCost
	}
	if err := writeEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := recordMovement(ctx, tx, StockMovement{
		ItemID:     item.ID,
		LocationID: loc.ID,
		Kind:       MovementAdjustment,
		Quantity:   delta,
		UnitCost:   unitCost,
		Notes:      reason,
	}); err != nil {
		return nil, err
	}
	audit, err := appendAudit(ctx, tx, "ledger.adjust", "entry",
		fmt.Sprintf("%d/%d", item.ID, loc.ID), before, entry, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit adjustment: %w", err), "entry", itemCode)
	}
	return &AdjustResult{Entry: entry, Delta: delta, Audit: audit}, nil
}
