package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so read helpers can
// run inside or outside a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// lockEntry upserts the (item, location) ledger entry and takes its row lock.
// All mutating operations go through here, so two concurrent writers on the
// same entry serialize instead of losing an update.
func lockEntry(ctx context.Context, tx pgx.Tx, itemID, locationID int) (LedgerEntry, error) {
	var e LedgerEntry
	if _, err := tx.Exec(ctx, `
		INSERT INTO ledger_entries (item_id, location_id, quantity, unit_cost)
		VALUES ($1, $2, 0, 0)
		ON CONFLICT (item_id, location_id) DO NOTHING`,
		itemID, locationID,
	); err != nil {
		return e, fmt.Errorf("upsert ledger entry: %w", err)
	}
	if err := tx.QueryRow(ctx, `
		SELECT id, item_id, location_id, quantity, unit_cost, updated_at
		FROM ledger_entries
		WHERE item_id = $1 AND location_id = $2
		FOR UPDATE`,
		itemID, locationID,
	).Scan(&e.ID, &e.ItemID, &e.LocationID, &e.Quantity, &e.UnitCost, &e.UpdatedAt); err != nil {
		return e, fmt.Errorf("lock ledger entry: %w", err)
	}
	return e, nil
}

// writeEntry persists quantity/unit_cost for a locked entry. Only the costing
// path may call this — no other code writes these fields.
func writeEntry(ctx context.Context, tx pgx.Tx, e LedgerEntry) error {
	if _, err := tx.Exec(ctx, `
		UPDATE ledger_entries
		SET quantity = $1, unit_cost = $2, updated_at = NOW()
		WHERE id = $3`,
		e.Quantity, e.UnitCost, e.ID,
	); err != nil {
		return fmt.Errorf("write ledger entry %d: %w", e.ID, err)
	}
	return nil
}

// recordMovement appends one row to the movement log.
func recordMovement(ctx context.Context, tx pgx.Tx, m StockMovement) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (item_id, location_id, kind, quantity, unit_cost, request_id, production_id, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ItemID, m.LocationID, string(m.Kind), m.Quantity, m.UnitCost,
		m.RequestID, m.ProductionID, m.Notes,
	); err != nil {
		return fmt.Errorf("record %s movement: %w", m.Kind, err)
	}
	return nil
}

// appendAudit writes one append-only audit record inside the caller's
// transaction and returns it. before/after are marshaled snapshots; nil is
// stored as SQL NULL.
func appendAudit(ctx context.Context, tx pgx.Tx, action, entityKind, entityID string, before, after any, actor string) (AuditRecord, error) {
	rec := AuditRecord{
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		Actor:      actor,
	}
	var err error
	if before != nil {
		if rec.Before, err = json.Marshal(before); err != nil {
			return rec, fmt.Errorf("marshal audit before-state: %w", err)
		}
	}
	if after != nil {
		if rec.After, err = json.Marshal(after); err != nil {
			return rec, fmt.Errorf("marshal audit after-state: %w", err)
		}
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO audit_records (action, entity_kind, entity_id, before_state, after_state, actor)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		action, entityKind, entityID, rec.Before, rec.After, actor,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return rec, fmt.Errorf("append audit record: %w", err)
	}
	return rec, nil
}

const itemColumns = `id, code, name, unit, secondary_unit, conversion_factor,
       track_stock, is_finished, is_active, created_at`

func scanItem(row pgx.Row) (InventoryItem, error) {
	var it InventoryItem
	err := row.Scan(&it.ID, &it.Code, &it.Name, &it.Unit, &it.SecondaryUnit,
		&it.ConversionFactor, &it.TrackStock, &it.IsFinished, &it.IsActive, &it.CreatedAt)
	return it, err
}

// fetchItem resolves an active item by ID. Soft-deleted items read as not
// found — historical rows still reference them, live operations may not.
func fetchItem(ctx context.Context, q querier, itemID int) (InventoryItem, error) {
	it, err := scanItem(q.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1 AND is_active = true`, itemID))
	if errors.Is(err, pgx.ErrNoRows) {
		return it, NewNotFoundError("item", fmt.Sprint(itemID))
	}
	if err != nil {
		return it, fmt.Errorf("fetch item %d: %w", itemID, err)
	}
	return it, nil
}

// fetchItemByCode resolves an active item by its code.
func fetchItemByCode(ctx context.Context, q querier, code string) (InventoryItem, error) {
	it, err := scanItem(q.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE code = $1 AND is_active = true`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return it, NewNotFoundError("item", code)
	}
	if err != nil {
		return it, fmt.Errorf("fetch item %s: %w", code, err)
	}
	return it, nil
}

// fetchLocationByCode resolves a stock location by its code.
func fetchLocationByCode(ctx context.Context, q querier, code string) (StockLocation, error) {
	var loc StockLocation
	err := q.QueryRow(ctx,
		`SELECT id, code, name, created_at FROM stock_locations WHERE code = $1`, code,
	).Scan(&loc.ID, &loc.Code, &loc.Name, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return loc, NewNotFoundError("location", code)
	}
	if err != nil {
		return loc, fmt.Errorf("fetch location %s: %w", code, err)
	}
	return loc, nil
}

// movementForRequest derives the incoming ledger movement a request produces
// once approved: quantity normalized to the item's base unit, unit cost from
// the line total. cost/quantity gives unit cost.
func movementForRequest(req PurchaseRequest, item InventoryItem) (Movement, error) {
	baseQty, err := ConvertQuantity(req.Quantity, req.Unit, item.Unit, item.ConversionFactor)
	if err != nil {
		return Movement{}, err
	}
	if !baseQty.IsPositive() {
		return Movement{}, NewValidationError("request", fmt.Sprint(req.ID),
			"quantity must convert to a positive base amount")
	}
	return Movement{Quantity: baseQty, UnitCost: req.TotalCost.Div(baseQty)}, nil
}

// zeroIfNil is a small scan helper for nullable numeric columns.
func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
