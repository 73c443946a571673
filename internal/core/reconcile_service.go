package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ReconcileScope narrows a reconciliation run to one item and/or location.
// The zero value replays everything.
type ReconcileScope struct {
	ItemID     *int
	LocationID *int
}

// DriftReport describes one entry whose stored state disagreed with the
// replayed history. Reported, not treated as a failure — the run itself is
// the correction.
type DriftReport struct {
	ItemID         int             `json:"item_id"`
	LocationID     int             `json:"location_id"`
	StoredQuantity decimal.Decimal `json:"stored_quantity"`
	StoredUnitCost decimal.Decimal `json:"stored_unit_cost"`
	ReplayQuantity decimal.Decimal `json:"replay_quantity"`
	ReplayUnitCost decimal.Decimal `json:"replay_unit_cost"`
}

// Err renders the drift as a ConsistencyError for callers that propagate it.
func (d DriftReport) Err() error {
	return NewConsistencyError("entry", fmt.Sprintf("%d/%d", d.ItemID, d.LocationID),
		fmt.Sprintf("stored %s@%s, replay %s@%s",
			d.StoredQuantity, d.StoredUnitCost, d.ReplayQuantity, d.ReplayUnitCost))
}

// ReconcileResult is the outcome of one run.
type ReconcileResult struct {
	Entries         []LedgerEntry `json:"entries"`
	Drift           []DriftReport `json:"drift,omitempty"`
	SkippedRequests []int         `json:"skipped_requests,omitempty"`
}

// ReconcileService rebuilds ledger state from history. The authoritative,
// idempotent ground truth: the required remedy whenever a revert could not
// guarantee exactness, and an on-demand maintenance operation.
type ReconcileService interface {
	Reconcile(ctx context.Context, scope ReconcileScope) (*ReconcileResult, error)
}

type reconcileService struct {
	pool *pgxpool.Pool
}

// NewReconcileService constructs a ReconcileService backed by PostgreSQL.
func NewReconcileService(pool *pgxpool.Pool) ReconcileService {
	return &reconcileService{pool: pool}
}

type entryKey struct {
	itemID     int
	locationID int
}

// replayEvent is one fold step. Purchase effects come from current request
// state, not from the RECEIPT/REVERT movement log: replaying a stale-cost
// revert row would reproduce the very drift this run exists to repair.
type replayEvent struct {
	key   entryKey
	at    time.Time
	seq   int // tiebreak within equal timestamps
	apply func(LedgerEntry) LedgerEntry
}

// Reconcile discards current state for the scoped (item, location) pairs and
// rebuilds it from a zero baseline: ledger-applied purchase requests in
// approval order, merged with committed production and adjustment movements
// in movement order. Deterministic ordering makes the run idempotent.
// Requests whose item was deleted are skipped with an audit note. Never calls
// approve or revert.
func (s *reconcileService) Reconcile(ctx context.Context, scope ReconcileScope) (*ReconcileResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result := &ReconcileResult{}

	events, err := s.loadRequestEvents(ctx, tx, scope, result)
	if err != nil {
		return nil, err
	}
	movementEvents, err := s.loadMovementEvents(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	events = append(events, movementEvents...)

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].at.Equal(events[j].at) {
			return events[i].at.Before(events[j].at)
		}
		return events[i].seq < events[j].seq
	})

	rebuilt := make(map[entryKey]LedgerEntry)
	for _, ev := range events {
		entry, ok := rebuilt[ev.key]
		if !ok {
			entry = LedgerEntry{
				ItemID:     ev.key.itemID,
				LocationID: ev.key.locationID,
				Quantity:   decimal.Zero,
				UnitCost:   decimal.Zero,
			}
		}
		rebuilt[ev.key] = ev.apply(entry)
	}

	// Lock current entries in scope so the rebuild serializes against
	// in-flight approvals, and so pairs with state but no history reset.
	current, err := s.lockCurrentEntries(ctx, tx, scope)
	if err != nil {
		return nil, err
	}
	for key := range current {
		if _, ok := rebuilt[key]; !ok {
			rebuilt[key] = LedgerEntry{
				ItemID:     key.itemID,
				LocationID: key.locationID,
				Quantity:   decimal.Zero,
				UnitCost:   decimal.Zero,
			}
		}
	}

	keys := make([]entryKey, 0, len(rebuilt))
	for key := range rebuilt {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].itemID != keys[j].itemID {
			return keys[i].itemID < keys[j].itemID
		}
		return keys[i].locationID < keys[j].locationID
	})

	for _, key := range keys {
		replayed := rebuilt[key]
		// The columns are NUMERIC(18,6); a full-precision replay of a
		// non-terminating average would never equal the stored value, so
		// compare and rewrite at storage precision.
		replayed.Quantity = replayed.Quantity.Round(6)
		replayed.UnitCost = replayed.UnitCost.Round(6)
		stored, existed := current[key]
		if existed && stored.Quantity.Equal(replayed.Quantity) && stored.UnitCost.Equal(replayed.UnitCost) {
			replayed.ID = stored.ID
			result.Entries = append(result.Entries, replayed)
			continue
		}

		if existed {
			result.Drift = append(result.Drift, DriftReport{
				ItemID:         key.itemID,
				LocationID:     key.locationID,
				StoredQuantity: stored.Quantity,
				StoredUnitCost: stored.UnitCost,
				ReplayQuantity: replayed.Quantity,
				ReplayUnitCost: replayed.UnitCost,
			})
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO ledger_entries (item_id, location_id, quantity, unit_cost)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (item_id, location_id)
			DO UPDATE SET quantity = EXCLUDED.quantity, unit_cost = EXCLUDED.unit_cost, updated_at = NOW()
			RETURNING id`,
			key.itemID, key.locationID, replayed.Quantity, replayed.UnitCost,
		).Scan(&replayed.ID); err != nil {
			return nil, fmt.Errorf("rewrite entry %d/%d: %w", key.itemID, key.locationID, err)
		}

		var beforeState any
		if existed {
			beforeState = stored
		}
		if _, err := appendAudit(ctx, tx, "ledger.reconcile", "entry",
			fmt.Sprintf("%d/%d", key.itemID, key.locationID),
			beforeState, replayed, "reconcile"); err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, replayed)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit reconciliation: %w", err), "entry", "")
	}
	return result, nil
}

// loadRequestEvents folds every ledger-applied request into the event stream,
// in approval order. Requests whose item has been deleted are collected on
// the result and audited, not failed.
func (s *reconcileService) loadRequestEvents(ctx context.Context, tx pgx.Tx, scope ReconcileScope, result *ReconcileResult) ([]replayEvent, error) {
	query := requestSelect + `
	WHERE r.status IN ('approved', 'edit_requested')
	  AND r.item_id IS NOT NULL AND r.location_id IS NOT NULL`
	args := []any{}
	if scope.ItemID != nil {
		args = append(args, *scope.ItemID)
		query += fmt.Sprintf(" AND r.item_id = $%d", len(args))
	}
	if scope.LocationID != nil {
		args = append(args, *scope.LocationID)
		query += fmt.Sprintf(" AND r.location_id = $%d", len(args))
	}
	query += " ORDER BY r.approved_at, r.id"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load approved requests: %w", err)
	}
	defer rows.Close()

	var requests []PurchaseRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approved request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved requests: %w", err)
	}

	var events []replayEvent
	for i, r := range requests {
		item, err := fetchItem(ctx, tx, *r.ItemID)
		if IsNotFound(err) {
			result.SkippedRequests = append(result.SkippedRequests, r.ID)
			if _, err := appendAudit(ctx, tx, "reconcile.skip_request", "request", fmt.Sprint(r.ID),
				r, map[string]string{"reason": "item no longer exists"}, "reconcile"); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if !item.TrackStock {
			continue
		}
		mv, err := movementForRequest(r, item)
		if err != nil {
			// A request that no longer converts (unit or factor changed
			// under it) is history the ledger cannot price; skip like a
			// deleted item rather than abort the whole rebuild.
			result.SkippedRequests = append(result.SkippedRequests, r.ID)
			if _, err := appendAudit(ctx, tx, "reconcile.skip_request", "request", fmt.Sprint(r.ID),
				r, map[string]string{"reason": err.Error()}, "reconcile"); err != nil {
				return nil, err
			}
			continue
		}
		at := r.CreatedAt
		if r.ApprovedAt != nil {
			at = *r.ApprovedAt
		}
		events = append(events, replayEvent{
			key: entryKey{itemID: item.ID, locationID: *r.LocationID},
			at:  at,
			seq: i,
			apply: func(e LedgerEntry) LedgerEntry {
				return ApplyMovement(e, mv)
			},
		})
	}
	return events, nil
}

// loadMovementEvents replays committed production and adjustment rows.
// Adjustments apply their quantity delta without blending; a recorded cost
// overwrites the average, mirroring the original adjustment.
func (s *reconcileService) loadMovementEvents(ctx context.Context, tx pgx.Tx, scope ReconcileScope) ([]replayEvent, error) {
	query := `
		SELECT id, item_id, location_id, kind, quantity, unit_cost, moved_at
		FROM stock_movements
		WHERE kind IN ('PRODUCTION_IN', 'PRODUCTION_OUT', 'ADJUSTMENT')`
	args := []any{}
	if scope.ItemID != nil {
		args = append(args, *scope.ItemID)
		query += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if scope.LocationID != nil {
		args = append(args, *scope.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	query += " ORDER BY moved_at, id"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load movement history: %w", err)
	}
	defer rows.Close()

	var events []replayEvent
	for rows.Next() {
		var m StockMovement
		var kind string
		if err := rows.Scan(&m.ID, &m.ItemID, &m.LocationID, &kind, &m.Quantity, &m.UnitCost, &m.MovedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Kind = MovementKind(kind)

		mv := m
		events = append(events, replayEvent{
			key: entryKey{itemID: m.ItemID, locationID: m.LocationID},
			at:  m.MovedAt,
			// movement ids are assigned after any same-instant request event
			seq: 1_000_000 + m.ID,
			apply: func(e LedgerEntry) LedgerEntry {
				if mv.Kind == MovementAdjustment {
					e.Quantity = e.Quantity.Add(mv.Quantity)
					if mv.UnitCost != nil {
						e.UnitCost = *mv.UnitCost
					}
					return e
				}
				return ApplyMovement(e, Movement{Quantity: mv.Quantity, UnitCost: zeroIfNil(mv.UnitCost)})
			},
		})
	}
	return events, rows.Err()
}

func (s *reconcileService) lockCurrentEntries(ctx context.Context, tx pgx.Tx, scope ReconcileScope) (map[entryKey]LedgerEntry, error) {
	query := `
		SELECT id, item_id, location_id, quantity, unit_cost, updated_at
		FROM ledger_entries WHERE true`
	args := []any{}
	if scope.ItemID != nil {
		args = append(args, *scope.ItemID)
		query += fmt.Sprintf(" AND item_id = $%d", len(args))
	}
	if scope.LocationID != nil {
		args = append(args, *scope.LocationID)
		query += fmt.Sprintf(" AND location_id = $%d", len(args))
	}
	query += " ORDER BY item_id, location_id FOR UPDATE"

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lock current entries: %w", err)
	}
	defer rows.Close()

	current := make(map[entryKey]LedgerEntry)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ItemID, &e.LocationID, &e.Quantity, &e.UnitCost, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan current entry: %w", err)
		}
		current[entryKey{itemID: e.ItemID, locationID: e.LocationID}] = e
	}
	return current, rows.Err()
}
