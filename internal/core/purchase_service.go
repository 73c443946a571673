package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurchaseService owns batch submission, order/line reads, the edit flow, and
// the secure-delete path. Ledger effects of edits and deletes go through the
// same revert used by the approval engine.
type PurchaseService interface {
	// SubmitBatch creates a PurchaseOrder with pending PurchaseRequests.
	// Every draft is validated before anything is inserted — a bad line
	// rejects the whole submission.
	SubmitBatch(ctx context.Context, header OrderHeader, drafts []RequestDraft) (*PurchaseOrder, error)

	// GetOrder returns an order with its lines and derived aggregate status.
	GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error)

	// ListOrders returns all orders, newest first, with derived statuses.
	ListOrders(ctx context.Context) ([]PurchaseOrder, error)

	// GetRequest returns a single line item.
	GetRequest(ctx context.Context, requestID int) (*PurchaseRequest, error)

	// RequestEdit flags an approved line for editing. No ledger effect.
	RequestEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error)

	// DenyEdit returns an edit_requested line to approved. No ledger effect.
	DenyEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error)

	// ApproveEdit grants an edit request and reverts the line's ledger
	// effect, so the line can be changed and re-approved.
	ApproveEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error)

	// UpdateRequest replaces an edit_approved line's fields and returns it
	// to pending.
	UpdateRequest(ctx context.Context, requestID int, draft RequestDraft, actor string) (*PurchaseRequest, error)

	// RequestOrderEdit / ApproveOrderEdit run the edit flow at order level.
	// Approving an order edit reverts every ledger-applied line to pending.
	RequestOrderEdit(ctx context.Context, orderID int, actor string) (*PurchaseOrder, error)
	ApproveOrderEdit(ctx context.Context, orderID int, actor string) (*PurchaseOrder, error)

	// SecureDeleteOrder reverts any ledger-applied lines, then physically
	// deletes the order and its lines. The only removal path.
	SecureDeleteOrder(ctx context.Context, orderID int, actor string) error
}

type purchaseService struct {
	pool *pgxpool.Pool
}

// NewPurchaseService constructs a PurchaseService backed by PostgreSQL.
func NewPurchaseService(pool *pgxpool.Pool) PurchaseService {
	return &purchaseService{pool: pool}
}

type resolvedDraft struct {
	itemID     *int
	itemName   string
	locationID *int
}

// resolveDraft validates a draft and resolves its references. Runs before any
// insert so a malformed line never leaves partial state.
func resolveDraft(ctx context.Context, q querier, idx int, draft RequestDraft) (resolvedDraft, error) {
	line := fmt.Sprintf("line %d", idx+1)
	var rd resolvedDraft

	if !draft.Quantity.IsPositive() {
		return rd, NewValidationError("request", line, "quantity must be positive")
	}
	if draft.TotalCost.IsNegative() {
		return rd, NewValidationError("request", line, "total cost cannot be negative")
	}
	if draft.Unit == "" {
		return rd, NewValidationError("request", line, "unit is required")
	}

	if draft.ItemCode != "" {
		item, err := fetchItemByCode(ctx, q, draft.ItemCode)
		if err != nil {
			return rd, err
		}
		if item.IsFinished {
			return rd, NewValidationError("item", item.Code, "finished products are produced, not purchased")
		}
		rd.itemID = &item.ID
		rd.itemName = item.Name
		if item.TrackStock {
			if draft.LocationCode == "" {
				return rd, NewValidationError("request", line, "missing destination location")
			}
			// Check the unit converts before the line can ever reach approval.
			if _, err := ConvertQuantity(draft.Quantity, draft.Unit, item.Unit, item.ConversionFactor); err != nil {
				return rd, err
			}
		}
	} else {
		if draft.ItemName == "" {
			return rd, NewValidationError("request", line, "item code or free-text name is required")
		}
		rd.itemName = draft.ItemName
	}

	if draft.LocationCode != "" {
		loc, err := fetchLocationByCode(ctx, q, draft.LocationCode)
		if err != nil {
			return rd, err
		}
		rd.locationID = &loc.ID
	}
	return rd, nil
}

func (s *purchaseService) SubmitBatch(ctx context.Context, header OrderHeader, drafts []RequestDraft) (*PurchaseOrder, error) {
	if len(drafts) == 0 {
		return nil, NewValidationError("order", "", "batch must have at least one line")
	}
	if header.Nickname == "" {
		return nil, NewValidationError("order", "", "nickname is required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierID *int
	if header.SupplierCode != "" {
		var id int
		err := tx.QueryRow(ctx,
			"SELECT id FROM suppliers WHERE code = $1 AND is_active = true",
			header.SupplierCode,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NewNotFoundError("supplier", header.SupplierCode)
		}
		if err != nil {
			return nil, fmt.Errorf("resolve supplier %s: %w", header.SupplierCode, err)
		}
		supplierID = &id
	}

	resolved := make([]resolvedDraft, len(drafts))
	for i, d := range drafts {
		if resolved[i], err = resolveDraft(ctx, tx, i, d); err != nil {
			return nil, err
		}
	}

	var orderID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (nickname, supplier_id, created_by, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING id`,
		header.Nickname, supplierID, header.CreatedBy,
	).Scan(&orderID); err != nil {
		return nil, fmt.Errorf("insert purchase order: %w", err)
	}

	for i, rd := range resolved {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_requests (order_id, item_id, item_name, quantity, unit, total_cost, location_id, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')`,
			orderID, rd.itemID, rd.itemName,
			drafts[i].Quantity, drafts[i].Unit, drafts[i].TotalCost, rd.locationID,
		); err != nil {
			return nil, fmt.Errorf("insert request line %d: %w", i+1, err)
		}
	}

	if _, err := appendAudit(ctx, tx, "order.submit", "order", fmt.Sprint(orderID),
		nil, header, header.CreatedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit batch submission: %w", err), "order", "")
	}
	return s.GetOrder(ctx, orderID)
}

const requestSelect = `
	SELECT r.id, r.order_id, r.item_id, i.code, r.item_name, r.quantity, r.unit,
	       r.total_cost, r.location_id, r.status, r.approved_by, r.approved_at, r.created_at
	FROM purchase_requests r
	LEFT JOIN items i ON i.id = r.item_id`

func scanRequest(row pgx.Row) (PurchaseRequest, error) {
	var r PurchaseRequest
	var status string
	err := row.Scan(&r.ID, &r.OrderID, &r.ItemID, &r.ItemCode, &r.ItemName,
		&r.Quantity, &r.Unit, &r.TotalCost, &r.LocationID, &status,
		&r.ApprovedBy, &r.ApprovedAt, &r.CreatedAt)
	r.Status = RequestStatus(status)
	return r, err
}

// lockRequest loads a line item and takes its row lock.
func lockRequest(ctx context.Context, tx pgx.Tx, requestID int) (PurchaseRequest, error) {
	r, err := scanRequest(tx.QueryRow(ctx,
		requestSelect+` WHERE r.id = $1 FOR UPDATE OF r`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return r, NewNotFoundError("request", fmt.Sprint(requestID))
	}
	if err != nil {
		return r, fmt.Errorf("lock request %d: %w", requestID, err)
	}
	return r, nil
}

func (s *purchaseService) GetRequest(ctx context.Context, requestID int) (*PurchaseRequest, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewNotFoundError("request", fmt.Sprint(requestID))
	}
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", requestID, err)
	}
	return &r, nil
}

func (s *purchaseService) GetOrder(ctx context.Context, orderID int) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT o.id, o.nickname, o.supplier_id, sp.name, o.created_by, o.status, o.created_at
		FROM purchase_orders o
		LEFT JOIN suppliers sp ON sp.id = o.supplier_id
		WHERE o.id = $1`,
		orderID,
	).Scan(&po.ID, &po.Nickname, &po.SupplierID, &po.SupplierName, &po.CreatedBy, &status, &po.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewNotFoundError("order", fmt.Sprint(orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	po.Status = OrderStatus(status)

	rows, err := s.pool.Query(ctx, requestSelect+` WHERE r.order_id = $1 ORDER BY r.id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order %d lines: %w", orderID, err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		po.Lines = append(po.Lines, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}

	statuses := make([]RequestStatus, len(po.Lines))
	for i, l := range po.Lines {
		statuses[i] = l.Status
	}
	po.DerivedStatus = AggregateStatus(po.Status, statuses)
	return po, nil
}

func (s *purchaseService) ListOrders(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.nickname, o.supplier_id, sp.name, o.created_by, o.status, o.created_at,
		       COALESCE(array_agg(r.status) FILTER (WHERE r.id IS NOT NULL), '{}')
		FROM purchase_orders o
		LEFT JOIN suppliers sp ON sp.id = o.supplier_id
		LEFT JOIN purchase_requests r ON r.order_id = o.id
		GROUP BY o.id, sp.name
		ORDER BY o.created_at DESC, o.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		var status string
		var lineStatuses []string
		if err := rows.Scan(&po.ID, &po.Nickname, &po.SupplierID, &po.SupplierName,
			&po.CreatedBy, &status, &po.CreatedAt, &lineStatuses); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		po.Status = OrderStatus(status)
		statuses := make([]RequestStatus, len(lineStatuses))
		for i, s := range lineStatuses {
			statuses[i] = RequestStatus(s)
		}
		po.DerivedStatus = AggregateStatus(po.Status, statuses)
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// transitionRequest is the shared guarded status write for transitions with
// no ledger effect.
func (s *purchaseService) transitionRequest(ctx context.Context, requestID int, to RequestStatus, action, actor string) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, to) {
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot move from %s to %s", req.Status, to))
	}

	before := req
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_requests SET status = $1 WHERE id = $2",
		string(to), requestID,
	); err != nil {
		return nil, fmt.Errorf("update request %d status: %w", requestID, err)
	}
	req.Status = to
	if _, err := appendAudit(ctx, tx, action, "request", fmt.Sprint(requestID), before, req, actor); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit %s: %w", action, err), "request", fmt.Sprint(requestID))
	}
	return &req, nil
}

func (s *purchaseService) RequestEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error) {
	return s.transitionRequest(ctx, requestID, StatusEditRequested, "request.edit_request", actor)
}

func (s *purchaseService) DenyEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error) {
	return s.transitionRequest(ctx, requestID, StatusApproved, "request.edit_deny", actor)
}

// ApproveEdit grants an edit request. The line's ledger effect is reverted
// here, not at RequestEdit, so a denied edit never disturbs the ledger.
func (s *purchaseService) ApproveEdit(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(req.Status, StatusEditApproved) {
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot approve edit from status %s", req.Status))
	}

	if _, err := revertLocked(ctx, tx, req, actor); err != nil {
		return nil, err
	}

	before := req
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_requests SET status = $1 WHERE id = $2",
		string(StatusEditApproved), requestID,
	); err != nil {
		return nil, fmt.Errorf("update request %d status: %w", requestID, err)
	}
	req.Status = StatusEditApproved
	if _, err := appendAudit(ctx, tx, "request.edit_approve", "request", fmt.Sprint(requestID), before, req, actor); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit edit approval: %w", err), "request", fmt.Sprint(requestID))
	}
	return &req, nil
}

// UpdateRequest applies the edit: replaces the line's fields and returns it
// to pending so it runs through approval again.
func (s *purchaseService) UpdateRequest(ctx context.Context, requestID int, draft RequestDraft, actor string) (*PurchaseRequest, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusEditApproved {
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot edit from status %s", req.Status))
	}

	rd, err := resolveDraft(ctx, tx, 0, draft)
	if err != nil {
		return nil, err
	}

	before := req
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET item_id = $1, item_name = $2, quantity = $3, unit = $4, total_cost = $5,
		    location_id = $6, status = 'pending', approved_by = NULL, approved_at = NULL
		WHERE id = $7`,
		rd.itemID, rd.itemName, draft.Quantity, draft.Unit, draft.TotalCost, rd.locationID, requestID,
	); err != nil {
		return nil, fmt.Errorf("update request %d: %w", requestID, err)
	}

	updated, err := scanRequest(tx.QueryRow(ctx, requestSelect+` WHERE r.id = $1`, requestID))
	if err != nil {
		return nil, fmt.Errorf("reload request %d: %w", requestID, err)
	}
	if _, err := appendAudit(ctx, tx, "request.edit_apply", "request", fmt.Sprint(requestID), before, updated, actor); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit request edit: %w", err), "request", fmt.Sprint(requestID))
	}
	return &updated, nil
}

func (s *purchaseService) RequestOrderEdit(ctx context.Context, orderID int, actor string) (*PurchaseOrder, error) {
	return s.transitionOrder(ctx, orderID, OrderOpen, OrderEditRequested, "order.edit_request", actor, false)
}

func (s *purchaseService) ApproveOrderEdit(ctx context.Context, orderID int, actor string) (*PurchaseOrder, error) {
	return s.transitionOrder(ctx, orderID, OrderEditRequested, OrderEditApproved, "order.edit_approve", actor, true)
}

// transitionOrder flips the stored order-level status. When revertLines is
// set, every ledger-applied line is reverted back to pending inside the same
// transaction.
func (s *purchaseService) transitionOrder(ctx context.Context, orderID int, from, to OrderStatus, action, actor string, revertLines bool) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NewNotFoundError("order", fmt.Sprint(orderID))
	}
	if err != nil {
		return nil, fmt.Errorf("lock order %d: %w", orderID, err)
	}
	if OrderStatus(status) != from {
		return nil, NewValidationError("order", fmt.Sprint(orderID),
			fmt.Sprintf("cannot move from %s to %s", status, to))
	}

	if revertLines {
		if err := s.revertOrderLines(ctx, tx, orderID, actor); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = $1 WHERE id = $2", string(to), orderID,
	); err != nil {
		return nil, fmt.Errorf("update order %d status: %w", orderID, err)
	}
	if _, err := appendAudit(ctx, tx, action, "order", fmt.Sprint(orderID),
		map[string]string{"status": status}, map[string]string{"status": string(to)}, actor); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit %s: %w", action, err), "order", fmt.Sprint(orderID))
	}
	return s.GetOrder(ctx, orderID)
}

// revertOrderLines undoes every ledger-applied line of an order and returns
// the lines to pending, in line order.
func (s *purchaseService) revertOrderLines(ctx context.Context, tx pgx.Tx, orderID int, actor string) error {
	rows, err := tx.Query(ctx,
		"SELECT id FROM purchase_requests WHERE order_id = $1 ORDER BY id FOR UPDATE", orderID)
	if err != nil {
		return fmt.Errorf("lock order %d lines: %w", orderID, err)
	}
	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan line id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate line ids: %w", err)
	}

	for _, id := range ids {
		req, err := lockRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		if !req.Status.LedgerApplied() {
			continue
		}
		if _, err := revertLocked(ctx, tx, req, actor); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE purchase_requests
			SET status = 'pending', approved_by = NULL, approved_at = NULL
			WHERE id = $1`, id,
		); err != nil {
			return fmt.Errorf("reset request %d to pending: %w", id, err)
		}
	}
	return nil
}

func (s *purchaseService) SecureDeleteOrder(ctx context.Context, orderID int, actor string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var nickname string
	err = tx.QueryRow(ctx,
		"SELECT nickname FROM purchase_orders WHERE id = $1 FOR UPDATE", orderID,
	).Scan(&nickname)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFoundError("order", fmt.Sprint(orderID))
	}
	if err != nil {
		return fmt.Errorf("lock order %d: %w", orderID, err)
	}

	// Force reverts first: a delete must never strand applied stock value.
	if err := s.revertOrderLines(ctx, tx, orderID, actor); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM purchase_requests WHERE order_id = $1", orderID); err != nil {
		return fmt.Errorf("delete order %d lines: %w", orderID, err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM purchase_orders WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	if _, err := appendAudit(ctx, tx, "order.secure_delete", "order", fmt.Sprint(orderID),
		map[string]string{"nickname": nickname}, nil, actor); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translateDBError(fmt.Errorf("commit secure delete: %w", err), "order", fmt.Sprint(orderID))
	}
	return nil
}
