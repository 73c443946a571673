package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApprovalResult is the outcome of a single approve/revert: the updated line
// plus a snapshot of the ledger entry it touched. Entry is nil for expense
// and free-text lines, which never reach the ledger.
type ApprovalResult struct {
	Request *PurchaseRequest `json:"request"`
	Entry   *LedgerEntry     `json:"entry,omitempty"`
}

// BatchItemResult is one item's outcome in a batch approval.
type BatchItemResult struct {
	RequestID int
	Result    *ApprovalResult
	Err       error
}

// ApprovalService orchestrates approve / reject / revert against the ledger,
// one atomic transaction per line item.
type ApprovalService interface {
	// Approve commits a pending line into the ledger: blends the incoming
	// movement into the destination entry, records the movement and audit,
	// and stamps the approver — all or nothing.
	Approve(ctx context.Context, requestID int, actor string) (*ApprovalResult, error)

	// Reject declines a line. Pending lines are a pure status write; an
	// approved line is reverted first and only rejected if the revert
	// succeeds.
	Reject(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error)

	// Revert undoes an approval, returning the line to pending. Best-effort:
	// exact only if no other incoming movement blended into the entry since
	// this approval. Callers needing exactness afterwards run reconcile.
	Revert(ctx context.Context, requestID int, actor string) (*ApprovalResult, error)

	// BatchApprove applies Approve sequentially, in the caller's order —
	// never in parallel, so approvals landing on one entry see each other.
	// It continues past failed items and reports per-item results.
	BatchApprove(ctx context.Context, requestIDs []int, actor string) []BatchItemResult
}

type approvalService struct {
	pool *pgxpool.Pool
}

// NewApprovalService constructs an ApprovalService backed by PostgreSQL.
func NewApprovalService(pool *pgxpool.Pool) ApprovalService {
	return &approvalService{pool: pool}
}

func (s *approvalService) Approve(ctx context.Context, requestID int, actor string) (*ApprovalResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot approve from status %s", req.Status))
	}
	if !req.Quantity.IsPositive() {
		return nil, NewValidationError("request", fmt.Sprint(requestID), "quantity must be positive")
	}
	if req.TotalCost.IsNegative() {
		return nil, NewValidationError("request", fmt.Sprint(requestID), "total cost cannot be negative")
	}

	entry, err := applyRequestLocked(ctx, tx, req, actor)
	if err != nil {
		return nil, err
	}

	before := req
	updated, err := scanRequest(tx.QueryRow(ctx, `
		UPDATE purchase_requests
		SET status = 'approved', approved_by = $1, approved_at = NOW()
		WHERE id = $2
		RETURNING id, order_id, item_id,
		          (SELECT code FROM items WHERE id = purchase_requests.item_id),
		          item_name, quantity, unit, total_cost, location_id, status,
		          approved_by, approved_at, created_at`,
		actor, requestID))
	if err != nil {
		return nil, fmt.Errorf("mark request %d approved: %w", requestID, err)
	}
	if _, err := appendAudit(ctx, tx, "request.approve", "request", fmt.Sprint(requestID), before, updated, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit approval: %w", err), "request", fmt.Sprint(requestID))
	}
	return &ApprovalResult{Request: &updated, Entry: entry}, nil
}

// applyRequestLocked blends the request's incoming movement into its
// destination entry inside the caller's transaction. Returns nil with no
// ledger effect for expense and free-text lines.
func applyRequestLocked(ctx context.Context, tx pgx.Tx, req PurchaseRequest, actor string) (*LedgerEntry, error) {
	if req.ItemID == nil {
		return nil, nil // uncatalogued free-text line
	}
	item, err := fetchItem(ctx, tx, *req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.TrackStock {
		return nil, nil // expense line, never touches the ledger
	}
	if req.LocationID == nil {
		return nil, NewValidationError("request", fmt.Sprint(req.ID), "missing destination location")
	}

	mv, err := movementForRequest(req, item)
	if err != nil {
		return nil, err
	}

	entry, err := lockEntry(ctx, tx, item.ID, *req.LocationID)
	if err != nil {
		return nil, err
	}
	before := entry
	entry = ApplyMovement(entry, mv)
	if err := writeEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := recordMovement(ctx, tx, StockMovement{
		ItemID:     item.ID,
		LocationID: *req.LocationID,
		Kind:       MovementReceipt,
		Quantity:   mv.Quantity,
		UnitCost:   &mv.UnitCost,
		RequestID:  &req.ID,
		Notes:      fmt.Sprintf("purchase receipt: %s × %s %s", item.Code, mv.Quantity, item.Unit),
	}); err != nil {
		return nil, err
	}
	if _, err := appendAudit(ctx, tx, "ledger.apply", "entry",
		fmt.Sprintf("%d/%d", item.ID, *req.LocationID), before, entry, actor); err != nil {
		return nil, err
	}
	return &entry, nil
}

// revertLocked applies the inverse of req's original incoming movement.
// The inverse is priced at the request's own unit cost, so it is exact only
// if nothing else has blended into the entry since the approval; the engine
// does not detect staleness here — reconcile repairs any drift.
//
// A request whose item has since been deactivated is skipped with an audit
// note rather than failing the surrounding operation.
func revertLocked(ctx context.Context, tx pgx.Tx, req PurchaseRequest, actor string) (*LedgerEntry, error) {
	if req.ItemID == nil || req.LocationID == nil {
		return nil, nil
	}
	item, err := fetchItem(ctx, tx, *req.ItemID)
	if IsNotFound(err) {
		_, auditErr := appendAudit(ctx, tx, "request.revert_skipped", "request", fmt.Sprint(req.ID),
			req, map[string]string{"reason": "item no longer exists"}, actor)
		return nil, auditErr
	}
	if err != nil {
		return nil, err
	}
	if !item.TrackStock {
		return nil, nil
	}

	mv, err := movementForRequest(req, item)
	if err != nil {
		return nil, err
	}
	inverse := mv.Inverse()

	entry, err := lockEntry(ctx, tx, item.ID, *req.LocationID)
	if err != nil {
		return nil, err
	}
	before := entry
	entry = ApplyMovement(entry, inverse)
	if err := writeEntry(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := recordMovement(ctx, tx, StockMovement{
		ItemID:     item.ID,
		LocationID: *req.LocationID,
		Kind:       MovementRevert,
		Quantity:   inverse.Quantity,
		UnitCost:   &inverse.UnitCost,
		RequestID:  &req.ID,
		Notes:      fmt.Sprintf("revert of request %d", req.ID),
	}); err != nil {
		return nil, err
	}
	if _, err := appendAudit(ctx, tx, "ledger.revert", "entry",
		fmt.Sprintf("%d/%d", item.ID, *req.LocationID), before, entry, actor); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *approvalService) Reject(ctx context.Context, requestID int, actor string) (*PurchaseRequest, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case StatusPending:
		// pure status write, no ledger effect
	case StatusApproved:
		// rejecting an approved line is only valid after a successful revert
		if _, err := revertLocked(ctx, tx, req, actor); err != nil {
			return nil, err
		}
	default:
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot reject from status %s", req.Status))
	}

	before := req
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET status = 'rejected', approved_by = NULL, approved_at = NULL
		WHERE id = $1`, requestID,
	); err != nil {
		return nil, fmt.Errorf("mark request %d rejected: %w", requestID, err)
	}
	req.Status = StatusRejected
	req.ApprovedBy = nil
	req.ApprovedAt = nil
	if _, err := appendAudit(ctx, tx, "request.reject", "request", fmt.Sprint(requestID), before, req, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit rejection: %w", err), "request", fmt.Sprint(requestID))
	}
	return &req, nil
}

func (s *approvalService) Revert(ctx context.Context, requestID int, actor string) (*ApprovalResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	req, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusApproved {
		return nil, NewValidationError("request", fmt.Sprint(requestID),
			fmt.Sprintf("cannot revert from status %s", req.Status))
	}

	entry, err := revertLocked(ctx, tx, req, actor)
	if err != nil {
		return nil, err
	}

	before := req
	if _, err := tx.Exec(ctx, `
		UPDATE purchase_requests
		SET status = 'pending', approved_by = NULL, approved_at = NULL
		WHERE id = $1`, requestID,
	); err != nil {
		return nil, fmt.Errorf("return request %d to pending: %w", requestID, err)
	}
	req.Status = StatusPending
	req.ApprovedBy = nil
	req.ApprovedAt = nil
	if _, err := appendAudit(ctx, tx, "request.revert", "request", fmt.Sprint(requestID), before, req, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translateDBError(fmt.Errorf("commit revert: %w", err), "request", fmt.Sprint(requestID))
	}
	return &ApprovalResult{Request: &req, Entry: entry}, nil
}

// BatchApprove runs sequentially by design: two approvals landing on the same
// entry must see each other's effect. A failed item does not roll back its
// neighbors — a single bad line must not block unrelated approvals.
func (s *approvalService) BatchApprove(ctx context.Context, requestIDs []int, actor string) []BatchItemResult {
	results := make([]BatchItemResult, 0, len(requestIDs))
	for _, id := range requestIDs {
		res, err := s.Approve(ctx, id, actor)
		results = append(results, BatchItemResult{RequestID: id, Result: res, Err: err})
	}
	return results
}
