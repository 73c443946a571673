package app

import (
	"context"

	"stock-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all adapters (Web, CLI) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// SubmitBatch creates a purchase order with pending line items. The whole
	// batch is validated before anything is written.
	SubmitBatch(ctx context.Context, req SubmitBatchRequest) (*OrderResult, error)

	// GetOrder returns one order with its lines and derived aggregate status.
	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)

	// ListOrders returns all orders, newest first.
	ListOrders(ctx context.Context) (*OrderListResult, error)

	// GetRequest returns a single purchase line item.
	GetRequest(ctx context.Context, requestID int) (*RequestResult, error)

	// ApproveItem commits a pending line into the ledger.
	ApproveItem(ctx context.Context, requestID int, actor string) (*ApprovalResult, error)

	// RejectItem declines a line; an approved line is reverted first.
	RejectItem(ctx context.Context, requestID int, actor string) (*RequestResult, error)

	// RevertItem undoes an approval, returning the line to pending.
	RevertItem(ctx context.Context, requestID int, actor string) (*ApprovalResult, error)

	// BatchApprove approves lines sequentially and reports per-item outcomes.
	BatchApprove(ctx context.Context, requestIDs []int, actor string) (*BatchApproveResult, error)

	// RequestEdit / DenyEdit / ApproveEdit run the line-level edit flow.
	RequestEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error)
	DenyEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error)
	ApproveEdit(ctx context.Context, requestID int, actor string) (*RequestResult, error)

	// UpdateRequest applies an approved edit and returns the line to pending.
	UpdateRequest(ctx context.Context, requestID int, req LineDraft, actor string) (*RequestResult, error)

	// RequestOrderEdit / ApproveOrderEdit run the edit flow at order level.
	RequestOrderEdit(ctx context.Context, orderID int, actor string) (*OrderResult, error)
	ApproveOrderEdit(ctx context.Context, orderID int, actor string) (*OrderResult, error)

	// SecureDeleteOrder reverts applied lines and physically deletes the order.
	SecureDeleteOrder(ctx context.Context, orderID int, actor string) error

	// GetStockLevels returns current ledger entries, optionally filtered.
	GetStockLevels(ctx context.Context, locationCode, itemCode string) (*StockResult, error)

	// AdjustStock sets an entry to a counted quantity with a mandatory reason.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*AdjustResult, error)

	// SimulateProduction prices a batch against live stock without writing.
	SimulateProduction(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal) (*core.FeasibilityReport, error)

	// CommitProduction consumes ingredients and lands the output, all or
	// nothing.
	CommitProduction(ctx context.Context, finishedCode, locationCode string, qty decimal.Decimal, actor string) (*ProductionResult, error)

	// Reconcile rebuilds ledger state from history and reports drift.
	Reconcile(ctx context.Context, scope core.ReconcileScope) (*core.ReconcileResult, error)

	// ListItems / ListLocations / ListSuppliers expose the catalog.
	ListItems(ctx context.Context) (*ItemListResult, error)
	ListLocations(ctx context.Context) (*LocationListResult, error)
	ListSuppliers(ctx context.Context) (*SupplierListResult, error)

	// GetBOM returns a finished item's bill of materials.
	GetBOM(ctx context.Context, finishedCode string) (*BOMResult, error)
}
