package app

import "stock-ledger/internal/core"

// OrderResult is returned by order-level operations.
type OrderResult struct {
	Order *core.PurchaseOrder
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.PurchaseOrder
}

// RequestResult is returned by line-item reads and status transitions.
type RequestResult struct {
	Request *core.PurchaseRequest
}

// ApprovalResult is returned by approve and revert.
type ApprovalResult struct {
	Request *core.PurchaseRequest
	Entry   *core.LedgerEntry
}

// BatchApproveItem is one line's outcome in a batch approval. Error carries
// the failure message; a nil Request means the line never loaded.
type BatchApproveItem struct {
	RequestID int
	Request   *core.PurchaseRequest
	Entry     *core.LedgerEntry
	Error     string
}

// BatchApproveResult is returned by BatchApprove.
type BatchApproveResult struct {
	Items    []BatchApproveItem
	Approved int
	Failed   int
}

// StockResult is returned by GetStockLevels.
type StockResult struct {
	Levels []core.StockLevel
}

// AdjustResult is returned by AdjustStock.
type AdjustResult struct {
	Result *core.AdjustResult
}

// ProductionResult is returned by CommitProduction.
type ProductionResult struct {
	Result *core.ProductionResult
}

// ItemListResult is returned by ListItems.
type ItemListResult struct {
	Items []core.InventoryItem
}

// LocationListResult is returned by ListLocations.
type LocationListResult struct {
	Locations []core.StockLocation
}

// SupplierListResult is returned by ListSuppliers.
type SupplierListResult struct {
	Suppliers []core.Supplier
}

// BOMResult is returned by GetBOM.
type BOMResult struct {
	FinishedCode string
	Lines        []core.BOMLine
}
