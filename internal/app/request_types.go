package app

import "github.com/shopspring/decimal"

// SubmitBatchRequest is the input for submitting a purchase batch.
type SubmitBatchRequest struct {
	Nickname     string
	SupplierCode string // optional
	CreatedBy    string
	Lines        []LineDraft
}

// LineDraft is one line of a batch submission or an edit replacement.
// ItemCode resolves against the catalog; an empty code with a non-empty
// ItemName is an uncatalogued free-text line.
type LineDraft struct {
	ItemCode     string
	ItemName     string
	Quantity     decimal.Decimal
	Unit         string
	TotalCost    decimal.Decimal
	LocationCode string
}

// AdjustStockRequest is the input for a manual stock correction.
type AdjustStockRequest struct {
	ItemCode     string
	LocationCode string
	NewCount     decimal.Decimal
	UnitCost     *decimal.Decimal // optional; overwrites the average when set
	Reason       string
	Actor        string
}
