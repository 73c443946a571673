package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is a batch header for submitted line items. Orders are never
// physically removed except through SecureDeleteOrder.
type PurchaseOrder struct {
	ID            int               `json:"id"`
	Nickname      string            `json:"nickname"`
	SupplierID    *int              `json:"supplier_id,omitempty"`
	SupplierName  *string           `json:"supplier_name,omitempty"`
	CreatedBy     string            `json:"created_by"`
	Status        OrderStatus       `json:"status"`         // stored: open | edit_requested | edit_approved
	DerivedStatus OrderStatus       `json:"derived_status"` // computed on read, see AggregateStatus
	CreatedAt     time.Time         `json:"created_at"`
	Lines         []PurchaseRequest `json:"lines,omitempty"`
}

// PurchaseRequest is one purchase line item. ItemID is nil for uncatalogued
// free-text lines, which never touch the ledger.
type PurchaseRequest struct {
	ID         int             `json:"id"`
	OrderID    int             `json:"order_id"`
	ItemID     *int            `json:"item_id,omitempty"`
	ItemCode   *string         `json:"item_code,omitempty"`
	ItemName   string          `json:"item_name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       string          `json:"unit"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	LocationID *int            `json:"location_id,omitempty"`
	Status     RequestStatus   `json:"status"`
	ApprovedBy *string         `json:"approved_by,omitempty"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// UnitCost is the per-unit cost in the request's own unit.
func (r PurchaseRequest) UnitCost() decimal.Decimal {
	if r.Quantity.IsZero() {
		return decimal.Zero
	}
	return r.TotalCost.Div(r.Quantity)
}

// OrderHeader is the submission header for a new batch.
type OrderHeader struct {
	Nickname     string
	SupplierCode string // optional
	CreatedBy    string
}

// RequestDraft is one line of a batch submission (or an edit replacement).
// ItemCode resolves against the catalog; when empty, ItemName carries an
// uncatalogued free-text line.
type RequestDraft struct {
	ItemCode     string
	ItemName     string
	Quantity     decimal.Decimal
	Unit         string
	TotalCost    decimal.Decimal
	LocationCode string
}
