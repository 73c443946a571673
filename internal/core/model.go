package core

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// StockLocation is a physical destination for stock. Immutable once a
// movement references it.
type StockLocation struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Supplier is a purchase order's vendor reference.
type Supplier struct {
	ID       int    `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

// InventoryItem is a purchasable or consumable good, an expense line
// (TrackStock false — never touches the ledger), or a finished product
// (IsFinished true — produced, not purchased).
type InventoryItem struct {
	ID   int    `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
	// Unit is the base unit every ledger quantity for this item is kept in.
	Unit string `json:"unit"`
	// SecondaryUnit/ConversionFactor describe an optional purchasing unit:
	// quantity in SecondaryUnit × ConversionFactor = quantity in Unit.
	SecondaryUnit    *string          `json:"secondary_unit,omitempty"`
	ConversionFactor *decimal.Decimal `json:"conversion_factor,omitempty"`
	TrackStock       bool             `json:"track_stock"`
	IsFinished       bool             `json:"is_finished"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
}

// LedgerEntry is the per-(item, location) stock record: signed quantity plus
// the weighted-average unit cost of what is on hand. Quantity × UnitCost
// approximates the capital tied up in the entry.
type LedgerEntry struct {
	ID         int             `json:"id"`
	ItemID     int             `json:"item_id"`
	LocationID int             `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Value returns the capital currently tied up in the entry.
func (e LedgerEntry) Value() decimal.Decimal {
	return e.Quantity.Mul(e.UnitCost)
}

// MovementKind tags a row in the append-only stock movement log.
type MovementKind string

const (
	MovementReceipt       MovementKind = "RECEIPT"
	MovementRevert        MovementKind = "REVERT"
	MovementProductionIn  MovementKind = "PRODUCTION_IN"
	MovementProductionOut MovementKind = "PRODUCTION_OUT"
	MovementAdjustment    MovementKind = "ADJUSTMENT"
)

// StockMovement is one committed signed change against a ledger entry.
// Append-only.
type StockMovement struct {
	ID           int              `json:"id"`
	ItemID       int              `json:"item_id"`
	LocationID   int              `json:"location_id"`
	Kind         MovementKind     `json:"kind"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitCost     *decimal.Decimal `json:"unit_cost,omitempty"`
	RequestID    *int             `json:"request_id,omitempty"`
	ProductionID *int             `json:"production_id,omitempty"`
	MovedAt      time.Time        `json:"moved_at"`
	Notes        string           `json:"notes,omitempty"`
}

// BOMLine defines one ingredient requirement for one unit of a finished item.
// Read-only to this engine.
type BOMLine struct {
	ID               int             `json:"id"`
	FinishedItemID   int             `json:"finished_item_id"`
	IngredientItemID int             `json:"ingredient_item_id"`
	QtyPerUnit       decimal.Decimal `json:"qty_per_unit"`
	Unit             string          `json:"unit"`
}

// ProductionOrder records a committed manufacturing run. BatchUnitCost is the
// blended cost per output unit at the moment of commit — a snapshot.
type ProductionOrder struct {
	ID             int             `json:"id"`
	FinishedItemID int             `json:"finished_item_id"`
	LocationID     int             `json:"location_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	BatchUnitCost  decimal.Decimal `json:"batch_unit_cost"`
	CreatedBy      string          `json:"created_by"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuditRecord is the system of record for "what happened and why".
// Append-only: never updated or deleted.
type AuditRecord struct {
	ID         int             `json:"id"`
	Action     string          `json:"action"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	Actor      string          `json:"actor"`
	CreatedAt  time.Time       `json:"created_at"`
}
