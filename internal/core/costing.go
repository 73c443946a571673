package core

import "github.com/shopspring/decimal"

// Movement is one signed quantity/cost change against a ledger entry.
// Quantity > 0 is an incoming movement (purchase receipt, production output);
// Quantity < 0 is outgoing (consumption, shipment, revert).
type Movement struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// Inverse returns the movement that undoes m, priced at m's original unit
// cost. Applying the inverse is exact only if no other incoming movement has
// blended into the same entry since m was applied — weighted averaging is not
// invertible across interleavings. Reconcile is the exact correction path.
func (m Movement) Inverse() Movement {
	return Movement{Quantity: m.Quantity.Neg(), UnitCost: m.UnitCost}
}

// ApplyMovement folds one movement into a ledger entry.
//
// Incoming movements blend into the weighted average:
//
//	new_cost = (qty*cost + in_qty*in_cost) / (qty + in_qty)
//
// The cost is left untouched when the resulting quantity is exactly zero —
// avoids the division by zero and keeps a reference cost for the next
// receipt. Outgoing movements only reduce quantity; the average never moves
// on the way out.
//
// Callers must hold the entry's row lock; this is not re-entrant across
// concurrent callers on the same entry.
func ApplyMovement(entry LedgerEntry, m Movement) LedgerEntry {
	newQty := entry.Quantity.Add(m.Quantity)
	if m.Quantity.IsPositive() && !newQty.IsZero() {
		entry.UnitCost = entry.Quantity.Mul(entry.UnitCost).
			Add(m.Quantity.Mul(m.UnitCost)).
			Div(newQty)
	}
	entry.Quantity = newQty
	return entry
}

// Replay rebuilds an entry by folding movements, in order, from a zero
// baseline. Deterministic: the same history always yields the identical
// entry. This is the reconciliation primitive.
func Replay(movements []Movement) LedgerEntry {
	entry := LedgerEntry{Quantity: decimal.Zero, UnitCost: decimal.Zero}
	for _, m := range movements {
		entry = ApplyMovement(entry, m)
	}
	return entry
}
