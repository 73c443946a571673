package core

// RequestStatus is the lifecycle state of a purchase line item.
type RequestStatus string

const (
	StatusPending       RequestStatus = "pending"
	StatusApproved      RequestStatus = "approved"
	StatusRejected      RequestStatus = "rejected"
	StatusEditRequested RequestStatus = "edit_requested"
	StatusEditApproved  RequestStatus = "edit_approved"
)

// LedgerApplied reports whether a line in this status has a live ledger
// effect. An edit-requested line was approved and not yet reverted; the
// revert happens when the edit request is approved, so a denied edit leaves
// the ledger untouched.
func (s RequestStatus) LedgerApplied() bool {
	return s == StatusApproved || s == StatusEditRequested
}

// requestTransitions is the full line-item state machine. Deletion is not a
// transition — it only happens through the secure-delete path, which reverts
// ledger-applied lines first.
var requestTransitions = map[RequestStatus][]RequestStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusRejected, StatusEditRequested, StatusPending}, // pending via revert
	// edit_requested may be approved, or denied back to approved
	StatusEditRequested: {StatusEditApproved, StatusApproved},
	StatusEditApproved:  {StatusPending},
	StatusRejected:      nil,
}

// CanTransition reports whether from → to is a legal line transition.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderStatus is the order-level status. Only the two edit states are ever
// stored; everything else is derived on read from the line statuses so there
// is no second source of truth to desynchronize.
type OrderStatus string

const (
	OrderOpen          OrderStatus = "open"
	OrderEditRequested OrderStatus = "edit_requested"
	OrderEditApproved  OrderStatus = "edit_approved"

	// Derived-only values.
	OrderEditing OrderStatus = "editing"
	OrderPartial OrderStatus = "partial"
)

// AggregateStatus derives the order status a caller sees. Precedence is
// load-bearing — it governs which operations are permitted on the order:
//
//  1. a stored order-level edit state, or any line in an edit state ⇒ editing
//  2. all lines sharing one status ⇒ that status
//  3. otherwise ⇒ partial (an empty order reads open)
func AggregateStatus(stored OrderStatus, lines []RequestStatus) OrderStatus {
	if stored == OrderEditRequested || stored == OrderEditApproved {
		return OrderEditing
	}
	for _, s := range lines {
		if s == StatusEditRequested || s == StatusEditApproved {
			return OrderEditing
		}
	}
	if len(lines) == 0 {
		return OrderOpen
	}
	first := lines[0]
	for _, s := range lines[1:] {
		if s != first {
			return OrderPartial
		}
	}
	return OrderStatus(first)
}
