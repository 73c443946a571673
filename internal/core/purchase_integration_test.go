package core_test

import (
	"testing"

	"stock-ledger/internal/core"
)

func TestSubmitBatch_RejectsWholeBatchOnBadLine(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)

	_, err := purchases.SubmitBatch(ctx, core.OrderHeader{Nickname: "mixed", CreatedBy: "tester"},
		[]core.RequestDraft{
			flourDraft("10", "20"),
			{ItemCode: "NOPE", Quantity: dec("1"), Unit: "pcs", TotalCost: dec("1"), LocationCode: "MAIN"},
		})
	if !core.IsNotFound(err) {
		t.Fatalf("Expected not-found for unknown item, got %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM purchase_orders").Scan(&count); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Errorf("A bad line must reject the whole batch, found %d orders", count)
	}
}

func TestSubmitBatch_FreeTextAndSupplier(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)

	order, err := purchases.SubmitBatch(ctx, core.OrderHeader{
		Nickname: "weekly", SupplierCode: "ACME", CreatedBy: "tester",
	}, []core.RequestDraft{
		{ItemName: "mystery part", Quantity: dec("2"), Unit: "pcs", TotalCost: dec("40")},
	})
	if err != nil {
		t.Fatalf("SubmitBatch failed: %v", err)
	}
	if order.SupplierName == nil || *order.SupplierName != "Acme Trading" {
		t.Errorf("Expected supplier resolved, got %v", order.SupplierName)
	}
	if order.Lines[0].ItemID != nil {
		t.Errorf("Free-text line must have no item reference")
	}
	if order.DerivedStatus != core.OrderStatus("pending") {
		t.Errorf("Expected derived status pending, got %s", order.DerivedStatus)
	}
}

func TestOrder_DerivedAggregateStatus(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{
		flourDraft("10", "20"),
		flourDraft("5", "15"),
	})

	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	var orderID int
	if err := pool.QueryRow(ctx, "SELECT order_id FROM purchase_requests WHERE id = $1", ids[0]).Scan(&orderID); err != nil {
		t.Fatalf("resolve order: %v", err)
	}
	order, err := purchases.GetOrder(ctx, orderID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.DerivedStatus != core.OrderPartial {
		t.Errorf("Expected partial, got %s", order.DerivedStatus)
	}

	if _, err := approvals.Approve(ctx, ids[1], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	order, err = purchases.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder failed: %v", err)
	}
	if order.DerivedStatus != core.OrderStatus("approved") {
		t.Errorf("Expected approved, got %s", order.DerivedStatus)
	}
}

func TestEditFlow_LineLevel(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{flourDraft("10", "20")})
	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	// Request the edit: ledger stays applied.
	req, err := purchases.RequestEdit(ctx, ids[0], "clerk")
	if err != nil {
		t.Fatalf("RequestEdit failed: %v", err)
	}
	if req.Status != core.StatusEditRequested {
		t.Fatalf("Expected edit_requested, got %s", req.Status)
	}
	qty, _ := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("10")) {
		t.Errorf("Requesting an edit must not touch the ledger, got %s", qty)
	}

	// Deny: back to approved, ledger still applied.
	if _, err := purchases.DenyEdit(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("DenyEdit failed: %v", err)
	}
	qty, _ = entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("10")) {
		t.Errorf("Denied edit must leave the ledger untouched, got %s", qty)
	}

	// Request again and approve the edit: the line's effect is reverted.
	if _, err := purchases.RequestEdit(ctx, ids[0], "clerk"); err != nil {
		t.Fatalf("RequestEdit failed: %v", err)
	}
	req, err = purchases.ApproveEdit(ctx, ids[0], "boss")
	if err != nil {
		t.Fatalf("ApproveEdit failed: %v", err)
	}
	if req.Status != core.StatusEditApproved {
		t.Fatalf("Expected edit_approved, got %s", req.Status)
	}
	qty, _ = entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.IsZero() {
		t.Errorf("Approved edit must revert the ledger, got %s", qty)
	}

	// Apply the edit and re-approve with the new numbers.
	req, err = purchases.UpdateRequest(ctx, ids[0], flourDraft("20", "50"), "clerk")
	if err != nil {
		t.Fatalf("UpdateRequest failed: %v", err)
	}
	if req.Status != core.StatusPending {
		t.Fatalf("Expected pending after edit, got %s", req.Status)
	}
	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Re-approve failed: %v", err)
	}
	qty, cost := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("20")) || !cost.Equal(dec("2.5")) {
		t.Errorf("Expected 20 @ 2.5 after re-approval, got %s @ %s", qty, cost)
	}
}

func TestOrderEditFlow_RevertsAllAppliedLines(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{
		flourDraft("10", "20"),
		{ItemCode: "SUGAR", Quantity: dec("100"), Unit: "g", TotalCost: dec("5"), LocationCode: "MAIN"},
	})
	for _, id := range ids {
		if _, err := approvals.Approve(ctx, id, "boss"); err != nil {
			t.Fatalf("Approve(%d) failed: %v", id, err)
		}
	}

	var orderID int
	if err := pool.QueryRow(ctx, "SELECT order_id FROM purchase_requests WHERE id = $1", ids[0]).Scan(&orderID); err != nil {
		t.Fatalf("resolve order: %v", err)
	}

	order, err := purchases.RequestOrderEdit(ctx, orderID, "clerk")
	if err != nil {
		t.Fatalf("RequestOrderEdit failed: %v", err)
	}
	if order.DerivedStatus != core.OrderEditing {
		t.Errorf("Expected editing, got %s", order.DerivedStatus)
	}

	order, err = purchases.ApproveOrderEdit(ctx, orderID, "boss")
	if err != nil {
		t.Fatalf("ApproveOrderEdit failed: %v", err)
	}
	for _, l := range order.Lines {
		if l.Status != core.StatusPending {
			t.Errorf("Expected line %d pending, got %s", l.ID, l.Status)
		}
	}

	qty, _ := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.IsZero() {
		t.Errorf("Expected flour reverted, got %s", qty)
	}
	qty, _ = entryFor(t, ctx, pool, "SUGAR", "MAIN")
	if !qty.IsZero() {
		t.Errorf("Expected sugar reverted, got %s", qty)
	}
}

func TestSecureDeleteOrder_RevertsThenDeletes(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{flourDraft("10", "20")})
	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	var orderID int
	if err := pool.QueryRow(ctx, "SELECT order_id FROM purchase_requests WHERE id = $1", ids[0]).Scan(&orderID); err != nil {
		t.Fatalf("resolve order: %v", err)
	}

	if err := purchases.SecureDeleteOrder(ctx, orderID, "boss"); err != nil {
		t.Fatalf("SecureDeleteOrder failed: %v", err)
	}

	qty, _ := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.IsZero() {
		t.Errorf("Expected ledger restored before delete, got %s", qty)
	}
	if _, err := purchases.GetOrder(ctx, orderID); !core.IsNotFound(err) {
		t.Errorf("Expected order gone, got %v", err)
	}

	// The audit trail survives the physical delete.
	var audits int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_records WHERE action = 'order.secure_delete'").Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Errorf("Expected one secure-delete audit record, got %d", audits)
	}
}
