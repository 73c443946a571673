package core_test

import (
	"context"
	"testing"

	"stock-ledger/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Drift scenario: approve A then B on the same entry, then revert A. The
// best-effort inverse prices the revert at A's cost while the entry holds the
// blended average, so the stored cost drifts from what replaying {B} yields.
func driftedEntry(t *testing.T) (*pgxpool.Pool, context.Context, int) {
	t.Helper()
	p, c := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(p)
	approvals := core.NewApprovalService(p)

	ids := submitLines(t, c, purchases, []core.RequestDraft{
		flourDraft("5", "15"), // A: 5 g @ 3
		flourDraft("5", "25"), // B: 5 g @ 5
	})
	for _, id := range ids {
		if _, err := approvals.Approve(c, id, "boss"); err != nil {
			t.Fatalf("Approve(%d) failed: %v", id, err)
		}
	}
	// Entry now 10 @ 4. Reverting A leaves 5 @ 4; history says 5 @ 5.
	if _, err := approvals.Revert(c, ids[0], "boss"); err != nil {
		t.Fatalf("Revert failed: %v", err)
	}
	return p, c, ids[1]
}

func TestReconcile_RepairsRevertDrift(t *testing.T) {
	pool, ctx, _ := driftedEntry(t)
	reconcile := core.NewReconcileService(pool)

	qty, cost := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("5")) || !cost.Equal(dec("4")) {
		t.Fatalf("Precondition: drifted entry should be 5 @ 4, got %s @ %s", qty, cost)
	}

	result, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(result.Drift) != 1 {
		t.Fatalf("Expected one drift report, got %d", len(result.Drift))
	}
	d := result.Drift[0]
	if !d.StoredUnitCost.Equal(dec("4")) || !d.ReplayUnitCost.Equal(dec("5")) {
		t.Errorf("Drift report stored=%s replay=%s", d.StoredUnitCost, d.ReplayUnitCost)
	}

	qty, cost = entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("5")) || !cost.Equal(dec("5")) {
		t.Errorf("Expected repaired entry 5 @ 5, got %s @ %s", qty, cost)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	pool, ctx, _ := driftedEntry(t)
	reconcile := core.NewReconcileService(pool)

	if _, err := reconcile.Reconcile(ctx, core.ReconcileScope{}); err != nil {
		t.Fatalf("First reconcile failed: %v", err)
	}
	second, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Second reconcile failed: %v", err)
	}
	if len(second.Drift) != 0 {
		t.Errorf("Second run must find no drift, got %d reports", len(second.Drift))
	}

	qty, cost := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("5")) || !cost.Equal(dec("5")) {
		t.Errorf("Idempotent runs must not change the entry, got %s @ %s", qty, cost)
	}
}

// A non-terminating blended average (10 g @ 2 + 5 g @ 3 ⇒ 35/15 = 2.3333…)
// is stored rounded to the column's six decimal places. The replay runs at
// full precision, so the comparison must happen at storage precision — a
// healthy entry must not read as drift, run after run.
func TestReconcile_NonTerminatingAverageIsClean(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)
	reconcile := core.NewReconcileService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{
		flourDraft("10", "20"), // @2
		flourDraft("5", "15"),  // @3
	})
	for _, id := range ids {
		if _, err := approvals.Approve(ctx, id, "boss"); err != nil {
			t.Fatalf("Approve(%d) failed: %v", id, err)
		}
	}

	first, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(first.Drift) != 0 {
		t.Errorf("Healthy blended entry must not report drift: %+v", first.Drift)
	}

	second, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Second reconcile failed: %v", err)
	}
	if len(second.Drift) != 0 {
		t.Errorf("Repeated runs must stay clean, got %+v", second.Drift)
	}

	qty, cost := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("15")) || !cost.Equal(dec("2.333333")) {
		t.Errorf("Expected 15 @ 2.333333 untouched, got %s @ %s", qty, cost)
	}

	var rewrites int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_records WHERE action = 'ledger.reconcile'").Scan(&rewrites); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if rewrites != 0 {
		t.Errorf("Clean runs must not rewrite or audit entries, got %d records", rewrites)
	}
}

func TestReconcile_ReplaysAdjustments(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)
	ledger := core.NewLedgerService(pool)
	reconcile := core.NewReconcileService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{flourDraft("10", "20")})
	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := ledger.AdjustStock(ctx, "FLOUR", "MAIN", dec("8"), nil, "stock count", "counter"); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}

	result, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(result.Drift) != 0 {
		t.Errorf("Receipt + adjustment history must replay cleanly, drift: %+v", result.Drift)
	}

	qty, cost := entryFor(t, ctx, pool, "FLOUR", "MAIN")
	if !qty.Equal(dec("8")) || !cost.Equal(dec("2")) {
		t.Errorf("Expected 8 @ 2 after replay, got %s @ %s", qty, cost)
	}
}

func TestReconcile_SkipsDeactivatedItems(t *testing.T) {
	pool, ctx := setupEngineTestDB(t)
	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)
	reconcile := core.NewReconcileService(pool)

	ids := submitLines(t, ctx, purchases, []core.RequestDraft{flourDraft("10", "20")})
	if _, err := approvals.Approve(ctx, ids[0], "boss"); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if _, err := pool.Exec(ctx, "UPDATE items SET is_active = false WHERE code = 'FLOUR'"); err != nil {
		t.Fatalf("deactivate item: %v", err)
	}

	result, err := reconcile.Reconcile(ctx, core.ReconcileScope{})
	if err != nil {
		t.Fatalf("Reconcile must not fail on deactivated items: %v", err)
	}
	if len(result.SkippedRequests) != 1 || result.SkippedRequests[0] != ids[0] {
		t.Errorf("Expected request %d skipped, got %v", ids[0], result.SkippedRequests)
	}

	var audits int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM audit_records WHERE action = 'reconcile.skip_request'").Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits != 1 {
		t.Errorf("Expected one skip audit record, got %d", audits)
	}
}
