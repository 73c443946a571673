package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"stock-ledger/internal/app"
	"stock-ledger/internal/core"

	"github.com/shopspring/decimal"
)

// Run executes a one-shot maintenance command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	switch args[0] {
	case "stock", "st":
		var location, item string
		if len(args) > 1 {
			location = args[1]
		}
		if len(args) > 2 {
			item = args[2]
		}
		result, err := svc.GetStockLevels(ctx, location, item)
		if err != nil {
			log.Fatalf("Failed to read stock levels: %v", err)
		}
		printStockLevels(result)

	case "orders", "ord":
		result, err := svc.ListOrders(ctx)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		printOrders(result)

	case "reconcile", "rec":
		scope := core.ReconcileScope{}
		for _, arg := range args[1:] {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				log.Fatalf("Usage: ledger reconcile [item=<id>] [location=<id>]")
			}
			id, err := strconv.Atoi(value)
			if err != nil {
				log.Fatalf("Invalid %s id %q", key, value)
			}
			switch key {
			case "item":
				scope.ItemID = &id
			case "location":
				scope.LocationID = &id
			default:
				log.Fatalf("Unknown scope key %q", key)
			}
		}
		result, err := svc.Reconcile(ctx, scope)
		if err != nil {
			log.Fatalf("Reconciliation failed: %v", err)
		}
		printReconcile(result)

	case "adjust", "adj":
		if len(args) < 5 {
			log.Fatal(`Usage: ledger adjust <item> <location> <count> "<reason>" [unit-cost]`)
		}
		count, err := decimal.NewFromString(args[3])
		if err != nil {
			log.Fatalf("Invalid count %q", args[3])
		}
		req := app.AdjustStockRequest{
			ItemCode:     args[1],
			LocationCode: args[2],
			NewCount:     count,
			Reason:       args[4],
			Actor:        "cli",
		}
		if len(args) > 5 {
			cost, err := decimal.NewFromString(args[5])
			if err != nil {
				log.Fatalf("Invalid unit cost %q", args[5])
			}
			req.UnitCost = &cost
		}
		result, err := svc.AdjustStock(ctx, req)
		if err != nil {
			log.Fatalf("Adjustment failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result.Result)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: stock, orders, reconcile, adjust", args[0])
	}
}

func printStockLevels(result *app.StockResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-74s\n", "STOCK LEVELS")
	fmt.Println(strings.Repeat("=", 78))
	fmt.Printf("  %-12s %-24s %-8s %12s %10s %12s\n", "ITEM", "NAME", "LOC", "QTY", "COST", "VALUE")
	fmt.Println(strings.Repeat("-", 78))
	for _, lv := range result.Levels {
		fmt.Printf("  %-12s %-24s %-8s %12s %10s %12s\n",
			lv.ItemCode, lv.ItemName, lv.LocationCode,
			lv.Quantity.StringFixed(3), lv.UnitCost.StringFixed(4), lv.Value.StringFixed(2))
	}
	fmt.Println(strings.Repeat("=", 78))
}

func printOrders(result *app.OrderListResult) {
	fmt.Println()
	fmt.Printf("  %-6s %-24s %-16s %-12s %s\n", "ID", "NICKNAME", "STATUS", "CREATED BY", "DATE")
	fmt.Println(strings.Repeat("-", 72))
	for _, o := range result.Orders {
		fmt.Printf("  %-6d %-24s %-16s %-12s %s\n",
			o.ID, o.Nickname, o.DerivedStatus, o.CreatedBy, o.CreatedAt.Format("2006-01-02"))
	}
}

func printReconcile(result *core.ReconcileResult) {
	fmt.Printf("Reconciled %d entries, %d drifted, %d requests skipped.\n",
		len(result.Entries), len(result.Drift), len(result.SkippedRequests))
	for _, d := range result.Drift {
		fmt.Printf("  drift item=%d location=%d stored=%s@%s replay=%s@%s\n",
			d.ItemID, d.LocationID,
			d.StoredQuantity.StringFixed(3), d.StoredUnitCost.StringFixed(4),
			d.ReplayQuantity.StringFixed(3), d.ReplayUnitCost.StringFixed(4))
	}
	if len(result.SkippedRequests) > 0 {
		fmt.Printf("  skipped requests: %v\n", result.SkippedRequests)
	}
}
