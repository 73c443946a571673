package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	"stock-ledger/internal/adapters/cli"
	webAdapter "stock-ledger/internal/adapters/web"
	"stock-ledger/internal/app"
	"stock-ledger/internal/core"
	"stock-ledger/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	purchases := core.NewPurchaseService(pool)
	approvals := core.NewApprovalService(pool)
	ledger := core.NewLedgerService(pool)
	production := core.NewProductionService(pool)
	reconcile := core.NewReconcileService(pool)
	catalog := core.NewCatalogService(pool)

	svc := app.NewAppService(purchases, approvals, ledger, production, reconcile, catalog)

	// With arguments, run as a one-shot maintenance command instead of a server.
	if len(os.Args) > 1 {
		cli.Run(ctx, svc, os.Args[1:])
		return
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	var allowedOrigins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}
	handler := webAdapter.NewHandler(svc, log, allowedOrigins)

	log.Infof("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
