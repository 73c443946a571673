package main

import (
	"context"
	"os"

	"stock-ledger/internal/db"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Applies migrations/schema.sql against DATABASE_URL. The schema is written
// to be idempotent, so re-running is safe.
func main() {
	_ = godotenv.Load()
	log := logrus.New()

	path := "migrations/schema.sql"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	schema, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	log.Infof("schema applied from %s", path)
}
