package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService exposes the reference data the engine operates over. The
// catalog is maintained elsewhere; this service only reads it.
type CatalogService interface {
	ListItems(ctx context.Context) ([]InventoryItem, error)
	ListLocations(ctx context.Context) ([]StockLocation, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// GetBOM returns the bill of materials for a finished item, keyed by code.
	GetBOM(ctx context.Context, finishedCode string) ([]BOMLine, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func (s *catalogService) ListItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM items WHERE is_active = true ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *catalogService) ListLocations(ctx context.Context) ([]StockLocation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, created_at FROM stock_locations ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []StockLocation
	for rows.Next() {
		var loc StockLocation
		if err := rows.Scan(&loc.ID, &loc.Code, &loc.Name, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

func (s *catalogService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, is_active FROM suppliers WHERE is_active = true ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var sup Supplier
		if err := rows.Scan(&sup.ID, &sup.Code, &sup.Name, &sup.IsActive); err != nil {
			return nil, fmt.Errorf("scan supplier: %w", err)
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

func (s *catalogService) GetBOM(ctx context.Context, finishedCode string) ([]BOMLine, error) {
	item, err := fetchItemByCode(ctx, s.pool, finishedCode)
	if err != nil {
		return nil, err
	}
	if !item.IsFinished {
		return nil, NewValidationError("item", finishedCode, "item has no bill of materials")
	}
	bom, _, err := loadBOM(ctx, s.pool, item.ID)
	return bom, err
}
