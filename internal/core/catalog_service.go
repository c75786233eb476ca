package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrOrderNotFound is returned when an order id has no matching row.
var ErrOrderNotFound = errors.New("order not found")

// ErrProductNotFound is returned when a SKU has no catalog entry.
var ErrProductNotFound = errors.New("product not found")

// CatalogService provides read-only, idempotent access to orders and the
// product catalog. The pipeline fetches each order exactly once and never
// writes through this interface.
type CatalogService interface {
	// GetOrder returns the order with its line items, without product
	// enrichment. Returns ErrOrderNotFound for unknown ids.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// GetProduct returns catalog metadata for a SKU.
	GetProduct(ctx context.Context, sku string) (*Product, error)

	// EnrichOrder attaches product metadata to every line item. Items
	// whose SKU is missing from the catalog keep a nil Product.
	EnrichOrder(ctx context.Context, order *Order) (*Order, error)
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by the orders,
// order_items, and products tables.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func (s *catalogService) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx, `
		SELECT order_id, placed_at, delivered_at, tracking_status, is_gift, currency
		FROM orders
		WHERE order_id = $1
	`, orderID).Scan(&o.OrderID, &o.PlacedAt, &o.DeliveredAt, &o.TrackingStatus, &o.IsGift, &o.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT sku, qty, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items for order %s: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.SKU, &it.Qty, &it.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &o, nil
}

func (s *catalogService) GetProduct(ctx context.Context, sku string) (*Product, error) {
	var p Product
	err := s.pool.QueryRow(ctx, `
		SELECT sku, name, category, is_final_sale, warranty_days
		FROM products
		WHERE sku = $1
	`, sku).Scan(&p.SKU, &p.Name, &p.Category, &p.IsFinalSale, &p.WarrantyDays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", sku, err)
	}
	return &p, nil
}

func (s *catalogService) EnrichOrder(ctx context.Context, order *Order) (*Order, error) {
	enriched := *order
	enriched.Items = make([]LineItem, len(order.Items))
	copy(enriched.Items, order.Items)

	for i := range enriched.Items {
		p, err := s.GetProduct(ctx, enriched.Items[i].SKU)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		enriched.Items[i].Product = p
	}
	return &enriched, nil
}
