// Package store holds the order and catalog records behind a single
// interface with two interchangeable adapters: Postgres and in-memory.
// The adapter is selected once at startup by a connectivity probe;
// business logic never branches on the adapter type.
package store

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a referenced entity is absent. Services
// translate it into their own NotFound errors.
var ErrNotFound = errors.New("not found")

// ErrAlreadyPaid is returned by MarkOrderPaid when the payment was
// already completed. The check happens inside the adapter's atomic
// update, so concurrent confirmations cannot both succeed.
var ErrAlreadyPaid = errors.New("payment already completed")

// ProductFilter narrows a catalog listing. All set filters are conjunctive.
// Price bounds are inclusive.
type ProductFilter struct {
	Category string
	AgeGroup string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  bool
	Limit    int
	Offset   int
}

// Store is the storage contract shared by both adapters.
//
// CreateOrder assigns the order number and tracking number from the
// adapter's own sequence, atomically with the insert, so two orders can
// never share a tracking number even under concurrent submission.
type Store interface {
	Name() string
	Close() error

	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, []models.OrderItem, error)
	GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status string, actualDelivery *time.Time) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, id string, paidAt time.Time) (*models.Order, error)
	ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, int, error)
	AppendOrderEvent(ctx context.Context, ev *models.OrderEvent) error
	ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error)

	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	CountProducts(ctx context.Context) (int, error)
}

// Probe connects to Postgres when a URL is configured and reachable,
// falling back to the in-memory adapter otherwise.
func Probe(databaseURL string, logger *zap.Logger) Store {
	if databaseURL != "" {
		pg, err := NewPostgres(databaseURL)
		if err == nil {
			logger.Info("Using Postgres store")
			return pg
		}
		logger.Warn("Postgres not available, falling back to in-memory store", zap.Error(err))
	} else {
		logger.Warn("No database configured, using in-memory store")
	}
	return NewMemory()
}
