package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *models.Order {
	return &models.Order{
		ID:            uuid.New().String(),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
		PaymentMethod: models.PaymentMethodCashOnDelivery,
		CustomerInfo: models.CustomerInfo{
			FirstName: "Nour", LastName: "Hassan", Email: "nour@example.com",
		},
		ShippingAddress: models.ShippingAddress{
			Address: "12 Tahrir St", City: "Cairo", PostalCode: "11511", Country: "Egypt",
		},
		Subtotal:          decimal.NewFromInt(100),
		Tax:               decimal.NewFromInt(8),
		Shipping:          decimal.Zero,
		Discount:          decimal.Zero,
		Total:             decimal.NewFromInt(108),
		EstimatedDelivery: time.Now().Add(72 * time.Hour),
	}
}

func TestMemoryCreateOrderAssignsSequentialTracking(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, first, nil))
	second := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, second, nil))

	assert.Equal(t, int64(1), first.OrderNumber)
	assert.Equal(t, "TRK000001", first.TrackingNumber)
	assert.Equal(t, int64(2), second.OrderNumber)
	assert.Equal(t, "TRK000002", second.TrackingNumber)
}

func TestMemoryTrackingNumbersUniqueUnderConcurrency(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	tracking := make(chan string, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := newTestOrder()
			if err := m.CreateOrder(ctx, o, nil); err == nil {
				tracking <- o.TrackingNumber
			}
		}()
	}
	wg.Wait()
	close(tracking)

	seen := map[string]bool{}
	for tn := range tracking {
		assert.False(t, seen[tn], "duplicate tracking number %s", tn)
		seen[tn] = true
	}
	assert.Len(t, seen, n)
}

func TestMemoryGetOrderReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	o := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, o, []models.OrderItem{
		{ProductID: 1, Name: "Wooden Blocks", UnitPrice: decimal.NewFromInt(10), Quantity: 2, Total: decimal.NewFromInt(20)},
	}))

	got, items, err := m.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	got.CustomerInfo.Email = "tampered@example.com"
	items[0].Name = "tampered"

	again, itemsAgain, err := m.GetOrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "nour@example.com", again.CustomerInfo.Email)
	assert.Equal(t, "Wooden Blocks", itemsAgain[0].Name)
}

func TestMemoryOrderNotFound(t *testing.T) {
	m := NewMemory()
	_, _, err := m.GetOrderByID(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetOrderByTracking(context.Background(), "TRK999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryMarkOrderPaidOnlyOnce(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	order := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, order, nil))

	paid, err := m.MarkOrderPaid(ctx, order.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, paid.PaymentStatus)
	assert.Equal(t, models.OrderStatusPaid, paid.Status)

	_, err = m.MarkOrderPaid(ctx, order.ID, time.Now().UTC())
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestMemoryMarkOrderPaidConcurrentSingleWinner(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	order := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, order, nil))

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.MarkOrderPaid(ctx, order.ID, time.Now().UTC())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyPaid)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestMemoryListOrdersNewestFirstWithPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		o := newTestOrder()
		if i == 2 {
			o.Status = models.OrderStatusShipped
		}
		require.NoError(t, m.CreateOrder(ctx, o, nil))
	}

	page, total, err := m.ListOrders(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	// Newest first: highest order number leads when timestamps collide.
	assert.Greater(t, page[0].OrderNumber, page[1].OrderNumber)

	shipped, total, err := m.ListOrders(ctx, models.OrderStatusShipped, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, shipped, 1)
	assert.Equal(t, int64(3), shipped[0].OrderNumber)

	empty, total, err := m.ListOrders(ctx, "", 10, 99)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, empty)
}

func seedProduct(t *testing.T, m *Memory, name, category, ageGroup string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          name,
		Price:         decimal.NewFromFloat(price),
		Category:      category,
		AgeGroup:      ageGroup,
		StockQuantity: stock,
		InStock:       stock > 0,
		IsActive:      true,
	}
	require.NoError(t, m.CreateProduct(context.Background(), p))
	return p
}

func TestMemoryListProductsFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seedProduct(t, m, "Blocks", models.CategoryEducationalToys, "3-5 years", 29.99, 10)
	seedProduct(t, m, "Crayons", models.CategoryArtToys, "3-5 years", 9.99, 0)
	seedProduct(t, m, "Night Light", models.CategorySleepComfort, "0-12 months", 49.99, 3)
	inactive := seedProduct(t, m, "Retired", models.CategoryArtToys, "adult", 5, 1)
	m.products[inactive.ID].IsActive = false

	all, total, err := m.ListProducts(ctx, ProductFilter{Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, total, "inactive products are invisible")
	assert.Len(t, all, 3)

	byCategory, _, err := m.ListProducts(ctx, ProductFilter{Category: models.CategoryArtToys, Limit: 50})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Crayons", byCategory[0].Name)

	min := decimal.NewFromFloat(9.99)
	max := decimal.NewFromFloat(29.99)
	byPrice, _, err := m.ListProducts(ctx, ProductFilter{MinPrice: &min, MaxPrice: &max, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, byPrice, 2, "price bounds are inclusive")

	inStock, _, err := m.ListProducts(ctx, ProductFilter{InStock: true, Limit: 50})
	require.NoError(t, err)
	assert.Len(t, inStock, 2)
	for _, p := range inStock {
		assert.Greater(t, p.StockQuantity, 0)
	}
}

func TestMemoryAdjustStockClampsAtZero(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := seedProduct(t, m, "Blocks", models.CategoryEducationalToys, "3-5 years", 29.99, 5)

	updated, err := m.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.StockQuantity)
	assert.True(t, updated.InStock)

	updated, err = m.AdjustStock(ctx, p.ID, -100)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.StockQuantity)
	assert.False(t, updated.InStock)

	updated, err = m.AdjustStock(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, updated.StockQuantity)
	assert.True(t, updated.InStock)

	_, err = m.AdjustStock(ctx, 9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryAdjustStockConcurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	p := seedProduct(t, m, "Blocks", models.CategoryEducationalToys, "3-5 years", 29.99, 50)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.AdjustStock(ctx, p.ID, -1)
		}()
	}
	wg.Wait()

	got, err := m.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
	assert.False(t, got.InStock)
}

func TestMemoryOrderEvents(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	o := newTestOrder()
	require.NoError(t, m.CreateOrder(ctx, o, nil))

	for i, to := range []string{models.OrderStatusPaid, models.OrderStatusShipped} {
		require.NoError(t, m.AppendOrderEvent(ctx, &models.OrderEvent{
			OrderID:   o.ID,
			ToStatus:  to,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := m.ListOrderEvents(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.OrderStatusPaid, events[0].ToStatus)
	assert.Equal(t, models.OrderStatusShipped, events[1].ToStatus)

	none, err := m.ListOrderEvents(ctx, fmt.Sprintf("%s-none", o.ID))
	require.NoError(t, err)
	assert.Empty(t, none)
}
