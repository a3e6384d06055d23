package service

import (
	"context"
	"testing"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalogService(t *testing.T) (*CatalogService, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	return NewCatalogService(st, nil), st
}

func TestSeedDemoCatalogOnlyWhenEmpty(t *testing.T) {
	svc, st := newTestCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDemoCatalog(ctx))
	seeded, err := st.CountProducts(ctx)
	require.NoError(t, err)
	require.Greater(t, seeded, 0)

	// A second seed run must not duplicate the catalog.
	require.NoError(t, svc.SeedDemoCatalog(ctx))
	after, err := st.CountProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, seeded, after)
}

func TestGetProductHidesInactive(t *testing.T) {
	svc, st := newTestCatalogService(t)
	ctx := context.Background()

	active := &models.Product{
		Name: "Plush Bear", Price: decimal.NewFromFloat(25.00),
		Category: "plush", AgeGroup: "0-2",
		StockQuantity: 5, InStock: true, IsActive: true,
	}
	retired := &models.Product{
		Name: "Retired Puzzle", Price: decimal.NewFromFloat(10.00),
		Category: "puzzles", AgeGroup: "6-8",
		StockQuantity: 3, InStock: true, IsActive: false,
	}
	require.NoError(t, st.CreateProduct(ctx, active))
	require.NoError(t, st.CreateProduct(ctx, retired))

	got, err := svc.GetProduct(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plush Bear", got.Name)

	_, err = svc.GetProduct(ctx, retired.ID)
	assert.Equal(t, util.KindNotFound, util.ErrKind(err))

	_, err = svc.GetProduct(ctx, 999)
	assert.Equal(t, util.KindNotFound, util.ErrKind(err))
}

func TestAdjustStockReconcilesFlag(t *testing.T) {
	svc, st := newTestCatalogService(t)
	ctx := context.Background()

	p := &models.Product{
		Name: "Wooden Train Set", Price: decimal.NewFromFloat(49.99),
		Category: "educational", AgeGroup: "3-5",
		StockQuantity: 3, InStock: true, IsActive: true,
	}
	require.NoError(t, st.CreateProduct(ctx, p))

	got, err := svc.AdjustStock(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
	assert.False(t, got.InStock)

	// Deductions below zero clamp instead of going negative.
	got, err = svc.AdjustStock(ctx, p.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)

	got, err = svc.AdjustStock(ctx, p.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got.StockQuantity)
	assert.True(t, got.InStock)

	_, err = svc.AdjustStock(ctx, 999, 1)
	assert.Equal(t, util.KindNotFound, util.ErrKind(err))
}

func TestListProductsFilters(t *testing.T) {
	svc, _ := newTestCatalogService(t)
	ctx := context.Background()

	require.NoError(t, svc.SeedDemoCatalog(ctx))

	all, total, err := svc.ListProducts(ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, len(all), total)

	min := decimal.NewFromFloat(30.00)
	expensive, _, err := svc.ListProducts(ctx, store.ProductFilter{MinPrice: &min})
	require.NoError(t, err)
	for _, p := range expensive {
		assert.True(t, p.Price.GreaterThanOrEqual(min))
	}

	inStock, _, err := svc.ListProducts(ctx, store.ProductFilter{InStock: true})
	require.NoError(t, err)
	assert.Less(t, len(inStock), total)
	for _, p := range inStock {
		assert.True(t, p.InStock)
	}
}
