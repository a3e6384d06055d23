package service

import (
	"context"

	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CatalogService serves filtered catalog reads and stock adjustments.
// The Redis mirror is optional; when absent every call goes straight to
// the store.
type CatalogService struct {
	store  store.Store
	cache  *redisclient.Client
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(st store.Store, cache *redisclient.Client) *CatalogService {
	return &CatalogService{
		store:  st,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ListProducts returns a page of active products matching the filters and
// the total match count.
func (s *CatalogService) ListProducts(ctx context.Context, f store.ProductFilter) ([]models.Product, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	products, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, 0, util.InternalError("failed to list products", err)
	}
	return products, total, nil
}

// GetProduct returns an active product by ID.
func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, translateStoreErr(err, "product_not_found", "product %d does not exist", id)
	}
	if !product.IsActive {
		return nil, util.NotFoundError("product_not_found", "product %d does not exist", id)
	}
	return product, nil
}

// AdjustStock applies delta to a product's stock. The store clamps the
// result at zero and reconciles the in-stock flag in the same write; the
// outcome is then mirrored into the cache.
func (s *CatalogService) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.AdjustStock")
	defer span.End()

	product, err := s.store.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, translateStoreErr(err, "product_not_found", "product %d does not exist", id)
	}

	direction := "restock"
	if delta < 0 {
		direction = "deduction"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()

	s.mirrorStock(ctx, product)

	s.logger.Info("Stock adjusted",
		zap.Int64("product_id", id),
		zap.Int("delta", delta),
		zap.Int("new_stock", product.StockQuantity))

	return product, nil
}

func (s *CatalogService) mirrorStock(ctx context.Context, product *models.Product) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetStock(ctx, product.ID, product.StockQuantity); err != nil {
		s.logger.Warn("Failed to mirror stock to cache",
			zap.Int64("product_id", product.ID), zap.Error(err))
	}
}

// SyncStockToCache mirrors every product's stock count into Redis at
// startup so the cache never serves stale counts from a previous run.
func (s *CatalogService) SyncStockToCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	products, _, err := s.store.ListProducts(ctx, store.ProductFilter{Limit: 1000})
	if err != nil {
		return err
	}
	for i := range products {
		if err := s.cache.SetStock(ctx, products[i].ID, products[i].StockQuantity); err != nil {
			return err
		}
	}
	s.logger.Info("Stock mirror synced", zap.Int("products", len(products)))
	return nil
}

// SeedDemoCatalog populates an empty store with the demo catalog on
// first run. A store that already holds products is left untouched.
func (s *CatalogService) SeedDemoCatalog(ctx context.Context) error {
	count, err := s.store.CountProducts(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, p := range demoCatalog() {
		prod := p
		if err := s.store.CreateProduct(ctx, &prod); err != nil {
			return err
		}
	}
	s.logger.Info("Demo catalog seeded", zap.Int("products", len(demoCatalog())))
	return nil
}

func demoCatalog() []models.Product {
	price := func(v string) decimal.Decimal {
		d, _ := decimal.NewFromString(v)
		return d
	}
	was := func(v string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: price(v), Valid: true}
	}

	return []models.Product{
		{
			Name:          "Wooden Alphabet Blocks",
			Description:   "26-piece hand-painted wooden block set",
			Price:         price("29.99"),
			OriginalPrice: was("39.99"),
			Category:      models.CategoryEducationalToys,
			AgeGroup:      "1-2 years",
			StockQuantity: 42,
			InStock:       true,
			Rating:        4.7,
			ReviewCount:   118,
			IsFeatured:    true,
			IsActive:      true,
		},
		{
			Name:          "Finger Paint Starter Kit",
			Description:   "Washable non-toxic finger paints, six colors",
			Price:         price("14.50"),
			Category:      models.CategoryArtToys,
			AgeGroup:      "3-5 years",
			StockQuantity: 80,
			InStock:       true,
			Rating:        4.3,
			ReviewCount:   64,
			IsActive:      true,
		},
		{
			Name:          "Newborn Swaddle Set",
			Description:   "Three organic cotton swaddle wraps",
			Price:         price("34.00"),
			Category:      models.CategoryNewBornEssential,
			AgeGroup:      "0-12 months",
			StockQuantity: 25,
			InStock:       true,
			Rating:        4.8,
			ReviewCount:   203,
			IsFeatured:    true,
			IsActive:      true,
		},
		{
			Name:          "Nursing Support Pillow",
			Description:   "Ergonomic feeding pillow with washable cover",
			Price:         price("45.99"),
			OriginalPrice: was("59.99"),
			Category:      models.CategoryMotherEssential,
			AgeGroup:      "adult",
			StockQuantity: 12,
			InStock:       true,
			Rating:        4.5,
			ReviewCount:   77,
			IsActive:      true,
		},
		{
			Name:          "Baby Bath Care Bundle",
			Description:   "Tear-free shampoo, lotion and soft towel",
			Price:         price("22.75"),
			Category:      models.CategoryBabyCareHygiene,
			AgeGroup:      "0-12 months",
			StockQuantity: 0,
			InStock:       false,
			Rating:        4.1,
			ReviewCount:   39,
			IsActive:      true,
		},
		{
			Name:          "Starlight Night Lamp",
			Description:   "Dimmable projector lamp with auto shut-off",
			Price:         price("54.90"),
			Category:      models.CategorySleepComfort,
			AgeGroup:      "0-12 months",
			StockQuantity: 18,
			InStock:       true,
			Rating:        4.6,
			ReviewCount:   91,
			IsActive:      true,
		},
	}
}
