package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaDDL string

// Postgres is the relational store adapter.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to the database and ensures the schema exists.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Name identifies the adapter in health output.
func (p *Postgres) Name() string { return "postgres" }

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// CreateOrder inserts the order and its items in one transaction. The
// order number comes from the order_numbers sequence and the tracking
// number is derived from it, so uniqueness holds under concurrent inserts.
func (p *Postgres) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var number int64
	if err := tx.GetContext(ctx, &number, "SELECT nextval('order_numbers')"); err != nil {
		return fmt.Errorf("failed to allocate order number: %w", err)
	}
	order.OrderNumber = number
	order.TrackingNumber = fmt.Sprintf("TRK%06d", number)

	query := `
		INSERT INTO orders (
			id, order_number, status, payment_status, payment_method, payment_details,
			customer_info, shipping_address,
			subtotal, tax, shipping, discount, total,
			tracking_number, estimated_delivery, actual_delivery, payment_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		order.ID, order.OrderNumber, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.PaymentDetails,
		order.CustomerInfo, order.ShippingAddress,
		order.Subtotal, order.Tax, order.Shipping, order.Discount, order.Total,
		order.TrackingNumber, order.EstimatedDelivery, order.ActualDelivery, order.PaymentDate,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, name, image, unit_price, quantity, total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.GetContext(ctx, &items[i].ID, itemQuery,
			items[i].OrderID, items[i].ProductID, items[i].Name, items[i].Image,
			items[i].UnitPrice, items[i].Quantity, items[i].Total)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order and its items.
func (p *Postgres) GetOrderByID(ctx context.Context, id string) (*models.Order, []models.OrderItem, error) {
	var order models.Order
	err := p.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	var items []models.OrderItem
	err = p.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, nil, err
	}
	return &order, items, nil
}

// GetOrderByTracking retrieves an order by its tracking number.
func (p *Postgres) GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	var order models.Order
	err := p.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE tracking_number = $1", trackingNumber)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tracking number %s: %w", trackingNumber, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus overwrites the order status and returns the updated
// row. actualDelivery, when set, stamps the delivery date.
func (p *Postgres) UpdateOrderStatus(ctx context.Context, id, status string, actualDelivery *time.Time) (*models.Order, error) {
	var order models.Order
	err := p.db.GetContext(ctx, &order, `
		UPDATE orders
		SET status = $2, actual_delivery = COALESCE($3, actual_delivery), updated_at = NOW()
		WHERE id = $1
		RETURNING *`, id, status, actualDelivery)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderPaid completes the payment and promotes a pending order to
// paid. The payment-status guard is part of the UPDATE predicate, so of
// two concurrent confirmations exactly one succeeds; the loser gets
// ErrAlreadyPaid.
func (p *Postgres) MarkOrderPaid(ctx context.Context, id string, paidAt time.Time) (*models.Order, error) {
	var order models.Order
	err := p.db.GetContext(ctx, &order, `
		UPDATE orders
		SET payment_status = 'completed',
		    payment_date = $2,
		    status = CASE WHEN status = 'pending' THEN 'paid' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'completed'
		RETURNING *`, id, paidAt)
	if err == sql.ErrNoRows {
		var exists bool
		if probeErr := p.db.GetContext(ctx, &exists,
			"SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)", id); probeErr != nil {
			return nil, probeErr
		}
		if exists {
			return nil, fmt.Errorf("order %s: %w", id, ErrAlreadyPaid)
		}
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders returns a newest-first page and the total match count.
func (p *Postgres) ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := p.db.GetContext(ctx, &total,
		fmt.Sprintf("SELECT COUNT(*) FROM orders %s", where), args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM orders %s ORDER BY created_at DESC, order_number DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	orders := []models.Order{}
	if err := p.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// AppendOrderEvent appends to the status audit log.
func (p *Postgres) AppendOrderEvent(ctx context.Context, ev *models.OrderEvent) error {
	return p.db.GetContext(ctx, &ev.ID, `
		INSERT INTO order_events (order_id, from_status, to_status, note, created_at)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id`,
		ev.OrderID, ev.FromStatus, ev.ToStatus, ev.Note, ev.CreatedAt)
}

// ListOrderEvents returns the audit log for one order, oldest first.
func (p *Postgres) ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	events := []models.OrderEvent{}
	err := p.db.SelectContext(ctx, &events,
		"SELECT * FROM order_events WHERE order_id = $1 ORDER BY id", orderID)
	return events, err
}

// ListProducts applies the conjunctive filters over active products.
func (p *Postgres) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	where := []string{"is_active = TRUE"}
	args := []interface{}{}

	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.AgeGroup != "" {
		args = append(args, f.AgeGroup)
		where = append(where, fmt.Sprintf("age_group = $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("price <= $%d", len(args)))
	}
	if f.InStock {
		where = append(where, "in_stock = TRUE", "stock_quantity > 0")
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := p.db.GetContext(ctx, &total,
		fmt.Sprintf("SELECT COUNT(*) FROM products WHERE %s", clause), args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT * FROM products WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		clause, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	products := []models.Product{}
	if err := p.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetProductByID retrieves a product by ID
func (p *Postgres) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := p.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (p *Postgres) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = p.db.Rebind(query)

	products := []models.Product{}
	err = p.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// AdjustStock applies the delta in a single statement so concurrent
// adjustments cannot lose updates. Stock is clamped at zero and the
// in-stock flag reconciled in the same write.
func (p *Postgres) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	var product models.Product
	err := p.db.GetContext(ctx, &product, `
		UPDATE products
		SET stock_quantity = GREATEST(stock_quantity + $2, 0),
		    in_stock = GREATEST(stock_quantity + $2, 0) > 0,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING *`, id, delta)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a catalog product.
func (p *Postgres) CreateProduct(ctx context.Context, prod *models.Product) error {
	query := `
		INSERT INTO products (
			name, description, price, original_price, category, age_group, image,
			stock_quantity, in_stock, rating, review_count, is_featured, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at`

	return p.db.QueryRowxContext(ctx, query,
		prod.Name, prod.Description, prod.Price, prod.OriginalPrice,
		prod.Category, prod.AgeGroup, prod.Image,
		prod.StockQuantity, prod.InStock, prod.Rating, prod.ReviewCount,
		prod.IsFeatured, prod.IsActive,
	).Scan(&prod.ID, &prod.CreatedAt, &prod.UpdatedAt)
}

// CountProducts reports how many products exist, active or not.
func (p *Postgres) CountProducts(ctx context.Context) (int, error) {
	var total int
	err := p.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products")
	return total, err
}
