package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"
)

// Memory is the in-memory store adapter used when no database is
// reachable. All access is serialized by one mutex: the order slice and
// the number counter form a read-modify-write pair that is racy without
// it under concurrent writers.
type Memory struct {
	mu sync.Mutex

	orders      []*models.Order
	items       map[string][]models.OrderItem
	events      []models.OrderEvent
	products    map[int64]*models.Product
	orderNumber int64
	productID   int64
	eventID     int64
	itemID      int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		items:    make(map[string][]models.OrderItem),
		products: make(map[int64]*models.Product),
	}
}

// Name identifies the adapter in health output.
func (m *Memory) Name() string { return "memory" }

// Close is a no-op for the in-memory adapter.
func (m *Memory) Close() error { return nil }

// CreateOrder stores a copy of the order, assigning the next order number
// and tracking number under the lock.
func (m *Memory) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.orderNumber++
	order.OrderNumber = m.orderNumber
	order.TrackingNumber = fmt.Sprintf("TRK%06d", m.orderNumber)

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	m.orders = append(m.orders, &stored)

	kept := make([]models.OrderItem, len(items))
	for i := range items {
		m.itemID++
		items[i].ID = m.itemID
		items[i].OrderID = order.ID
		kept[i] = items[i]
	}
	m.items[order.ID] = kept

	return nil
}

func (m *Memory) findOrder(id string) *models.Order {
	for _, o := range m.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// GetOrderByID returns copies so callers cannot mutate stored state.
func (m *Memory) GetOrderByID(ctx context.Context, id string) (*models.Order, []models.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := m.findOrder(id)
	if o == nil {
		return nil, nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	order := *o
	items := append([]models.OrderItem(nil), m.items[id]...)
	return &order, items, nil
}

// GetOrderByTracking retrieves an order by its tracking number.
func (m *Memory) GetOrderByTracking(ctx context.Context, trackingNumber string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if o.TrackingNumber == trackingNumber {
			order := *o
			return &order, nil
		}
	}
	return nil, fmt.Errorf("tracking number %s: %w", trackingNumber, ErrNotFound)
}

// UpdateOrderStatus overwrites the order status.
func (m *Memory) UpdateOrderStatus(ctx context.Context, id, status string, actualDelivery *time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := m.findOrder(id)
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.Status = status
	if actualDelivery != nil {
		t := *actualDelivery
		o.ActualDelivery = &t
	}
	o.UpdatedAt = time.Now().UTC()
	order := *o
	return &order, nil
}

// MarkOrderPaid completes the payment and promotes a pending order to paid.
func (m *Memory) MarkOrderPaid(ctx context.Context, id string, paidAt time.Time) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o := m.findOrder(id)
	if o == nil {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if o.PaymentStatus == models.PaymentStatusCompleted {
		return nil, fmt.Errorf("order %s: %w", id, ErrAlreadyPaid)
	}
	o.PaymentStatus = models.PaymentStatusCompleted
	t := paidAt
	o.PaymentDate = &t
	if o.Status == models.OrderStatusPending {
		o.Status = models.OrderStatusPaid
	}
	o.UpdatedAt = time.Now().UTC()
	order := *o
	return &order, nil
}

// ListOrders returns a newest-first page and the total match count.
func (m *Memory) ListOrders(ctx context.Context, status string, limit, offset int) ([]models.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*models.Order{}
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			matched = append(matched, o)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].OrderNumber > matched[j].OrderNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if offset >= total {
		return []models.Order{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]models.Order, 0, end-offset)
	for _, o := range matched[offset:end] {
		page = append(page, *o)
	}
	return page, total, nil
}

// AppendOrderEvent appends to the status audit log.
func (m *Memory) AppendOrderEvent(ctx context.Context, ev *models.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventID++
	ev.ID = m.eventID
	m.events = append(m.events, *ev)
	return nil
}

// ListOrderEvents returns the audit log for one order, oldest first.
func (m *Memory) ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := []models.OrderEvent{}
	for _, ev := range m.events {
		if ev.OrderID == orderID {
			events = append(events, ev)
		}
	}
	return events, nil
}

// ListProducts applies the conjunctive filters over active products.
func (m *Memory) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []*models.Product{}
	for _, p := range m.products {
		if !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.AgeGroup != "" && p.AgeGroup != f.AgeGroup {
			continue
		}
		if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
			continue
		}
		if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		if f.InStock && (!p.InStock || p.StockQuantity <= 0) {
			continue
		}
		matched = append(matched, p)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return []models.Product{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}

	page := make([]models.Product, 0, end-f.Offset)
	for _, p := range matched[f.Offset:end] {
		page = append(page, *p)
	}
	return page, total, nil
}

// GetProductByID retrieves a product by ID
func (m *Memory) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	product := *p
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (m *Memory) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	products := []models.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			products = append(products, *p)
		}
	}
	return products, nil
}

// AdjustStock applies the delta under the lock, clamps stock at zero and
// reconciles the in-stock flag.
func (m *Memory) AdjustStock(ctx context.Context, id int64, delta int) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	newStock := p.StockQuantity + delta
	if newStock < 0 {
		newStock = 0
	}
	p.StockQuantity = newStock
	p.InStock = newStock > 0
	p.UpdatedAt = time.Now().UTC()

	product := *p
	return &product, nil
}

// CreateProduct inserts a catalog product.
func (m *Memory) CreateProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.productID++
	p.ID = m.productID
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	stored := *p
	m.products[p.ID] = &stored
	return nil
}

// CountProducts reports how many products exist, active or not.
func (m *Memory) CountProducts(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}
