package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/pricing"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const deliveryEstimate = 3 * 24 * time.Hour

// OrderService drives the order lifecycle: validation, pricing,
// persistence, payment confirmation and status/tracking queries.
type OrderService struct {
	store      store.Store
	publisher  *broker.EventPublisher
	pricingCfg pricing.Config
	logger     *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(st store.Store, publisher *broker.EventPublisher, pricingCfg pricing.Config) *OrderService {
	return &OrderService{
		store:      st,
		publisher:  publisher,
		pricingCfg: pricingCfg,
		logger:     util.GetLogger(),
	}
}

// OrderItemRequest references a catalog product; the authoritative unit
// price is resolved from the catalog, never taken from the client.
type OrderItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// PaymentDetailsRequest carries raw card input; only the redacted last
// four digits are ever stored.
type PaymentDetailsRequest struct {
	CardNumber string `json:"cardNumber"`
	CardType   string `json:"cardType"`
}

// CreateOrderRequest is the checkout submission body.
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	CustomerInfo    models.CustomerInfo    `json:"customerInfo"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod"`
	PaymentDetails  *PaymentDetailsRequest `json:"paymentDetails,omitempty"`
}

// OrderSummary is the reduced view returned from order creation.
type OrderSummary struct {
	OrderID           string         `json:"orderId"`
	OrderNumber       int64          `json:"orderNumber"`
	Status            string         `json:"status"`
	PaymentStatus     string         `json:"paymentStatus"`
	TrackingNumber    string         `json:"trackingNumber"`
	EstimatedDelivery time.Time      `json:"estimatedDelivery"`
	Totals            pricing.Totals `json:"totals"`
}

// OrderListEntry is one row of the admin order listing.
type OrderListEntry struct {
	ID             string          `json:"id"`
	OrderNumber    int64           `json:"orderNumber"`
	Status         string          `json:"status"`
	CustomerName   string          `json:"customerName"`
	CustomerEmail  string          `json:"customerEmail"`
	Total          decimal.Decimal `json:"total"`
	TrackingNumber string          `json:"trackingNumber"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// TrackingEvent is one synthesized milestone in the tracking view.
type TrackingEvent struct {
	Date        time.Time `json:"date"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}

// TrackingView is the reduced customer-facing view for a tracking number.
// The full shipping address is withheld; only city and country appear.
// The event list is re-derived from the current status on every call.
type TrackingView struct {
	OrderID           string          `json:"orderId"`
	OrderNumber       int64           `json:"orderNumber"`
	Status            string          `json:"status"`
	TrackingNumber    string          `json:"trackingNumber"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	CreatedAt         time.Time       `json:"createdAt"`
	City              string          `json:"city"`
	Country           string          `json:"country"`
	TrackingEvents    []TrackingEvent `json:"trackingEvents"`
}

func validateCreateOrder(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return util.ValidationError("invalid_order_items", "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return util.ValidationError("invalid_order_items", "item quantity must be at least 1")
		}
	}
	ci := req.CustomerInfo
	if ci.Email == "" || ci.FirstName == "" || ci.LastName == "" {
		return util.ValidationError("invalid_customer_info",
			"customer email, first name, and last name are required")
	}
	sa := req.ShippingAddress
	if sa.Address == "" || sa.City == "" || sa.PostalCode == "" {
		return util.ValidationError("invalid_shipping_address", "complete shipping address is required")
	}
	if req.PaymentMethod != "" && !models.ValidPaymentMethod(req.PaymentMethod) {
		return util.ValidationError("invalid_payment_method",
			"payment method %q is not supported", req.PaymentMethod)
	}
	return nil
}

// CreateOrder validates the submission, snapshots product data, computes
// totals and persists the order. For card orders the payment is confirmed
// synchronously through the same seam a real gateway would use.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderSummary, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateCreateOrder(req); err != nil {
		if e, ok := util.AsError(err); ok {
			util.OrdersRejectedTotal.WithLabelValues(e.Label).Inc()
		}
		return nil, err
	}

	products, err := s.resolveProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	lines := make([]pricing.Item, 0, len(req.Items))
	for _, reqItem := range req.Items {
		product := products[reqItem.ProductID]
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Image:     product.Image,
			UnitPrice: product.Price,
			Quantity:  reqItem.Quantity,
			Total:     pricing.LineTotal(product.Price, reqItem.Quantity),
		})
		lines = append(lines, pricing.Item{UnitPrice: product.Price, Quantity: reqItem.Quantity})
	}
	totals := pricing.Calculate(lines, s.pricingCfg)

	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentMethodCashOnDelivery
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:                uuid.New().String(),
		Status:            models.OrderStatusPending,
		PaymentStatus:     models.PaymentStatusPending,
		PaymentMethod:     method,
		CustomerInfo:      req.CustomerInfo,
		ShippingAddress:   req.ShippingAddress,
		Subtotal:          totals.Subtotal,
		Tax:               totals.Tax,
		Shipping:          totals.Shipping,
		Discount:          totals.Discount,
		Total:             totals.Total,
		EstimatedDelivery: now.Add(deliveryEstimate),
	}
	if order.ShippingAddress.Country == "" {
		order.ShippingAddress.Country = "Egypt"
	}
	if method == models.PaymentMethodCard {
		order.PaymentDetails = models.CardDetails(cardLast4(req.PaymentDetails), cardType(req.PaymentDetails))
	}

	if err := s.store.CreateOrder(ctx, order, items); err != nil {
		util.OrdersRejectedTotal.WithLabelValues("store_error").Inc()
		return nil, util.InternalError("failed to create order", err)
	}

	util.OrdersCreatedTotal.WithLabelValues(method).Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("order_number", order.OrderNumber),
		zap.String("tracking_number", order.TrackingNumber))

	s.publishOrderCreated(ctx, order, len(items))

	if method == models.PaymentMethodCard {
		confirmed, err := s.ConfirmPayment(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order = confirmed
	}

	return &OrderSummary{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		PaymentStatus:     order.PaymentStatus,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		Totals:            totals,
	}, nil
}

func cardLast4(d *PaymentDetailsRequest) string {
	if d == nil || len(d.CardNumber) < 4 {
		return "****"
	}
	return d.CardNumber[len(d.CardNumber)-4:]
}

func cardType(d *PaymentDetailsRequest) string {
	if d == nil || d.CardType == "" {
		return "unknown"
	}
	return d.CardType
}

func (s *OrderService) resolveProducts(ctx context.Context, items []OrderItemRequest) (map[int64]models.Product, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	found, err := s.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, util.InternalError("failed to resolve products", err)
	}

	byID := make(map[int64]models.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok || !p.IsActive {
			util.OrdersRejectedTotal.WithLabelValues("unknown_product").Inc()
			return nil, util.ValidationError("invalid_order_items",
				"product %d does not exist", item.ProductID)
		}
	}
	return byID, nil
}

// ConfirmPayment completes the payment on an order and promotes a pending
// order to paid. It is a separate operation so a real payment gateway can
// slot in without touching order creation.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ConfirmPayment")
	defer span.End()

	current, _, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}

	// The completed-payment guard lives in the store's atomic update, so
	// concurrent confirmations cannot both pass.
	order, err := s.store.MarkOrderPaid(ctx, orderID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrAlreadyPaid) {
			return nil, util.ConflictError("payment_already_completed",
				"payment for order %s is already completed", orderID)
		}
		return nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}

	util.PaymentsConfirmedTotal.Inc()
	s.logger.Info("Payment confirmed",
		zap.String("order_id", order.ID),
		zap.String("method", order.PaymentMethod))

	s.publishPaymentConfirmed(ctx, order)
	if current.Status != order.Status {
		s.publishStatusChanged(ctx, order.ID, current.Status, order.Status, "payment confirmed")
	}

	return order, nil
}

// GetOrder returns the full order and its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, items, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}
	return order, items, nil
}

// GetOrderByTracking returns the reduced tracking view for a tracking
// number.
func (s *OrderService) GetOrderByTracking(ctx context.Context, trackingNumber string) (*TrackingView, error) {
	order, err := s.store.GetOrderByTracking(ctx, trackingNumber)
	if err != nil {
		return nil, translateStoreErr(err, "order_not_found",
			"order with tracking number %s does not exist", trackingNumber)
	}

	return &TrackingView{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            order.Status,
		TrackingNumber:    order.TrackingNumber,
		EstimatedDelivery: order.EstimatedDelivery,
		CreatedAt:         order.CreatedAt,
		City:              order.ShippingAddress.City,
		Country:           order.ShippingAddress.Country,
		TrackingEvents:    deriveTrackingEvents(order),
	}, nil
}

// deriveTrackingEvents synthesizes the milestone list from the current
// status. It is not an audit log: intermediate transitions that were
// skipped do not appear (the durable history lives in the order event
// log).
func deriveTrackingEvents(order *models.Order) []TrackingEvent {
	events := []TrackingEvent{{
		Date:        order.CreatedAt,
		Status:      "Order Placed",
		Description: "Your order has been received and is being processed",
	}}

	if order.Status == models.OrderStatusPaid || order.Status == models.OrderStatusProcessing {
		paidAt := order.CreatedAt
		if order.PaymentDate != nil {
			paidAt = *order.PaymentDate
		}
		events = append(events, TrackingEvent{
			Date:        paidAt,
			Status:      "Payment Confirmed",
			Description: "Payment has been processed successfully",
		})
	}
	if order.Status == models.OrderStatusShipped {
		events = append(events, TrackingEvent{
			Date:        order.UpdatedAt,
			Status:      "Shipped",
			Description: "Your order has been shipped and is on its way",
		})
	}
	if order.Status == models.OrderStatusDelivered {
		events = append(events, TrackingEvent{
			Date:        order.UpdatedAt,
			Status:      "Delivered",
			Description: "Your order has been delivered successfully",
		})
	}
	return events
}

// UpdateStatus overwrites the order status so operators can correct
// records. Every transition is audited through the event stream rather
// than gated by a legality table.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, util.ValidationError("invalid_status",
			"status must be one of: %v", models.OrderStatuses)
	}

	current, _, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}

	var actualDelivery *time.Time
	if status == models.OrderStatusDelivered {
		now := time.Now().UTC()
		actualDelivery = &now
	}

	order, err := s.store.UpdateOrderStatus(ctx, orderID, status, actualDelivery)
	if err != nil {
		return nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(current.Status, status).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", current.Status),
		zap.String("to", status))

	s.publishStatusChanged(ctx, orderID, current.Status, status, "status updated")

	return order, nil
}

// ListOrders returns a newest-first page of order summaries plus the
// total number of matches.
func (s *OrderService) ListOrders(ctx context.Context, status string, limit, offset int) ([]OrderListEntry, int, error) {
	if status != "" && !models.ValidOrderStatus(status) {
		return nil, 0, util.ValidationError("invalid_status",
			"status must be one of: %v", models.OrderStatuses)
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.store.ListOrders(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, util.InternalError("failed to list orders", err)
	}

	entries := make([]OrderListEntry, 0, len(orders))
	for _, o := range orders {
		entries = append(entries, OrderListEntry{
			ID:             o.ID,
			OrderNumber:    o.OrderNumber,
			Status:         o.Status,
			CustomerName:   fmt.Sprintf("%s %s", o.CustomerInfo.FirstName, o.CustomerInfo.LastName),
			CustomerEmail:  o.CustomerInfo.Email,
			Total:          o.Total,
			TrackingNumber: o.TrackingNumber,
			CreatedAt:      o.CreatedAt,
		})
	}
	return entries, total, nil
}

// ListOrderEvents returns the append-only audit log for one order.
func (s *OrderService) ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	if _, _, err := s.store.GetOrderByID(ctx, orderID); err != nil {
		return nil, translateStoreErr(err, "order_not_found", "order %s does not exist", orderID)
	}
	events, err := s.store.ListOrderEvents(ctx, orderID)
	if err != nil {
		return nil, util.InternalError("failed to list order events", err)
	}
	return events, nil
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *models.Order, itemCount int) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderCreatedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeOrderCreated),
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		TrackingNumber: order.TrackingNumber,
		Status:         order.Status,
		PaymentMethod:  order.PaymentMethod,
		Total:          order.Total,
		ItemCount:      itemCount,
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}
}

func (s *OrderService) publishStatusChanged(ctx context.Context, orderID, from, to, note string) {
	if s.publisher == nil {
		return
	}
	event := &models.OrderStatusChangedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderStatusChanged),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		Note:       note,
	}
	if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}
}

func (s *OrderService) publishPaymentConfirmed(ctx context.Context, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := &models.PaymentConfirmedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentConfirmed),
		OrderID:   order.ID,
		Method:    order.PaymentMethod,
		Amount:    order.Total,
	}
	if err := s.publisher.PublishPaymentConfirmed(ctx, event); err != nil {
		s.logger.Error("Failed to publish PaymentConfirmed event", zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

func translateStoreErr(err error, label, format string, args ...interface{}) error {
	if errors.Is(err, store.ErrNotFound) {
		return util.NotFoundError(label, format, args...)
	}
	return util.InternalError("storage failure", err)
}
