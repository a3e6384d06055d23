package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypePaymentConfirmed   = "PAYMENT_CONFIRMED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is created
type OrderCreatedEvent struct {
	BaseEvent
	OrderID        string          `json:"orderId"`
	OrderNumber    int64           `json:"orderNumber"`
	TrackingNumber string          `json:"trackingNumber"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"paymentMethod"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"itemCount"`
}

// OrderStatusChangedEvent published on every status transition, including
// operator corrections. The audit worker turns these into OrderEvent rows.
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    string `json:"orderId"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	Note       string `json:"note,omitempty"`
}

// PaymentConfirmedEvent published when a payment completes
type PaymentConfirmedEvent struct {
	BaseEvent
	OrderID string          `json:"orderId"`
	Method  string          `json:"method"`
	Amount  decimal.Decimal `json:"amount"`
}
