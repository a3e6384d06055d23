package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*AuditWorker, store.Store) {
	t.Helper()
	st := store.NewMemory()
	return NewAuditWorker(nil, st), st
}

func eventMessage(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestAuditWorkerRecordsOrderCreated(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	handler := broker.NewEventHandler()
	handler.OnOrderCreated(w.handleOrderCreated)

	msg := eventMessage(t, &models.OrderCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderCreated,
			Timestamp: time.Now().UTC(),
		},
		OrderID:     "order-1",
		OrderNumber: 1001,
		Status:      models.OrderStatusPending,
		Total:       decimal.NewFromFloat(63.99),
		ItemCount:   2,
	})
	require.NoError(t, handler.HandleMessage(ctx, msg))

	events, err := st.ListOrderEvents(ctx, "order-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.OrderStatusPending, events[0].ToStatus)
	assert.Contains(t, events[0].Note, "#1001")
	assert.Contains(t, events[0].Note, "63.99")
}

func TestAuditWorkerRecordsStatusChange(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	handler := broker.NewEventHandler()
	handler.OnOrderStatusChanged(w.handleOrderStatusChanged)

	msg := eventMessage(t, &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-2",
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now().UTC(),
		},
		OrderID:    "order-2",
		FromStatus: models.OrderStatusPaid,
		ToStatus:   models.OrderStatusShipped,
		Note:       "left the warehouse",
	})
	require.NoError(t, handler.HandleMessage(ctx, msg))

	events, err := st.ListOrderEvents(ctx, "order-2")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.OrderStatusPaid, events[0].FromStatus)
	assert.Equal(t, models.OrderStatusShipped, events[0].ToStatus)
	assert.Equal(t, "left the warehouse", events[0].Note)
}

func TestAuditWorkerRecordsPaymentConfirmed(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	handler := broker.NewEventHandler()
	handler.OnPaymentConfirmed(w.handlePaymentConfirmed)

	msg := eventMessage(t, &models.PaymentConfirmedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-3",
			EventType: models.EventTypePaymentConfirmed,
			Timestamp: time.Now().UTC(),
		},
		OrderID: "order-3",
		Method:  models.PaymentMethodCard,
		Amount:  decimal.NewFromFloat(108.00),
	})
	require.NoError(t, handler.HandleMessage(ctx, msg))

	events, err := st.ListOrderEvents(ctx, "order-3")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.OrderStatusPaid, events[0].ToStatus)
	assert.Contains(t, events[0].Note, "card")
}

func TestHandleMessageIgnoresUnknownType(t *testing.T) {
	w, st := newTestWorker(t)
	ctx := context.Background()

	handler := broker.NewEventHandler()
	handler.OnOrderCreated(w.handleOrderCreated)

	msg := eventMessage(t, &models.BaseEvent{
		EventID:   "evt-4",
		EventType: "SOMETHING_ELSE",
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, handler.HandleMessage(ctx, msg))

	events, err := st.ListOrderEvents(ctx, "order-4")
	require.NoError(t, err)
	assert.Empty(t, events)
}
