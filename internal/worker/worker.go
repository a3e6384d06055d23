package worker

import (
	"context"
	"fmt"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// AuditWorker consumes order lifecycle events and appends them to the
// order event log. The log is the queryable history behind an order's
// timeline; losing the worker loses audit rows, not orders.
type AuditWorker struct {
	consumer *broker.Consumer
	store    store.Store
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewAuditWorker wires a consumer and a store into a worker.
func NewAuditWorker(consumer *broker.Consumer, st store.Store) *AuditWorker {
	return &AuditWorker{
		consumer: consumer,
		store:    st,
		logger:   util.GetLogger(),
		done:     make(chan struct{}),
	}
}

// Start begins consuming in a background goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	handler := broker.NewEventHandler()
	handler.OnOrderCreated(w.handleOrderCreated)
	handler.OnOrderStatusChanged(w.handleOrderStatusChanged)
	handler.OnPaymentConfirmed(w.handlePaymentConfirmed)

	go func() {
		defer close(w.done)
		if err := w.consumer.StartConsuming(ctx, handler.HandleMessage); err != nil && ctx.Err() == nil {
			w.logger.Error("Audit consumer stopped", zap.Error(err))
		}
	}()

	w.logger.Info("Audit worker started")
}

// Stop cancels the consume loop and waits for it to exit.
func (w *AuditWorker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
	w.logger.Info("Audit worker stopped")
}

func (w *AuditWorker) handleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return w.append(ctx, &models.OrderEvent{
		OrderID:  event.OrderID,
		ToStatus: event.Status,
		Note: fmt.Sprintf("order #%d placed (%d items, %s total)",
			event.OrderNumber, event.ItemCount, event.Total.StringFixed(2)),
		CreatedAt: event.Timestamp,
	})
}

func (w *AuditWorker) handleOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return w.append(ctx, &models.OrderEvent{
		OrderID:    event.OrderID,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		Note:       event.Note,
		CreatedAt:  event.Timestamp,
	})
}

func (w *AuditWorker) handlePaymentConfirmed(ctx context.Context, event *models.PaymentConfirmedEvent) error {
	return w.append(ctx, &models.OrderEvent{
		OrderID:  event.OrderID,
		ToStatus: models.OrderStatusPaid,
		Note: fmt.Sprintf("payment of %s confirmed via %s",
			event.Amount.StringFixed(2), event.Method),
		CreatedAt: event.Timestamp,
	})
}

func (w *AuditWorker) append(ctx context.Context, ev *models.OrderEvent) error {
	if err := w.store.AppendOrderEvent(ctx, ev); err != nil {
		w.logger.Error("Failed to append order event",
			zap.String("order_id", ev.OrderID),
			zap.Error(err))
		return err
	}
	util.AuditEventsTotal.Inc()
	return nil
}
