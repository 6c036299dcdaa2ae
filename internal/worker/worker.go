package worker

import (
	"context"

	"settlement-service/internal/broker"
	"settlement-service/internal/models"
	"settlement-service/internal/notifier"
	"settlement-service/internal/util"

	"go.uber.org/zap"
)

// NotificationWorker consumes OrderCancelled events and delivers the
// best-effort partner/customer notifications. It runs entirely outside the
// cancellation critical path; a failed delivery is logged and the event
// committed anyway.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	notifier     notifier.Notifier
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, n notifier.Notifier) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		notifier: n,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCancelled(w.handleOrderCancelled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	notice := notifier.Notice{
		PartnerID:    event.PartnerID,
		UserID:       event.UserID,
		StoreName:    event.StoreName,
		OrderNumber:  event.OrderNumber,
		CancelAmount: event.CancelAmount,
		RefundAmount: event.RefundAmount,
		RefundRate:   event.RefundRate,
		Reason:       event.Reason,
		IsPartial:    event.IsPartialCancel,
	}

	if err := w.notifier.NotifyCancellation(ctx, notice); err != nil {
		// Best effort only. Returning nil commits the message so the
		// notification is never retried into the critical path.
		w.logger.Error("Cancellation notification failed",
			zap.String("order_number", event.OrderNumber),
			zap.Error(err))
	}
	return nil
}
