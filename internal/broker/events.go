package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"settlement-service/internal/models"
	"settlement-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPointsRefunded publishes PointsRefunded event
func (ep *EventPublisher) PublishPointsRefunded(ctx context.Context, event *models.PointsRefundedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderSettled publishes OrderSettled event
func (ep *EventPublisher) PublishOrderSettled(ctx context.Context, event *models.OrderSettledEvent) error {
	key := fmt.Sprintf("partner-%d", event.PartnerID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered handlers
type EventHandler struct {
	onOrderCancelled func(context.Context, *models.OrderCancelledEvent) error
	onOrderSettled   func(context.Context, *models.OrderSettledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// OnOrderSettled registers a handler for OrderSettled events
func (eh *EventHandler) OnOrderSettled(handler func(context.Context, *models.OrderSettledEvent) error) {
	eh.onOrderSettled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			return eh.onOrderCancelled(ctx, &event)
		}

	case models.EventTypeOrderSettled:
		if eh.onOrderSettled != nil {
			var event models.OrderSettledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderSettled event: %w", err)
			}
			return eh.onOrderSettled(ctx, &event)
		}

	default:
		util.GetLogger().Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
