package models

import "time"

// Event types
const (
	EventTypeOrderCancelled = "ORDER_CANCELLED"
	EventTypePointsRefunded = "POINTS_REFUNDED"
	EventTypeOrderSettled   = "ORDER_SETTLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCancelledEvent is published after a cancellation completes locally.
// The notification worker turns it into the best-effort partner/customer
// notification; a publish or delivery failure never rolls the cancellation
// back.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID         int64   `json:"order_id"`
	OrderNumber     string  `json:"order_number"`
	PaymentID       string  `json:"payment_id,omitempty"`
	PartnerID       int64   `json:"partner_id"`
	UserID          int64   `json:"user_id"`
	StoreName       string  `json:"store_name"`
	CancelAmount    int64   `json:"cancel_amount"`
	RefundAmount    int64   `json:"refund_amount"`
	RefundPoint     int64   `json:"refund_point"`
	RefundRate      float64 `json:"refund_rate"`
	Reason          string  `json:"reason"`
	IsPartialCancel bool    `json:"is_partial_cancel"`
	IsPartnerCancel bool    `json:"is_partner_cancel"`
}

// PointsRefundedEvent is published when a cancellation credits points back.
type PointsRefundedEvent struct {
	BaseEvent
	UID     int64 `json:"uid"`
	OrderID int64 `json:"order_id"`
	Amount  int64 `json:"amount"`
}

// OrderSettledEvent is published once per settlement batch.
type OrderSettledEvent struct {
	BaseEvent
	PartnerID    int64   `json:"partner_id"`
	OrderIDs     []int64 `json:"order_ids"`
	SettledCount int     `json:"settled_count"`
}
