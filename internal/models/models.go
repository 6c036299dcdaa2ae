package models

import "time"

// Order statuses
const (
	OrderStatusPending               = "PENDING"
	OrderStatusAccepted              = "ACCEPTED"
	OrderStatusRejected              = "REJECTED"
	OrderStatusPreparing             = "PREPARING"
	OrderStatusShipping              = "SHIPPING"
	OrderStatusDelivered             = "DELIVERED"
	OrderStatusCompleted             = "COMPLETED"
	OrderStatusCancelled             = "CANCELLED"
	OrderStatusCancelledBeforeAccept = "CANCELLED_BEFORE_ACCEPT"
)

// Payment statuses
const (
	PaymentStatusUnpaid   = "UNPAID"
	PaymentStatusPaid     = "PAID"
	PaymentStatusRefunded = "REFUNDED"
)

// Payment-leg statuses
const (
	PaymentLegStatusPaid      = "PAID"
	PaymentLegStatusCancelled = "CANCELLED"
)

// Settlement statuses
const (
	SettlementStatusPending   = "PENDING"
	SettlementStatusCompleted = "COMPLETED"
)

// PointOnlyPaymentID marks an item or request paid entirely with loyalty
// points; such legs never touch the payment gateway.
const PointOnlyPaymentID = ""

// Point ledger entry types
const (
	PointTypeEarned = "EARNED"
	PointTypeUsed   = "USED"
	PointTypeRefund = "REFUND"
)

// Quick-delivery subsidy policy modes
const (
	QuickDeliveryFree        = "FREE"
	QuickDeliveryConditional = "CONDITIONAL"
	QuickDeliveryCharged     = "CHARGED"
)

// Order is the canonical order aggregate. TotalProductPrice is always the
// sum of the remaining items' ItemPrice, and TotalPrice is
// TotalProductPrice + DeliveryFee.
type Order struct {
	ID                int64      `db:"id" json:"id"`
	OrderNumber       string     `db:"order_number" json:"order_number"`
	UserID            int64      `db:"user_id" json:"user_id"`
	PartnerID         int64      `db:"partner_id" json:"partner_id"`
	StoreName         string     `db:"store_name" json:"store_name"`
	TotalProductPrice int64      `db:"total_product_price" json:"total_product_price"`
	TotalQuantity     int        `db:"total_quantity" json:"total_quantity"`
	TotalPrice        int64      `db:"total_price" json:"total_price"`
	DeliveryFee       int64      `db:"delivery_fee" json:"delivery_fee"`
	UsedPoint         int64      `db:"used_point" json:"used_point"`
	OrderStatus       string     `db:"order_status" json:"order_status"`
	PaymentStatus     string     `db:"payment_status" json:"payment_status"`
	SettlementStatus  string     `db:"settlement_status" json:"settlement_status"`
	SettlementDate    *time.Time `db:"settlement_date" json:"settlement_date,omitempty"`
	FeeRate           *float64   `db:"fee_rate" json:"fee_rate,omitempty"`
	Version           int64      `db:"version" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderItem is one line of an order. ItemPrice is the authoritative line
// total; Price*Quantity is only a fallback when ItemPrice is zero.
type OrderItem struct {
	ID              int64  `db:"id" json:"id"`
	OrderID         int64  `db:"order_id" json:"order_id"`
	ProductID       int64  `db:"product_id" json:"product_id"`
	Price           int64  `db:"price" json:"price"`
	Quantity        int    `db:"quantity" json:"quantity"`
	ItemPrice       int64  `db:"item_price" json:"item_price"`
	PaymentID       string `db:"payment_id" json:"payment_id"`
	IsAddItem       bool   `db:"is_add_item" json:"is_add_item"`
	AdditionEventID int64  `db:"addition_event_id" json:"addition_event_id,omitempty"`
}

// LineTotal returns ItemPrice when present, Price*Quantity otherwise.
func (it OrderItem) LineTotal() int64 {
	if it.ItemPrice > 0 {
		return it.ItemPrice
	}
	return it.Price * int64(it.Quantity)
}

// PaymentLeg is one payment against an order. UsedPoint is the points spent
// under this leg specifically and is the source of truth for refund
// attribution on partial cancellation.
type PaymentLeg struct {
	ID        string    `db:"id" json:"id"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	Amount    int64     `db:"amount" json:"amount"`
	UsedPoint int64     `db:"used_point" json:"used_point"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DeliverySchedule is a delivery-scheduling sub-record tied to a payment leg
// (or to an addition event for point-only add-ons).
type DeliverySchedule struct {
	ID              int64     `db:"id" json:"id"`
	OrderID         int64     `db:"order_id" json:"order_id"`
	PaymentID       string    `db:"payment_id" json:"payment_id"`
	AdditionEventID int64     `db:"addition_event_id" json:"addition_event_id,omitempty"`
	ScheduledAt     time.Time `db:"scheduled_at" json:"scheduled_at"`
}

// OrderAggregate bundles an order with its items, payment legs and delivery
// schedules. The store always hands legs back as an ordered list, whatever
// shape the rows arrived in.
type OrderAggregate struct {
	Order     Order
	Items     []OrderItem
	Legs      []PaymentLeg
	Schedules []DeliverySchedule
}

// HasPaymentID reports whether the aggregate's payment-id set contains id.
func (a *OrderAggregate) HasPaymentID(id string) bool {
	for _, leg := range a.Legs {
		if leg.ID == id {
			return true
		}
	}
	return false
}

// CancellationRecord is the immutable audit entry written once per
// cancellation. Never updated, never deleted.
type CancellationRecord struct {
	ID              string    `db:"id" json:"id"`
	OrderID         int64     `db:"order_id" json:"order_id"`
	PaymentID       string    `db:"payment_id" json:"payment_id"`
	Reason          string    `db:"reason" json:"reason"`
	RefundAmount    int64     `db:"refund_amount" json:"refund_amount"`
	RefundPoint     int64     `db:"refund_point" json:"refund_point"`
	IsPartnerCancel bool      `db:"is_partner_cancel" json:"is_partner_cancel"`
	IsPartialCancel bool      `db:"is_partial_cancel" json:"is_partial_cancel"`
	StatusBefore    string    `db:"status_before" json:"status_before"`
	StatusAfter     string    `db:"status_after" json:"status_after"`
	ItemSnapshot    string    `db:"item_snapshot" json:"item_snapshot"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// PointLedgerEntry is one append-only credit or debit. Amount is signed.
type PointLedgerEntry struct {
	ID        int64     `db:"id" json:"id"`
	UID       int64     `db:"uid" json:"uid"`
	Amount    int64     `db:"amount" json:"amount"`
	Type      string    `db:"type" json:"type"`
	Reason    string    `db:"reason" json:"reason"`
	OrderID   int64     `db:"order_id" json:"order_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PointBalance is the running sum of a user's ledger entries.
type PointBalance struct {
	UID       int64     `db:"uid" json:"uid"`
	Balance   int64     `db:"balance" json:"balance"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CommissionConfig is the persisted tiered commission schedule. A partner's
// first PromotionalOrderCount eligible orders carry PromotionalRate, the rest
// StandardRate.
type CommissionConfig struct {
	ID                    int64     `db:"id" json:"id"`
	PromotionalOrderCount int       `db:"promotional_order_count" json:"promotional_order_count"`
	PromotionalRate       float64   `db:"promotional_rate" json:"promotional_rate"`
	StandardRate          float64   `db:"standard_rate" json:"standard_rate"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

// QuickDeliveryPolicy describes who bears the quick-courier fee for a
// partner's orders.
type QuickDeliveryPolicy struct {
	PartnerID      int64  `db:"partner_id" json:"partner_id"`
	Mode           string `db:"mode" json:"mode"`
	SubsidyCap     int64  `db:"subsidy_cap" json:"subsidy_cap"`
	OrderThreshold int64  `db:"order_threshold" json:"order_threshold"`
}

// SettlementSummary is the read-side aggregate for a partner over an
// optional date window, split by settlement status.
type SettlementSummary struct {
	PartnerID         int64               `json:"partner_id"`
	TotalSales        int64               `json:"total_sales"`
	PlatformFee       int64               `json:"platform_fee"`
	QuickDeliveryCost int64               `json:"quick_delivery_cost"`
	TotalSettlement   int64               `json:"total_settlement"`
	Pending           SettlementSubtotals `json:"pending"`
	Completed         SettlementSubtotals `json:"completed"`
}

// SettlementSubtotals is one status bucket of a SettlementSummary.
type SettlementSubtotals struct {
	OrderCount        int   `json:"order_count"`
	TotalSales        int64 `json:"total_sales"`
	PlatformFee       int64 `json:"platform_fee"`
	QuickDeliveryCost int64 `json:"quick_delivery_cost"`
	TotalSettlement   int64 `json:"total_settlement"`
}
