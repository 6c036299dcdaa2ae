package service

import (
	"fmt"

	"settlement-service/internal/models"
)

// cancelOutcome is the computed effect of a cancellation on one order
// aggregate, before anything is persisted.
type cancelOutcome struct {
	RemovedItems      []models.OrderItem
	RemovedItemIDs    []int64
	RemovedSchedules  []int64
	CancelledLegIDs   []string
	CancelledSubtotal int64
	RefundPoint       int64

	TotalProductPrice int64
	TotalQuantity     int
	TotalPrice        int64
	UsedPoint         int64
	OrderStatus       string
	PaymentStatus     string
}

// computePartialCancel removes the item/leg/schedule group tied to one
// payment leg and recomputes the order's aggregates from what remains.
// Order status is never touched by a partial cancellation.
//
// With an empty payment id the target is a point-only add-on: the earliest
// addition event owning unpaid added items is cancelled as a group.
func computePartialCancel(agg *models.OrderAggregate, paymentID string) (*cancelOutcome, error) {
	out := &cancelOutcome{
		OrderStatus:   agg.Order.OrderStatus,
		PaymentStatus: agg.Order.PaymentStatus,
	}

	var additionEventID int64
	if paymentID == models.PointOnlyPaymentID {
		additionEventID = earliestAdditionEvent(agg.Items)
		if additionEventID == 0 {
			return nil, fmt.Errorf("%w: no point-only added items to cancel", ErrInvalidRequest)
		}
	} else if !agg.HasPaymentID(paymentID) {
		return nil, fmt.Errorf("%w: payment %s does not belong to order %d", ErrInvalidRequest, paymentID, agg.Order.ID)
	}

	for _, item := range agg.Items {
		if itemMatches(item, paymentID, additionEventID) {
			out.RemovedItems = append(out.RemovedItems, item)
			out.RemovedItemIDs = append(out.RemovedItemIDs, item.ID)
			out.CancelledSubtotal += item.LineTotal()
			continue
		}
		out.TotalProductPrice += item.LineTotal()
		out.TotalQuantity += item.Quantity
	}

	for _, sched := range agg.Schedules {
		if paymentID != models.PointOnlyPaymentID && sched.PaymentID == paymentID {
			out.RemovedSchedules = append(out.RemovedSchedules, sched.ID)
		}
		if paymentID == models.PointOnlyPaymentID && sched.AdditionEventID == additionEventID {
			out.RemovedSchedules = append(out.RemovedSchedules, sched.ID)
		}
	}

	var legPoint int64
	for _, leg := range agg.Legs {
		if leg.ID == paymentID && paymentID != models.PointOnlyPaymentID {
			out.CancelledLegIDs = append(out.CancelledLegIDs, leg.ID)
			legPoint = leg.UsedPoint
		}
	}

	out.RefundPoint = resolveRefundPoint(legPoint, out.CancelledSubtotal,
		agg.Order.TotalProductPrice, agg.Order.UsedPoint)
	out.UsedPoint = agg.Order.UsedPoint - out.RefundPoint
	out.TotalPrice = out.TotalProductPrice + agg.Order.DeliveryFee

	return out, nil
}

// computeFullCancel refunds the whole order: every leg is cancelled, payment
// status flips to refunded, and the order status depends on who cancelled
// and whether the order had been accepted yet.
func computeFullCancel(agg *models.OrderAggregate, isPartnerCancel bool) *cancelOutcome {
	out := &cancelOutcome{
		TotalProductPrice: agg.Order.TotalProductPrice,
		TotalQuantity:     agg.Order.TotalQuantity,
		TotalPrice:        agg.Order.TotalPrice,
		UsedPoint:         agg.Order.UsedPoint,
		PaymentStatus:     models.PaymentStatusRefunded,
		RefundPoint:       agg.Order.UsedPoint,
		CancelledSubtotal: agg.Order.TotalProductPrice,
	}

	switch {
	case isPartnerCancel:
		out.OrderStatus = models.OrderStatusRejected
	case agg.Order.OrderStatus == models.OrderStatusPending:
		out.OrderStatus = models.OrderStatusCancelledBeforeAccept
	default:
		out.OrderStatus = models.OrderStatusCancelled
	}

	for _, leg := range agg.Legs {
		out.CancelledLegIDs = append(out.CancelledLegIDs, leg.ID)
	}
	out.RemovedItems = agg.Items

	return out
}

// resolveRefundPoint prefers the points recorded directly on the cancelled
// leg; without that it falls back to a proportional share of the order's
// used points, floored. The result never exceeds what the order has left.
func resolveRefundPoint(legPoint, cancelledSubtotal, originalProductPrice, usedPoint int64) int64 {
	refund := legPoint
	if refund == 0 && originalProductPrice > 0 {
		refund = cancelledSubtotal * usedPoint / originalProductPrice
	}
	if refund > usedPoint {
		refund = usedPoint
	}
	if refund < 0 {
		refund = 0
	}
	return refund
}

// earliestAdditionEvent picks the lowest addition-event id among point-only
// added items, 0 when there is none.
func earliestAdditionEvent(items []models.OrderItem) int64 {
	var earliest int64
	for _, item := range items {
		if !item.IsAddItem || item.PaymentID != models.PointOnlyPaymentID || item.AdditionEventID == 0 {
			continue
		}
		if earliest == 0 || item.AdditionEventID < earliest {
			earliest = item.AdditionEventID
		}
	}
	return earliest
}

func itemMatches(item models.OrderItem, paymentID string, additionEventID int64) bool {
	if paymentID != models.PointOnlyPaymentID {
		return item.PaymentID == paymentID
	}
	return item.AdditionEventID == additionEventID
}
