package service

import (
	"testing"

	"settlement-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAggregate() *models.OrderAggregate {
	return &models.OrderAggregate{
		Order: models.Order{
			ID:                1,
			UserID:            42,
			TotalProductPrice: 30000,
			TotalQuantity:     3,
			TotalPrice:        33000,
			DeliveryFee:       3000,
			UsedPoint:         3000,
			OrderStatus:       models.OrderStatusAccepted,
			PaymentStatus:     models.PaymentStatusPaid,
		},
		Items: []models.OrderItem{
			{ID: 10, OrderID: 1, ProductID: 100, Price: 10000, Quantity: 2, ItemPrice: 20000, PaymentID: "pay-1"},
			{ID: 11, OrderID: 1, ProductID: 101, Price: 10000, Quantity: 1, ItemPrice: 10000, PaymentID: "pay-2", IsAddItem: true},
		},
		Legs: []models.PaymentLeg{
			{ID: "pay-1", OrderID: 1, Status: models.PaymentLegStatusPaid, Amount: 18000, UsedPoint: 2000},
			{ID: "pay-2", OrderID: 1, Status: models.PaymentLegStatusPaid, Amount: 9000, UsedPoint: 1000},
		},
		Schedules: []models.DeliverySchedule{
			{ID: 20, OrderID: 1, PaymentID: "pay-1"},
			{ID: 21, OrderID: 1, PaymentID: "pay-2"},
		},
	}
}

func TestPartialCancelRemovesExactlyTargetLeg(t *testing.T) {
	agg := sampleAggregate()

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	assert.Equal(t, []int64{11}, out.RemovedItemIDs)
	assert.Equal(t, []int64{21}, out.RemovedSchedules)
	assert.Equal(t, []string{"pay-2"}, out.CancelledLegIDs)
	assert.Equal(t, int64(10000), out.CancelledSubtotal)

	// Aggregates recomputed from the remaining items.
	assert.Equal(t, int64(20000), out.TotalProductPrice)
	assert.Equal(t, 2, out.TotalQuantity)
	assert.Equal(t, int64(23000), out.TotalPrice)
	assert.Equal(t, out.TotalProductPrice+agg.Order.DeliveryFee, out.TotalPrice)

	// Partial cancellation never touches the order status.
	assert.Equal(t, models.OrderStatusAccepted, out.OrderStatus)
	assert.Equal(t, models.PaymentStatusPaid, out.PaymentStatus)
}

func TestPartialCancelPrefersLegRecordedPoints(t *testing.T) {
	agg := sampleAggregate()

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	// The leg records 1000 used points directly: direct attribution wins
	// over the proportional share (10000/30000*3000 = 1000 here too, but
	// the leg value is authoritative regardless).
	assert.Equal(t, int64(1000), out.RefundPoint)
	assert.Equal(t, int64(2000), out.UsedPoint)
}

func TestPartialCancelProportionalFallback(t *testing.T) {
	agg := sampleAggregate()
	agg.Legs[1].UsedPoint = 0

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	// floor(10000 / 30000 * 3000) = 1000
	assert.Equal(t, int64(1000), out.RefundPoint)
}

func TestPartialCancelProportionalFloors(t *testing.T) {
	agg := sampleAggregate()
	agg.Order.UsedPoint = 1000
	agg.Legs[1].UsedPoint = 0

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	// floor(10000 / 30000 * 1000) = 333, not 333.33 rounded up
	assert.Equal(t, int64(333), out.RefundPoint)
}

func TestRefundPointNeverExceedsUsedPoint(t *testing.T) {
	agg := sampleAggregate()
	agg.Legs[1].UsedPoint = 99999

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	assert.Equal(t, agg.Order.UsedPoint, out.RefundPoint)
	assert.Equal(t, int64(0), out.UsedPoint)
}

func TestPartialCancelUnknownLeg(t *testing.T) {
	agg := sampleAggregate()

	_, err := computePartialCancel(agg, "pay-999")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPartialCancelPointOnlyAddition(t *testing.T) {
	agg := sampleAggregate()
	agg.Items = append(agg.Items,
		models.OrderItem{ID: 12, OrderID: 1, ProductID: 102, Price: 5000, Quantity: 1, ItemPrice: 5000, IsAddItem: true, AdditionEventID: 7},
		models.OrderItem{ID: 13, OrderID: 1, ProductID: 103, Price: 4000, Quantity: 1, ItemPrice: 4000, IsAddItem: true, AdditionEventID: 3},
	)
	agg.Schedules = append(agg.Schedules,
		models.DeliverySchedule{ID: 22, OrderID: 1, AdditionEventID: 3},
	)
	agg.Order.TotalProductPrice = 39000
	agg.Order.TotalQuantity = 5
	agg.Order.TotalPrice = 42000

	out, err := computePartialCancel(agg, models.PointOnlyPaymentID)
	require.NoError(t, err)

	// Earliest addition event (id 3) goes, nothing else.
	assert.Equal(t, []int64{13}, out.RemovedItemIDs)
	assert.Equal(t, []int64{22}, out.RemovedSchedules)
	assert.Empty(t, out.CancelledLegIDs)
	assert.Equal(t, int64(4000), out.CancelledSubtotal)
	assert.Equal(t, int64(35000), out.TotalProductPrice)
	assert.Equal(t, out.TotalProductPrice+agg.Order.DeliveryFee, out.TotalPrice)
}

func TestPartialCancelPointOnlyWithoutAdditions(t *testing.T) {
	agg := sampleAggregate()

	_, err := computePartialCancel(agg, models.PointOnlyPaymentID)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPartialCancelItemPriceFallback(t *testing.T) {
	agg := sampleAggregate()
	agg.Items[0].ItemPrice = 0 // line total falls back to price*quantity

	out, err := computePartialCancel(agg, "pay-2")
	require.NoError(t, err)

	assert.Equal(t, int64(20000), out.TotalProductPrice)
}

func TestFullCancelPartnerRejects(t *testing.T) {
	agg := sampleAggregate()
	agg.Order.OrderStatus = models.OrderStatusPending

	out := computeFullCancel(agg, true)

	assert.Equal(t, models.OrderStatusRejected, out.OrderStatus)
	assert.Equal(t, models.PaymentStatusRefunded, out.PaymentStatus)
	assert.ElementsMatch(t, []string{"pay-1", "pay-2"}, out.CancelledLegIDs)
	assert.Equal(t, agg.Order.UsedPoint, out.RefundPoint)
}

func TestFullCancelCustomerBeforeAccept(t *testing.T) {
	agg := sampleAggregate()
	agg.Order.OrderStatus = models.OrderStatusPending

	out := computeFullCancel(agg, false)

	assert.Equal(t, models.OrderStatusCancelledBeforeAccept, out.OrderStatus)
}

func TestFullCancelCustomerAfterAccept(t *testing.T) {
	agg := sampleAggregate()
	agg.Order.OrderStatus = models.OrderStatusPreparing

	out := computeFullCancel(agg, false)

	assert.Equal(t, models.OrderStatusCancelled, out.OrderStatus)
}

func TestFullCancelKeepsAggregates(t *testing.T) {
	agg := sampleAggregate()

	out := computeFullCancel(agg, false)

	assert.Equal(t, agg.Order.TotalProductPrice, out.TotalProductPrice)
	assert.Equal(t, agg.Order.TotalQuantity, out.TotalQuantity)
	assert.Equal(t, agg.Order.TotalPrice, out.TotalPrice)
	assert.Empty(t, out.RemovedItemIDs)
}

func TestValidateCancelRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     CancelRequest
		wantErr bool
	}{
		{"payment id only", CancelRequest{PaymentID: "pay-1", Reason: "r"}, false},
		{"order id only", CancelRequest{OrderID: 1, Reason: "r"}, false},
		{"both identifiers", CancelRequest{PaymentID: "pay-1", OrderID: 1, Reason: "r"}, true},
		{"neither identifier", CancelRequest{Reason: "r"}, true},
		{"missing reason", CancelRequest{OrderID: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCancelRequest(&tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveRefundPoint(t *testing.T) {
	assert.Equal(t, int64(1000), resolveRefundPoint(1000, 10000, 30000, 3000))
	assert.Equal(t, int64(1000), resolveRefundPoint(0, 10000, 30000, 3000))
	assert.Equal(t, int64(3000), resolveRefundPoint(5000, 10000, 30000, 3000))
	assert.Equal(t, int64(0), resolveRefundPoint(0, 10000, 0, 3000))
	assert.Equal(t, int64(0), resolveRefundPoint(0, 10000, 30000, 0))
}
