package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-service/internal/broker"
	"settlement-service/internal/gateway"
	"settlement-service/internal/models"
	"settlement-service/internal/redisclient"
	"settlement-service/internal/store"
	"settlement-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CancellationService orchestrates order cancellation: gateway reversal,
// aggregate recomputation, point refund, audit record and best-effort
// notification.
type CancellationService struct {
	store          *store.Store
	redis          *redisclient.Client
	gateway        gateway.PaymentGateway
	pointLedger    *PointLedger
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger

	strictPersistence bool
	lockTTL           time.Duration
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	st *store.Store,
	redis *redisclient.Client,
	gw gateway.PaymentGateway,
	pointLedger *PointLedger,
	eventPublisher *broker.EventPublisher,
	strictPersistence bool,
	lockTTL time.Duration,
) *CancellationService {
	return &CancellationService{
		store:             st,
		redis:             redis,
		gateway:           gw,
		pointLedger:       pointLedger,
		eventPublisher:    eventPublisher,
		logger:            util.GetLogger(),
		strictPersistence: strictPersistence,
		lockTTL:           lockTTL,
	}
}

// CancelRequest is the inbound cancellation request. Exactly one of
// PaymentID/OrderID must be set.
type CancelRequest struct {
	PaymentID       string `json:"payment_id,omitempty"`
	OrderID         int64  `json:"order_id,omitempty"`
	Reason          string `json:"reason" binding:"required"`
	RefundAmount    int64  `json:"refund_amount,omitempty"`
	IsPartnerCancel bool   `json:"is_partner_cancel"`
	IsPartialCancel bool   `json:"is_partial_cancel"`
}

// CancelResult reports what a cancellation actually did. OrderLocated is
// false for the documented inconsistency case: the gateway leg succeeded but
// no local order matched, which still counts as success for the caller.
type CancelResult struct {
	Cancellation *models.CancellationRecord `json:"cancellation,omitempty"`
	OrderLocated bool                       `json:"order_located"`
	RefundPoint  int64                      `json:"refund_point"`
	RefundAmount int64                      `json:"refund_amount"`
}

// Cancel processes a cancellation end to end. The gateway call comes first
// and is fatal on failure; every local failure after a successful gateway
// leg is logged and swallowed unless strict persistence is on.
func (s *CancellationService) Cancel(ctx context.Context, req *CancelRequest) (*CancelResult, error) {
	ctx, span := util.StartSpan(ctx, "CancellationService.Cancel")
	defer span.End()

	if err := validateCancelRequest(req); err != nil {
		util.CancellationsFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}
	return s.process(ctx, req, false)
}

// ReconcileGatewayCancellation replays the local half of a cancellation the
// gateway reports as done. Safe to call repeatedly: a payment id that
// already has a cancellation record is a no-op.
func (s *CancellationService) ReconcileGatewayCancellation(ctx context.Context, paymentID, reason string, amount int64) (*CancelResult, error) {
	ctx, span := util.StartSpan(ctx, "CancellationService.ReconcileGatewayCancellation")
	defer span.End()

	if paymentID == models.PointOnlyPaymentID {
		return nil, fmt.Errorf("%w: webhook without payment id", ErrInvalidRequest)
	}

	done, err := s.store.HasCancellationRecord(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to check cancellation history: %w", err)
	}
	if done {
		s.logger.Info("Webhook replay skipped, cancellation already recorded",
			zap.String("payment_id", paymentID))
		return &CancelResult{OrderLocated: true}, nil
	}

	orderID, err := s.store.GetOrderIDByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	agg, err := s.store.GetOrderAggregate(ctx, orderID)
	if err != nil {
		return nil, err
	}

	req := &CancelRequest{
		PaymentID:       paymentID,
		Reason:          reason,
		RefundAmount:    amount,
		IsPartialCancel: len(agg.Legs) > 1,
	}
	return s.process(ctx, req, true)
}

func (s *CancellationService) process(ctx context.Context, req *CancelRequest, skipGateway bool) (*CancelResult, error) {
	result := &CancelResult{RefundAmount: req.RefundAmount}

	// Gateway leg first. Point-only requests carry no payment id and skip
	// the provider entirely.
	gatewayDone := false
	if !skipGateway && req.PaymentID != models.PointOnlyPaymentID {
		conf, err := s.gateway.CancelPayment(ctx, req.PaymentID, req.Reason, req.RefundAmount)
		if err != nil {
			util.CancellationsFailedTotal.WithLabelValues("gateway").Inc()
			return nil, err
		}
		gatewayDone = true
		if result.RefundAmount == 0 {
			result.RefundAmount = conf.CancelledAmount
		}
	}

	orderID, err := s.resolveOrderID(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) && gatewayDone {
			// The provider already reversed the money; the missing order is a
			// bounded inconsistency reconciled out of band.
			util.OrphanGatewayCancelsTotal.Inc()
			s.logger.Error("Order not found after successful gateway cancel",
				zap.String("payment_id", req.PaymentID),
				zap.Int64("refund_amount", result.RefundAmount))
			return result, nil
		}
		util.CancellationsFailedTotal.WithLabelValues("not_found").Inc()
		return nil, err
	}
	result.OrderLocated = true

	token, err := s.acquireOrderLock(ctx, orderID)
	if err == nil && token == "" {
		err = fmt.Errorf("order %d is locked by a concurrent cancellation", orderID)
	}
	if err != nil {
		return s.afterGatewayFailure(result, orderID, gatewayDone, err)
	}
	defer func() {
		if err := s.redis.ReleaseOrderLock(ctx, orderID, token); err != nil {
			s.logger.Warn("Failed to release order lock", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}()

	agg, err := s.store.GetOrderAggregate(ctx, orderID)
	if err != nil {
		return s.afterGatewayFailure(result, orderID, gatewayDone, err)
	}

	var outcome *cancelOutcome
	if req.IsPartialCancel {
		outcome, err = computePartialCancel(agg, req.PaymentID)
		if err != nil {
			util.CancellationsFailedTotal.WithLabelValues("invalid_request").Inc()
			return nil, err
		}
	} else {
		outcome = computeFullCancel(agg, req.IsPartnerCancel)
	}

	upd := &store.AggregateUpdate{
		OrderID:           agg.Order.ID,
		ExpectedVersion:   agg.Order.Version,
		TotalProductPrice: outcome.TotalProductPrice,
		TotalQuantity:     outcome.TotalQuantity,
		TotalPrice:        outcome.TotalPrice,
		UsedPoint:         outcome.UsedPoint,
		OrderStatus:       outcome.OrderStatus,
		PaymentStatus:     outcome.PaymentStatus,
		RemovedItemIDs:    outcome.RemovedItemIDs,
		RemovedSchedules:  outcome.RemovedSchedules,
		CancelledLegIDs:   outcome.CancelledLegIDs,
	}
	if err := s.store.ApplyCancellation(ctx, upd); err != nil {
		return s.afterGatewayFailure(result, orderID, gatewayDone, err)
	}

	if outcome.RefundPoint > 0 {
		_, err := s.pointLedger.Credit(ctx, agg.Order.UserID, outcome.RefundPoint,
			models.PointTypeRefund, req.Reason, agg.Order.ID, 0)
		if err != nil {
			return s.afterGatewayFailure(result, orderID, gatewayDone, err)
		}
		util.PointsRefundedTotal.Add(float64(outcome.RefundPoint))
	}
	result.RefundPoint = outcome.RefundPoint

	record := buildCancellationRecord(req, agg, outcome, result.RefundAmount)
	if err := s.store.CreateCancellationRecord(ctx, record); err != nil {
		return s.afterGatewayFailure(result, orderID, gatewayDone, err)
	}
	result.Cancellation = record

	s.publishCancelled(ctx, req, agg, outcome, result)

	kind := "full"
	if req.IsPartialCancel {
		kind = "partial"
	}
	util.CancellationsTotal.WithLabelValues(kind).Inc()

	s.logger.Info("Cancellation processed",
		zap.Int64("order_id", agg.Order.ID),
		zap.String("payment_id", req.PaymentID),
		zap.String("kind", kind),
		zap.Int64("refund_amount", result.RefundAmount),
		zap.Int64("refund_point", outcome.RefundPoint),
		zap.String("status_after", outcome.OrderStatus))

	return result, nil
}

// afterGatewayFailure handles a local failure that follows a successful
// gateway reversal: logged and counted, surfaced only under strict
// persistence. Failures with no gateway leg behind them stay fatal.
func (s *CancellationService) afterGatewayFailure(result *CancelResult, orderID int64, gatewayDone bool, err error) (*CancelResult, error) {
	if !gatewayDone {
		util.CancellationsFailedTotal.WithLabelValues("persistence").Inc()
		return nil, err
	}

	util.PersistenceFailuresTotal.Inc()
	s.logger.Error("Local mutation failed after successful gateway cancel",
		zap.Int64("order_id", orderID),
		zap.Error(err))

	if s.strictPersistence {
		return nil, fmt.Errorf("local persistence failed after gateway cancel: %w", err)
	}
	return result, nil
}

func (s *CancellationService) resolveOrderID(ctx context.Context, req *CancelRequest) (int64, error) {
	if req.OrderID != 0 {
		if _, err := s.store.GetOrderByID(ctx, req.OrderID); err != nil {
			return 0, err
		}
		return req.OrderID, nil
	}
	return s.store.GetOrderIDByPaymentID(ctx, req.PaymentID)
}

// acquireOrderLock retries briefly; cancellations against one order are rare
// enough that a short wait beats failing the whole request.
func (s *CancellationService) acquireOrderLock(ctx context.Context, orderID int64) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		token, err := s.redis.AcquireOrderLock(ctx, orderID, s.lockTTL)
		if err != nil {
			return "", err
		}
		if token != "" {
			return token, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return "", nil
}

func (s *CancellationService) publishCancelled(ctx context.Context, req *CancelRequest, agg *models.OrderAggregate, outcome *cancelOutcome, result *CancelResult) {
	var refundRate float64
	if outcome.CancelledSubtotal > 0 {
		refundRate = float64(result.RefundAmount) / float64(outcome.CancelledSubtotal)
	}

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:         agg.Order.ID,
		OrderNumber:     agg.Order.OrderNumber,
		PaymentID:       req.PaymentID,
		PartnerID:       agg.Order.PartnerID,
		UserID:          agg.Order.UserID,
		StoreName:       agg.Order.StoreName,
		CancelAmount:    outcome.CancelledSubtotal,
		RefundAmount:    result.RefundAmount,
		RefundPoint:     outcome.RefundPoint,
		RefundRate:      refundRate,
		Reason:          req.Reason,
		IsPartialCancel: req.IsPartialCancel,
		IsPartnerCancel: req.IsPartnerCancel,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	if outcome.RefundPoint > 0 {
		pointsEvent := &models.PointsRefundedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypePointsRefunded,
				Timestamp: time.Now(),
			},
			UID:     agg.Order.UserID,
			OrderID: agg.Order.ID,
			Amount:  outcome.RefundPoint,
		}
		if err := s.eventPublisher.PublishPointsRefunded(ctx, pointsEvent); err != nil {
			s.logger.Error("Failed to publish PointsRefunded event", zap.Error(err))
		}
	}
}

func buildCancellationRecord(req *CancelRequest, agg *models.OrderAggregate, outcome *cancelOutcome, refundAmount int64) *models.CancellationRecord {
	snapshot, _ := json.Marshal(outcome.RemovedItems)

	return &models.CancellationRecord{
		ID:              uuid.New().String(),
		OrderID:         agg.Order.ID,
		PaymentID:       req.PaymentID,
		Reason:          req.Reason,
		RefundAmount:    refundAmount,
		RefundPoint:     outcome.RefundPoint,
		IsPartnerCancel: req.IsPartnerCancel,
		IsPartialCancel: req.IsPartialCancel,
		StatusBefore:    agg.Order.OrderStatus,
		StatusAfter:     outcome.OrderStatus,
		ItemSnapshot:    string(snapshot),
	}
}

func validateCancelRequest(req *CancelRequest) error {
	hasPayment := req.PaymentID != models.PointOnlyPaymentID
	hasOrder := req.OrderID != 0

	if hasPayment == hasOrder {
		return fmt.Errorf("%w: exactly one of payment_id or order_id required", ErrInvalidRequest)
	}
	if req.Reason == "" {
		return fmt.Errorf("%w: reason required", ErrInvalidRequest)
	}
	return nil
}
