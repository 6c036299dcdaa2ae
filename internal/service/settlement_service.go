package service

import (
	"context"
	"fmt"
	"time"

	"settlement-service/internal/broker"
	"settlement-service/internal/models"
	"settlement-service/internal/redisclient"
	"settlement-service/internal/store"
	"settlement-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementService marks batches of orders settled and serves per-partner
// settlement summaries.
type SettlementService struct {
	store          *store.Store
	redis          *redisclient.Client
	configCache    *ConfigCache
	eventPublisher *broker.EventPublisher
	logger         *zap.Logger
	cacheTTL       time.Duration
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	st *store.Store,
	redis *redisclient.Client,
	configCache *ConfigCache,
	eventPublisher *broker.EventPublisher,
	cacheTTL time.Duration,
) *SettlementService {
	return &SettlementService{
		store:          st,
		redis:          redis,
		configCache:    configCache,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
		cacheTTL:       cacheTTL,
	}
}

// SettleResult reports a settlement batch's effect.
type SettleResult struct {
	PartnerID    int64 `json:"partner_id"`
	Requested    int   `json:"requested"`
	SettledCount int   `json:"settled_count"`
	AlreadyDone  int   `json:"already_done"`
}

// Settle atomically marks every listed order settled for the partner.
// Already-completed ids are counted as no-ops, so re-running a batch is
// idempotent. The fee rate in force at settle time is persisted per order.
func (s *SettlementService) Settle(ctx context.Context, partnerID int64, orderIDs []int64) (*SettleResult, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.Settle")
	defer span.End()

	start := time.Now()
	defer func() {
		util.SettlementBatchLatency.Observe(time.Since(start).Seconds())
	}()

	cfg, err := s.configCache.Current()
	if err != nil {
		return nil, err
	}

	eligible, err := s.store.ListCompletedPaidOrders(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible orders: %w", err)
	}

	ranks := make(map[int64]int, len(eligible))
	for i, order := range eligible {
		ranks[order.ID] = i + 1
	}

	feeRates := make(map[int64]float64, len(orderIDs))
	for _, id := range orderIDs {
		rank, ok := ranks[id]
		if !ok {
			return nil, fmt.Errorf("%w: order %d", ErrIneligibleOrder, id)
		}
		feeRates[id] = FeeRate(rank, cfg)
	}

	settled, err := s.store.SettleOrders(ctx, partnerID, orderIDs, feeRates)
	if err != nil {
		return nil, fmt.Errorf("failed to settle orders: %w", err)
	}
	util.OrdersSettledTotal.Add(float64(settled))

	if err := s.redis.InvalidateSettlementSummaries(ctx, partnerID); err != nil {
		s.logger.Warn("Failed to invalidate settlement summary cache",
			zap.Int64("partner_id", partnerID), zap.Error(err))
	}

	event := &models.OrderSettledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSettled,
			Timestamp: time.Now(),
		},
		PartnerID:    partnerID,
		OrderIDs:     orderIDs,
		SettledCount: settled,
	}
	if err := s.eventPublisher.PublishOrderSettled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderSettled event", zap.Error(err))
	}

	s.logger.Info("Settlement batch processed",
		zap.Int64("partner_id", partnerID),
		zap.Int("requested", len(orderIDs)),
		zap.Int("settled", settled))

	return &SettleResult{
		PartnerID:    partnerID,
		Requested:    len(orderIDs),
		SettledCount: settled,
		AlreadyDone:  len(orderIDs) - settled,
	}, nil
}

// Summary aggregates a partner's sales, fees and settlement amounts over an
// optional date window, split by settlement status. Ranks come from the
// partner's current completed+paid set; completed rows reuse the rate frozen
// at settle time.
func (s *SettlementService) Summary(ctx context.Context, partnerID int64, from, to *time.Time) (*models.SettlementSummary, error) {
	ctx, span := util.StartSpan(ctx, "SettlementService.Summary")
	defer span.End()

	cacheKey := summaryCacheKey(partnerID, from, to)
	var cached models.SettlementSummary
	hit, err := s.redis.GetCachedSettlementSummary(ctx, cacheKey, &cached)
	if err != nil {
		s.logger.Warn("Settlement summary cache read failed", zap.Error(err))
	}
	if hit {
		return &cached, nil
	}

	cfg, err := s.configCache.Current()
	if err != nil {
		return nil, err
	}

	orders, err := s.store.ListCompletedPaidOrders(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed orders: %w", err)
	}

	policy, err := s.store.GetQuickDeliveryPolicy(ctx, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quick-delivery policy: %w", err)
	}

	summary := computeSummary(partnerID, orders, cfg, policy, from, to)

	if err := s.redis.CacheSettlementSummary(ctx, cacheKey, summary, s.cacheTTL); err != nil {
		s.logger.Warn("Settlement summary cache write failed", zap.Error(err))
	}

	return summary, nil
}

// computeSummary folds ranked orders into the summary buckets. Orders keep
// their rank from the full eligible set even when the window filters them
// out of the totals.
func computeSummary(partnerID int64, orders []models.Order, cfg *models.CommissionConfig, policy *models.QuickDeliveryPolicy, from, to *time.Time) *models.SettlementSummary {
	summary := &models.SettlementSummary{PartnerID: partnerID}

	for i, order := range orders {
		if from != nil && order.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && order.CreatedAt.After(*to) {
			continue
		}

		rate := FeeRate(i+1, cfg)
		if order.SettlementStatus == models.SettlementStatusCompleted && order.FeeRate != nil {
			rate = *order.FeeRate
		}

		fee := Fee(order.TotalProductPrice, rate)
		qdc := QuickDeliveryCost(policy, order.TotalPrice, order.DeliveryFee)
		settlement := order.TotalProductPrice - fee - qdc

		bucket := &summary.Pending
		if order.SettlementStatus == models.SettlementStatusCompleted {
			bucket = &summary.Completed
		}
		bucket.OrderCount++
		bucket.TotalSales += order.TotalProductPrice
		bucket.PlatformFee += fee
		bucket.QuickDeliveryCost += qdc
		bucket.TotalSettlement += settlement

		summary.TotalSales += order.TotalProductPrice
		summary.PlatformFee += fee
		summary.QuickDeliveryCost += qdc
		summary.TotalSettlement += settlement
	}

	return summary
}

func summaryCacheKey(partnerID int64, from, to *time.Time) string {
	fromKey, toKey := "-", "-"
	if from != nil {
		fromKey = from.Format("20060102")
	}
	if to != nil {
		toKey = to.Format("20060102")
	}
	return fmt.Sprintf("%d:%s:%s", partnerID, fromKey, toKey)
}
