package service

import (
	"context"
	"fmt"
	"math"
	"sync"

	"settlement-service/internal/models"
	"settlement-service/internal/store"
	"settlement-service/internal/util"

	"go.uber.org/zap"
)

// FeeRate maps a partner's order rank to a commission rate. Ranks 1..K
// (K = PromotionalOrderCount) carry the promotional rate, everything after
// the standard rate.
func FeeRate(rank int, cfg *models.CommissionConfig) float64 {
	if rank <= cfg.PromotionalOrderCount {
		return cfg.PromotionalRate
	}
	return cfg.StandardRate
}

// Fee computes the platform fee on a product subtotal, floored to whole
// currency units.
func Fee(totalProductPrice int64, rate float64) int64 {
	return int64(math.Floor(float64(totalProductPrice) * rate))
}

// QuickDeliveryCost is the quick-courier fee share the partner bears for one
// order under its subsidy policy.
func QuickDeliveryCost(policy *models.QuickDeliveryPolicy, orderTotal, deliveryFee int64) int64 {
	switch policy.Mode {
	case models.QuickDeliveryConditional:
		if orderTotal < policy.OrderThreshold {
			return 0
		}
		if deliveryFee < policy.SubsidyCap {
			return deliveryFee
		}
		return policy.SubsidyCap
	case models.QuickDeliveryCharged:
		return deliveryFee
	default:
		return 0
	}
}

// SettlementAmount is what the partner receives for one order: product
// subtotal minus platform fee minus the partner's quick-delivery share.
func SettlementAmount(totalProductPrice int64, rate float64, quickDeliveryCost int64) int64 {
	return totalProductPrice - Fee(totalProductPrice, rate) - quickDeliveryCost
}

// ConfigCache holds the commission schedule in memory. It is loaded once at
// startup and refreshed only through an explicit Reload; nothing reloads it
// implicitly.
type ConfigCache struct {
	mu     sync.RWMutex
	store  *store.Store
	cfg    *models.CommissionConfig
	logger *zap.Logger
}

// NewConfigCache creates a commission config cache backed by the store.
func NewConfigCache(st *store.Store) *ConfigCache {
	return &ConfigCache{
		store:  st,
		logger: util.GetLogger(),
	}
}

// Load fetches the schedule from the store and swaps it in.
func (c *ConfigCache) Load(ctx context.Context) error {
	cfg, err := c.store.GetCommissionConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load commission config: %w", err)
	}

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.logger.Info("Commission config loaded",
		zap.Int("promotional_order_count", cfg.PromotionalOrderCount),
		zap.Float64("promotional_rate", cfg.PromotionalRate),
		zap.Float64("standard_rate", cfg.StandardRate))
	return nil
}

// Reload re-reads the schedule. Exposed through the admin reload endpoint.
func (c *ConfigCache) Reload(ctx context.Context) error {
	return c.Load(ctx)
}

// Current returns the cached schedule.
func (c *ConfigCache) Current() (*models.CommissionConfig, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cfg == nil {
		return nil, ErrConfigNotLoaded
	}
	return c.cfg, nil
}
