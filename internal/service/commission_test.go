package service

import (
	"testing"

	"settlement-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func tierConfig() *models.CommissionConfig {
	return &models.CommissionConfig{
		PromotionalOrderCount: 5,
		PromotionalRate:       0.03,
		StandardRate:          0.13,
	}
}

func TestFeeRateTiers(t *testing.T) {
	cfg := tierConfig()

	assert.Equal(t, 0.03, FeeRate(1, cfg))
	assert.Equal(t, 0.03, FeeRate(3, cfg))
	assert.Equal(t, 0.03, FeeRate(5, cfg))
	assert.Equal(t, 0.13, FeeRate(6, cfg))
	assert.Equal(t, 0.13, FeeRate(100, cfg))
}

func TestFeeRateNonDecreasing(t *testing.T) {
	cfg := tierConfig()

	prev := FeeRate(1, cfg)
	for rank := 2; rank <= 20; rank++ {
		rate := FeeRate(rank, cfg)
		assert.GreaterOrEqual(t, rate, prev, "rate dropped at rank %d", rank)
		prev = rate
	}
}

func TestFeeFloors(t *testing.T) {
	assert.Equal(t, int64(900), Fee(30000, 0.03))
	assert.Equal(t, int64(3900), Fee(30000, 0.13))
	// 9999 * 0.03 = 299.97 -> 299
	assert.Equal(t, int64(299), Fee(9999, 0.03))
	assert.Equal(t, int64(0), Fee(0, 0.13))
}

func TestQuickDeliveryCostModes(t *testing.T) {
	free := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryFree}
	assert.Equal(t, int64(0), QuickDeliveryCost(free, 50000, 3000))

	charged := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryCharged}
	assert.Equal(t, int64(3000), QuickDeliveryCost(charged, 50000, 3000))

	conditional := &models.QuickDeliveryPolicy{
		Mode:           models.QuickDeliveryConditional,
		SubsidyCap:     2000,
		OrderThreshold: 30000,
	}
	// Below the threshold the partner bears nothing.
	assert.Equal(t, int64(0), QuickDeliveryCost(conditional, 20000, 3000))
	// Above it the subsidy is capped.
	assert.Equal(t, int64(2000), QuickDeliveryCost(conditional, 50000, 3000))
	// Cap above the actual fee: partner bears the fee, not the cap.
	assert.Equal(t, int64(1500), QuickDeliveryCost(conditional, 50000, 1500))
}

func TestSettlementAmount(t *testing.T) {
	// 30000 - floor(30000*0.03) - 2000 = 30000 - 900 - 2000
	assert.Equal(t, int64(27100), SettlementAmount(30000, 0.03, 2000))
	assert.Equal(t, int64(26100), SettlementAmount(30000, 0.13, 0))
}

func TestConfigCacheRequiresLoad(t *testing.T) {
	cache := &ConfigCache{}

	_, err := cache.Current()
	assert.ErrorIs(t, err, ErrConfigNotLoaded)

	cache.cfg = tierConfig()
	cfg, err := cache.Current()
	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.PromotionalOrderCount)
}
