package service

import (
	"testing"
	"time"

	"settlement-service/internal/models"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC)
}

func completedPaidOrders() []models.Order {
	// Six eligible orders in creation order; with K=5 the sixth crosses
	// into the standard tier.
	orders := make([]models.Order, 6)
	for i := range orders {
		orders[i] = models.Order{
			ID:                int64(i + 1),
			PartnerID:         9,
			TotalProductPrice: 10000,
			TotalPrice:        13000,
			DeliveryFee:       3000,
			OrderStatus:       models.OrderStatusCompleted,
			PaymentStatus:     models.PaymentStatusPaid,
			SettlementStatus:  models.SettlementStatusPending,
			CreatedAt:         day(i + 1),
		}
	}
	return orders
}

func TestComputeSummaryTiersByRank(t *testing.T) {
	cfg := tierConfig()
	policy := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryFree}

	summary := computeSummary(9, completedPaidOrders(), cfg, policy, nil, nil)

	// Ranks 1-5 at 3% (fee 300 each), rank 6 at 13% (fee 1300).
	assert.Equal(t, int64(60000), summary.TotalSales)
	assert.Equal(t, int64(5*300+1300), summary.PlatformFee)
	assert.Equal(t, int64(0), summary.QuickDeliveryCost)
	assert.Equal(t, summary.TotalSales-summary.PlatformFee, summary.TotalSettlement)
	assert.Equal(t, 6, summary.Pending.OrderCount)
	assert.Equal(t, 0, summary.Completed.OrderCount)
}

func TestComputeSummarySplitsByStatus(t *testing.T) {
	cfg := tierConfig()
	policy := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryFree}
	orders := completedPaidOrders()

	settled := day(10)
	frozen := 0.03
	orders[0].SettlementStatus = models.SettlementStatusCompleted
	orders[0].SettlementDate = &settled
	orders[0].FeeRate = &frozen

	summary := computeSummary(9, orders, cfg, policy, nil, nil)

	assert.Equal(t, 1, summary.Completed.OrderCount)
	assert.Equal(t, 5, summary.Pending.OrderCount)
	assert.Equal(t, int64(10000), summary.Completed.TotalSales)
	assert.Equal(t, int64(300), summary.Completed.PlatformFee)
	assert.Equal(t, summary.Pending.TotalSales+summary.Completed.TotalSales, summary.TotalSales)
}

func TestComputeSummaryFrozenRateWins(t *testing.T) {
	cfg := tierConfig()
	policy := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryFree}
	orders := completedPaidOrders()

	// Order 6 settled back when it ranked inside the promotional tier;
	// its frozen 3% must survive even though its live rank says 13%.
	frozen := 0.03
	orders[5].SettlementStatus = models.SettlementStatusCompleted
	orders[5].FeeRate = &frozen

	summary := computeSummary(9, orders, cfg, policy, nil, nil)

	assert.Equal(t, int64(300), summary.Completed.PlatformFee)
	assert.Equal(t, int64(5*300), summary.Pending.PlatformFee)
}

func TestComputeSummaryWindowKeepsRanks(t *testing.T) {
	cfg := tierConfig()
	policy := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryFree}
	orders := completedPaidOrders()

	// Window covers only the sixth order; it still ranks 6th against the
	// full eligible set, so the standard rate applies.
	from := day(6)
	summary := computeSummary(9, orders, cfg, policy, &from, nil)

	assert.Equal(t, 1, summary.Pending.OrderCount)
	assert.Equal(t, int64(1300), summary.PlatformFee)
}

func TestComputeSummaryQuickDeliveryCharged(t *testing.T) {
	cfg := tierConfig()
	policy := &models.QuickDeliveryPolicy{Mode: models.QuickDeliveryCharged}
	orders := completedPaidOrders()[:1]

	summary := computeSummary(9, orders, cfg, policy, nil, nil)

	assert.Equal(t, int64(3000), summary.QuickDeliveryCost)
	assert.Equal(t, int64(10000-300-3000), summary.TotalSettlement)
}

func TestSummaryCacheKey(t *testing.T) {
	from := day(1)
	to := day(31)

	assert.Equal(t, "9:-:-", summaryCacheKey(9, nil, nil))
	assert.Equal(t, "9:20260801:-", summaryCacheKey(9, &from, nil))
	assert.Equal(t, "9:20260801:20260831", summaryCacheKey(9, &from, &to))
}
