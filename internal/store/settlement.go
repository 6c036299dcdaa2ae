package store

import (
	"context"
	"fmt"
	"time"

	"settlement-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// SettleOrders marks every listed order settled in one transaction.
// Current statuses are read under FOR UPDATE first: only rows still pending
// are counted and flipped, so re-invoking on completed ids is a no-op.
// Fee rates applied at settle time are persisted on the rows, freezing the
// economics of a completed settlement against later rank drift.
func (s *Store) SettleOrders(ctx context.Context, partnerID int64, orderIDs []int64, feeRates map[int64]float64) (int, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query, args, err := sqlx.In(`
		SELECT id, settlement_status FROM orders
		WHERE partner_id = ? AND id IN (?)
		FOR UPDATE`, partnerID, orderIDs)
	if err != nil {
		return 0, err
	}

	var rows []struct {
		ID               int64  `db:"id"`
		SettlementStatus string `db:"settlement_status"`
	}
	if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to lock settlement rows: %w", err)
	}
	if len(rows) != len(orderIDs) {
		return 0, fmt.Errorf("settlement batch refers to %d unknown orders", len(orderIDs)-len(rows))
	}

	now := time.Now()
	settled := 0
	for _, row := range rows {
		if row.SettlementStatus == models.SettlementStatusCompleted {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE orders
			SET settlement_status = $1, settlement_date = $2, fee_rate = $3, updated_at = NOW()
			WHERE id = $4`,
			models.SettlementStatusCompleted, now, feeRates[row.ID], row.ID)
		if err != nil {
			return 0, fmt.Errorf("failed to settle order %d: %w", row.ID, err)
		}
		settled++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return settled, nil
}
