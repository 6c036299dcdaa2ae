package store

import (
	"context"
	"database/sql"
	"fmt"

	"settlement-service/internal/models"
)

// AppendLedgerEntry appends one immutable point ledger entry and adjusts the
// user's balance by the entry's signed amount in the same transaction. The
// balance write is a single atomic increment, never read-then-write.
func (s *Store) AppendLedgerEntry(ctx context.Context, entry *models.PointLedgerEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &entry.ID, `
		INSERT INTO point_ledger (uid, amount, type, reason, order_id, product_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		entry.UID, entry.Amount, entry.Type, entry.Reason, entry.OrderID, entry.ProductID)
	if err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO point_balances (uid, balance, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (uid) DO UPDATE
		SET balance = point_balances.balance + $2, updated_at = NOW()`,
		entry.UID, entry.Amount)
	if err != nil {
		return fmt.Errorf("failed to adjust point balance: %w", err)
	}

	return tx.Commit()
}

// GetPointBalance retrieves a user's running balance.
func (s *Store) GetPointBalance(ctx context.Context, uid int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance,
		"SELECT balance FROM point_balances WHERE uid = $1", uid)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}

// GetLedgerEntriesByOrderID returns a user's ledger entries linked to an
// order, chronologically. Read-only; the ledger has no update path.
func (s *Store) GetLedgerEntriesByOrderID(ctx context.Context, orderID int64) ([]models.PointLedgerEntry, error) {
	var entries []models.PointLedgerEntry
	err := s.db.SelectContext(ctx, &entries,
		"SELECT * FROM point_ledger WHERE order_id = $1 ORDER BY created_at, id", orderID)
	return entries, err
}
