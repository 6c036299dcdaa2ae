package service

import (
	"context"
	"fmt"

	"settlement-service/internal/models"
	"settlement-service/internal/store"
	"settlement-service/internal/util"

	"go.uber.org/zap"
)

// PointLedger appends loyalty-point credits and debits. Entries are
// immutable once written; the user's balance is the running sum, adjusted
// atomically with each append.
type PointLedger struct {
	store  *store.Store
	logger *zap.Logger
}

// NewPointLedger creates a new point ledger
func NewPointLedger(st *store.Store) *PointLedger {
	return &PointLedger{
		store:  st,
		logger: util.GetLogger(),
	}
}

// Credit appends a positive entry and raises the user's balance.
func (l *PointLedger) Credit(ctx context.Context, uid, amount int64, entryType, reason string, orderID, productID int64) (*models.PointLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", ErrInvalidRequest)
	}
	return l.append(ctx, uid, amount, entryType, reason, orderID, productID)
}

// Debit appends a negative entry and lowers the user's balance. The balance
// is allowed to go negative; callers are expected to order their operations
// so it never does.
func (l *PointLedger) Debit(ctx context.Context, uid, amount int64, entryType, reason string, orderID, productID int64) (*models.PointLedgerEntry, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrInvalidRequest)
	}
	return l.append(ctx, uid, -amount, entryType, reason, orderID, productID)
}

func (l *PointLedger) append(ctx context.Context, uid, amount int64, entryType, reason string, orderID, productID int64) (*models.PointLedgerEntry, error) {
	entry := &models.PointLedgerEntry{
		UID:       uid,
		Amount:    amount,
		Type:      entryType,
		Reason:    reason,
		OrderID:   orderID,
		ProductID: productID,
	}
	if err := l.store.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append point ledger entry: %w", err)
	}

	l.logger.Info("Point ledger entry appended",
		zap.Int64("uid", uid),
		zap.Int64("amount", amount),
		zap.String("type", entryType),
		zap.Int64("order_id", orderID))
	return entry, nil
}

// Balance returns the user's current running balance.
func (l *PointLedger) Balance(ctx context.Context, uid int64) (int64, error) {
	return l.store.GetPointBalance(ctx, uid)
}
