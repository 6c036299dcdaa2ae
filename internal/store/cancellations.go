package store

import (
	"context"
	"fmt"

	"settlement-service/internal/models"
)

// CreateCancellationRecord appends one immutable cancellation audit record.
// There is no update or delete counterpart.
func (s *Store) CreateCancellationRecord(ctx context.Context, rec *models.CancellationRecord) error {
	query := `
		INSERT INTO cancellation_records
			(id, order_id, payment_id, reason, refund_amount, refund_point,
			 is_partner_cancel, is_partial_cancel, status_before, status_after, item_snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`

	err := s.db.GetContext(ctx, &rec.CreatedAt, query,
		rec.ID, rec.OrderID, rec.PaymentID, rec.Reason, rec.RefundAmount,
		rec.RefundPoint, rec.IsPartnerCancel, rec.IsPartialCancel,
		rec.StatusBefore, rec.StatusAfter, rec.ItemSnapshot)
	if err != nil {
		return fmt.Errorf("failed to create cancellation record: %w", err)
	}
	return nil
}

// HasCancellationRecord reports whether a cancellation for the payment id was
// already recorded. The gateway webhook replay uses this to stay idempotent.
func (s *Store) HasCancellationRecord(ctx context.Context, paymentID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM cancellation_records WHERE payment_id = $1)", paymentID)
	return exists, err
}

// GetCancellationRecordsByOrderID returns an order's cancellation history.
func (s *Store) GetCancellationRecordsByOrderID(ctx context.Context, orderID int64) ([]models.CancellationRecord, error) {
	var records []models.CancellationRecord
	err := s.db.SelectContext(ctx, &records,
		"SELECT * FROM cancellation_records WHERE order_id = $1 ORDER BY created_at", orderID)
	return records, err
}
