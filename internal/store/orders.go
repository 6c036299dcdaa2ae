package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"settlement-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// ErrVersionConflict is returned when an aggregate write loses an optimistic
// concurrency check against a concurrent cancellation.
var ErrVersionConflict = errors.New("order version conflict")

// ErrOrderNotFound is returned when no order matches the given identifier.
var ErrOrderNotFound = errors.New("order not found")

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderIDByPaymentID resolves an order through payment-leg set membership.
// Legs are stored one row each, so scalar-vs-list never reaches callers.
func (s *Store) GetOrderIDByPaymentID(ctx context.Context, paymentID string) (int64, error) {
	var orderID int64
	err := s.db.GetContext(ctx, &orderID,
		"SELECT order_id FROM payment_legs WHERE id = $1", paymentID)
	if err == sql.ErrNoRows {
		return 0, ErrOrderNotFound
	}
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// GetOrderAggregate loads the full aggregate: order, items, payment legs
// (ordered by creation) and delivery schedules.
func (s *Store) GetOrderAggregate(ctx context.Context, orderID int64) (*models.OrderAggregate, error) {
	order, err := s.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	agg := &models.OrderAggregate{Order: *order}

	err = s.db.SelectContext(ctx, &agg.Items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	err = s.db.SelectContext(ctx, &agg.Legs,
		"SELECT * FROM payment_legs WHERE order_id = $1 ORDER BY created_at, id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment legs: %w", err)
	}

	err = s.db.SelectContext(ctx, &agg.Schedules,
		"SELECT * FROM delivery_schedules WHERE order_id = $1 ORDER BY scheduled_at, id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery schedules: %w", err)
	}

	return agg, nil
}

// AggregateUpdate carries the post-cancellation state of an order plus the
// rows to remove, applied in a single transaction.
type AggregateUpdate struct {
	OrderID           int64
	ExpectedVersion   int64
	TotalProductPrice int64
	TotalQuantity     int
	TotalPrice        int64
	UsedPoint         int64
	OrderStatus       string
	PaymentStatus     string
	RemovedItemIDs    []int64
	RemovedSchedules  []int64
	CancelledLegIDs   []string
}

// ApplyCancellation persists a cancellation's aggregate changes atomically.
// The version check serializes concurrent cancellations against one order;
// a lost check returns ErrVersionConflict without touching anything.
func (s *Store) ApplyCancellation(ctx context.Context, upd *AggregateUpdate) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET total_product_price = $1, total_quantity = $2, total_price = $3,
		    used_point = $4, order_status = $5, payment_status = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7 AND version = $8`,
		upd.TotalProductPrice, upd.TotalQuantity, upd.TotalPrice,
		upd.UsedPoint, upd.OrderStatus, upd.PaymentStatus,
		upd.OrderID, upd.ExpectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update order aggregate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}

	if len(upd.RemovedItemIDs) > 0 {
		query, args, err := sqlx.In("DELETE FROM order_items WHERE id IN (?)", upd.RemovedItemIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to remove cancelled items: %w", err)
		}
	}

	if len(upd.RemovedSchedules) > 0 {
		query, args, err := sqlx.In("DELETE FROM delivery_schedules WHERE id IN (?)", upd.RemovedSchedules)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to remove delivery schedules: %w", err)
		}
	}

	if len(upd.CancelledLegIDs) > 0 {
		query, args, err := sqlx.In(
			"UPDATE payment_legs SET status = ? WHERE id IN (?)",
			models.PaymentLegStatusCancelled, upd.CancelledLegIDs)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to cancel payment legs: %w", err)
		}
	}

	return tx.Commit()
}

// ListCompletedPaidOrders returns a partner's completed, paid orders in
// creation order. Index position + 1 is the order's current rank for
// commission tiering.
func (s *Store) ListCompletedPaidOrders(ctx context.Context, partnerID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE partner_id = $1 AND order_status = $2 AND payment_status = $3
		ORDER BY created_at, id`,
		partnerID, models.OrderStatusCompleted, models.PaymentStatusPaid)
	return orders, err
}
