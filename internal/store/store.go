package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"settlement-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCommissionConfig loads the current tiered commission schedule.
func (s *Store) GetCommissionConfig(ctx context.Context) (*models.CommissionConfig, error) {
	var cfg models.CommissionConfig
	err := s.db.GetContext(ctx, &cfg,
		"SELECT * FROM commission_config ORDER BY updated_at DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("commission config not found")
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetQuickDeliveryPolicy retrieves a partner's quick-delivery subsidy policy.
// Partners without a row default to the free mode.
func (s *Store) GetQuickDeliveryPolicy(ctx context.Context, partnerID int64) (*models.QuickDeliveryPolicy, error) {
	var policy models.QuickDeliveryPolicy
	err := s.db.GetContext(ctx, &policy,
		"SELECT * FROM quick_delivery_policies WHERE partner_id = $1", partnerID)
	if err == sql.ErrNoRows {
		return &models.QuickDeliveryPolicy{
			PartnerID: partnerID,
			Mode:      models.QuickDeliveryFree,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}
