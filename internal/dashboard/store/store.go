// Package store runs the dashboard's aggregate queries.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"encantar/internal/dashboard/models"
	"encantar/pkg/platform/tx"
)

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Totals counts active beneficiaries and items and every route and delivery.
func (s *PostgresStore) Totals(ctx context.Context) (*models.Totals, error) {
	var t models.Totals
	q := `SELECT
			(SELECT COUNT(*) FROM beneficiaries WHERE active) AS beneficiaries,
			(SELECT COUNT(*) FROM items WHERE active) AS items,
			(SELECT COUNT(*) FROM routes) AS routes,
			(SELECT COUNT(*) FROM deliveries) AS deliveries`
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &t, q); err != nil {
		return nil, fmt.Errorf("count dashboard totals: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) DeliveriesByStatus(ctx context.Context) ([]models.StatusCount, error) {
	var out []models.StatusCount
	q := `SELECT status, COUNT(*) AS total FROM deliveries GROUP BY status`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q); err != nil {
		return nil, fmt.Errorf("count deliveries by status: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecentDeliveries(ctx context.Context, limit int) ([]models.RecentDelivery, error) {
	out := []models.RecentDelivery{}
	q := `SELECT d.id, b.name AS beneficiary_name, r.name AS route_name, d.status, d.created_at
		FROM deliveries d
		JOIN beneficiaries b ON b.id = d.beneficiary_id
		JOIN routes r ON r.id = d.route_id
		ORDER BY d.created_at DESC
		LIMIT $1`
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &out, q, limit); err != nil {
		return nil, fmt.Errorf("list recent deliveries: %w", err)
	}
	return out, nil
}
