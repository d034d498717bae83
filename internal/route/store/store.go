// Package store persists routes in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	deliverymodels "encantar/internal/delivery/models"
	"encantar/internal/platform/postgres"
	"encantar/internal/route/models"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const (
	columns       = `r.id, r.name, r.description, r.service_date, r.notes, r.created_at, r.updated_at, r.created_by_id, r.updated_by_id`
	deliveryCount = `(SELECT COUNT(*) FROM deliveries d WHERE d.route_id = r.id) AS delivery_count`
)

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.WithCount, int, error) {
	var where postgres.Filter
	where.Search(f.Search, "r.name", "r.description")
	if f.ServiceDateFrom != nil {
		where.Add("r.service_date >= ?", *f.ServiceDateFrom)
	}
	if f.ServiceDateTo != nil {
		where.Add("r.service_date <= ?", *f.ServiceDateTo)
	}

	var (
		rows  []models.WithCount
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			return sqlx.GetContext(ctx, exec, &total, postgres.Rebind(`SELECT COUNT(*) FROM routes r`+where.Where()), where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + columns + `, ` + deliveryCount + ` FROM routes r` + where.Where() +
				` ORDER BY ` + p.OrderBy("r.") + ` NULLS LAST LIMIT ? OFFSET ?`)
			return sqlx.SelectContext(ctx, exec, &rows, q, append(append([]any{}, where.Args()...), p.Limit, p.Offset())...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list routes: %w", err)
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.WithCount, error) {
	var r models.WithCount
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &r,
		`SELECT `+columns+`, `+deliveryCount+` FROM routes r WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find route: %w", err)
	}
	return &r, nil
}

// Deliveries loads the stops of a route, oldest first, with their lines.
func (s *PostgresStore) Deliveries(ctx context.Context, routeID uuid.UUID) ([]models.Delivery, error) {
	exec := tx.Executor(ctx, s.db)
	out := []models.Delivery{}
	q := `SELECT d.id, d.status, d.notes, d.created_at,
			b.id AS "beneficiary.id", b.name AS "beneficiary.name",
			b.address AS "beneficiary.address", b.phone AS "beneficiary.phone"
		FROM deliveries d
		JOIN beneficiaries b ON b.id = d.beneficiary_id
		WHERE d.route_id = $1
		ORDER BY d.created_at ASC, d.id ASC`
	if err := sqlx.SelectContext(ctx, exec, &out, q, routeID); err != nil {
		return nil, fmt.Errorf("list route deliveries: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(out))
	for i, d := range out {
		ids[i] = d.ID
	}
	lq, args, err := sqlx.In(`SELECT di.delivery_id, di.item_id, i.name, i.unit, di.quantity
		FROM delivery_items di
		JOIN items i ON i.id = di.item_id
		WHERE di.delivery_id IN (?)
		ORDER BY i.name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build delivery lines lookup: %w", err)
	}
	var lines []models.Line
	if err := sqlx.SelectContext(ctx, exec, &lines, postgres.Rebind(lq), args...); err != nil {
		return nil, fmt.Errorf("list delivery lines: %w", err)
	}

	byDelivery := make(map[uuid.UUID][]models.Line, len(out))
	for _, l := range lines {
		byDelivery[l.DeliveryID] = append(byDelivery[l.DeliveryID], l)
	}
	for i := range out {
		out[i].Items = byDelivery[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []models.Line{}
		}
	}
	return out, nil
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Route) error {
	q := `INSERT INTO routes (id, name, description, service_date, notes, created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :name, :description, :service_date, :notes, :created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, r); err != nil {
		return fmt.Errorf("insert route: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.Route) error {
	q := `UPDATE routes SET name = :name, description = :description, service_date = :service_date,
			notes = :notes, updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, r)
	if err != nil {
		return fmt.Errorf("update route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes a route. Deliveries still pointing at it make this fail with
// sentinel.ErrConflict.
func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM routes WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("delete route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// UpdateDeliveryStatus sets status on every delivery of the route and returns
// how many rows changed.
func (s *PostgresStore) UpdateDeliveryStatus(ctx context.Context, routeID uuid.UUID, status deliverymodels.Status, now time.Time, actor *uuid.UUID) (int, error) {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE deliveries SET status = $1, updated_at = $2, updated_by_id = $3 WHERE route_id = $4`,
		string(status), now, actor, routeID)
	if err != nil {
		return 0, fmt.Errorf("update route delivery status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update route delivery status: %w", err)
	}
	return int(n), nil
}
