// Package store persists deliveries and their item lines in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"encantar/internal/delivery/models"
	"encantar/internal/item/lines"
	"encantar/internal/platform/postgres"
	"encantar/pkg/pagination"
	"encantar/pkg/platform/sentinel"
	"encantar/pkg/platform/tx"
)

const (
	viewColumns = `d.id, d.beneficiary_id, d.route_id, d.notes, d.status,
		d.created_at, d.updated_at, d.created_by_id, d.updated_by_id,
		b.id AS "beneficiary.id", b.name AS "beneficiary.name",
		b.address AS "beneficiary.address", b.phone AS "beneficiary.phone",
		r.id AS "route.id", r.name AS "route.name", r.service_date AS "route.service_date"`
	viewFrom = ` FROM deliveries d
		JOIN beneficiaries b ON b.id = d.beneficiary_id
		JOIN routes r ON r.id = d.route_id`
)

type PostgresStore struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, f models.ListFilter, p pagination.Params) ([]models.View, int, error) {
	var where postgres.Filter
	if f.RouteID != nil {
		where.Add("d.route_id = ?", *f.RouteID)
	}
	if f.BeneficiaryID != nil {
		where.Add("d.beneficiary_id = ?", *f.BeneficiaryID)
	}
	if f.Status != "" {
		where.Add("d.status = ?", string(f.Status))
	}
	where.Search(f.Search, "b.name")
	if f.From != nil {
		where.Add("d.created_at >= ?", *f.From)
	}
	if f.To != nil {
		where.Add("d.created_at <= ?", *f.To)
	}

	var (
		rows  []models.View
		total int
	)
	err := tx.Concurrent(ctx, s.db,
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT COUNT(*) FROM deliveries d JOIN beneficiaries b ON b.id = d.beneficiary_id` + where.Where())
			return sqlx.GetContext(ctx, exec, &total, q, where.Args()...)
		},
		func(ctx context.Context, exec sqlx.ExtContext) error {
			q := postgres.Rebind(`SELECT ` + viewColumns + viewFrom + where.Where() +
				` ORDER BY ` + p.OrderBy("d.") + ` LIMIT ? OFFSET ?`)
			return sqlx.SelectContext(ctx, exec, &rows, q, append(append([]any{}, where.Args()...), p.Limit, p.Offset())...)
		},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list deliveries: %w", err)
	}
	if err := s.attachLines(ctx, rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*models.View, error) {
	var v models.View
	err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &v, `SELECT `+viewColumns+viewFrom+` WHERE d.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find delivery: %w", err)
	}
	views := []models.View{v}
	if err := s.attachLines(ctx, views); err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *PostgresStore) attachLines(ctx context.Context, views []models.View) error {
	if len(views) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	q, args, err := sqlx.In(`SELECT di.delivery_id AS owner_id, di.item_id, i.name, i.unit, di.quantity
		FROM delivery_items di
		JOIN items i ON i.id = di.item_id
		WHERE di.delivery_id IN (?)
		ORDER BY i.name ASC`, ids)
	if err != nil {
		return fmt.Errorf("build delivery lines lookup: %w", err)
	}
	var found []lines.View
	if err := sqlx.SelectContext(ctx, tx.Executor(ctx, s.db), &found, postgres.Rebind(q), args...); err != nil {
		return fmt.Errorf("list delivery lines: %w", err)
	}
	grouped := lines.Group(found, ids)
	for i := range views {
		views[i].Items = grouped[views[i].ID]
	}
	return nil
}

func (s *PostgresStore) BeneficiaryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM beneficiaries WHERE id = $1)`, id)
}

func (s *PostgresStore) RouteExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM routes WHERE id = $1)`, id)
}

func (s *PostgresStore) exists(ctx context.Context, q string, id uuid.UUID) (bool, error) {
	var ok bool
	if err := sqlx.GetContext(ctx, tx.Executor(ctx, s.db), &ok, q, id); err != nil {
		return false, fmt.Errorf("check reference: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) Create(ctx context.Context, d *models.Delivery) error {
	q := `INSERT INTO deliveries (id, beneficiary_id, route_id, notes, status, created_at, updated_at, created_by_id, updated_by_id)
		VALUES (:id, :beneficiary_id, :route_id, :notes, :status, :created_at, :updated_at, :created_by_id, :updated_by_id)`
	if _, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, d); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, d *models.Delivery) error {
	q := `UPDATE deliveries SET beneficiary_id = :beneficiary_id, route_id = :route_id, notes = :notes,
			status = :status, updated_at = :updated_at, updated_by_id = :updated_by_id
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, tx.Executor(ctx, s.db), q, d)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update delivery: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ReplaceLines swaps every line of a delivery. Call it inside a transaction.
func (s *PostgresStore) ReplaceLines(ctx context.Context, deliveryID uuid.UUID, ls []lines.Line) error {
	exec := tx.Executor(ctx, s.db)
	if _, err := exec.ExecContext(ctx, `DELETE FROM delivery_items WHERE delivery_id = $1`, deliveryID); err != nil {
		return fmt.Errorf("clear delivery lines: %w", err)
	}
	if len(ls) == 0 {
		return nil
	}
	values := make([]string, len(ls))
	args := make([]any, 0, len(ls)*3)
	for i, l := range ls {
		values[i] = "(?, ?, ?)"
		args = append(args, deliveryID, l.ItemID, l.Quantity)
	}
	q := postgres.Rebind(`INSERT INTO delivery_items (delivery_id, item_id, quantity) VALUES ` + strings.Join(values, ", "))
	if _, err := exec.ExecContext(ctx, q, args...); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert delivery lines: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM deliveries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete delivery: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, now time.Time, actor *uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE deliveries SET status = $1, updated_at = $2, updated_by_id = $3 WHERE id = $4`,
		string(status), now, actor, id)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
