// Package tx carries a database transaction through context so that stores
// called inside RunInTx join the same transaction without new parameters.
package tx

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sqlx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sqlx.Tx)
	return tx, ok
}

// Executor returns the transaction from ctx when present, otherwise db.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

// Query is one read run by Concurrent.
type Query func(ctx context.Context, exec sqlx.ExtContext) error

// Concurrent runs independent reads in parallel on the pool. Inside a
// transaction they run one after another: a single connection cannot serve
// concurrent queries.
func Concurrent(ctx context.Context, db *sqlx.DB, queries ...Query) error {
	if t, ok := From(ctx); ok {
		for _, q := range queries {
			if err := q(ctx, t); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, q := range queries {
		g.Go(func() error { return q(gctx, db) })
	}
	return g.Wait()
}

// RunInTx runs fn inside a transaction. A transaction already present in ctx
// is reused, so nested calls commit once at the outermost level.
func RunInTx(ctx context.Context, db *sqlx.DB, fn func(ctx context.Context) error) (err error) {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = t.Rollback()
			panic(p)
		}
		if err != nil {
			_ = t.Rollback()
		}
	}()
	if err = fn(WithTx(ctx, t)); err != nil {
		return err
	}
	if err = t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Runner binds RunInTx to one database so services can depend on an
// interface and tests can run the callback inline.
type Runner struct {
	db *sqlx.DB
}

func NewRunner(db *sqlx.DB) *Runner {
	return &Runner{db: db}
}

func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, r.db, fn)
}
