package audit

import (
	"context"
	"log/slog"
	"time"
)

// RetentionStore deletes old events.
type RetentionStore interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention drops events older than the retention period. Scheduled daily.
type Retention struct {
	store  RetentionStore
	period time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewRetention(store RetentionStore, logger *slog.Logger) *Retention {
	return &Retention{store: store, period: RetentionPeriod, logger: logger, now: time.Now}
}

func (r *Retention) Run(ctx context.Context) error {
	cutoff := r.now().Add(-r.period)
	n, err := r.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "audit retention applied",
		"deleted", n,
		"cutoff", cutoff,
		"log_type", "audit",
	)
	return nil
}
