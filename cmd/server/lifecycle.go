package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// lifecycle runs the HTTP server next to an optional background worker.
// The worker gets its own context, cancelled only after shutdown has
// returned, so events emitted by requests still draining are streamed.
type lifecycle struct {
	logger   *slog.Logger
	timeout  time.Duration
	serve    func() error
	shutdown func(context.Context) error
	worker   func(context.Context) error
}

func (l lifecycle) run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)
	if l.worker != nil {
		g.Go(func() error { return l.worker(workerCtx) })
	}
	g.Go(func() error {
		if err := l.serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopWorker()
		l.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.shutdown(shutdownCtx)
	})
	return g.Wait()
}
