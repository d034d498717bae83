package audit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Sink delivers one event to an external system.
type Sink interface {
	Send(ctx context.Context, event Event) error
}

const drainTimeout = 5 * time.Second

// Worker streams events from a bounded queue to a Sink. Enqueue never blocks:
// when the queue is full the event is dropped and counted.
type Worker struct {
	sink    Sink
	queue   chan Event
	logger  *slog.Logger
	dropped atomic.Int64
}

func NewWorker(sink Sink, size int, logger *slog.Logger) *Worker {
	if size <= 0 {
		size = 1024
	}
	return &Worker{sink: sink, queue: make(chan Event, size), logger: logger}
}

func (w *Worker) Enqueue(event Event) bool {
	select {
	case w.queue <- event:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Dropped reports how many events were rejected because the queue was full.
func (w *Worker) Dropped() int64 {
	return w.dropped.Load()
}

// Run sends queued events until ctx is cancelled, then drains what is left
// within drainTimeout.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case event := <-w.queue:
			w.send(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-w.queue:
			w.send(ctx, event)
		default:
			return
		}
		if ctx.Err() != nil {
			w.logger.Warn("audit stream drain timed out", "pending", len(w.queue))
			return
		}
	}
}

func (w *Worker) send(ctx context.Context, event Event) {
	if err := w.sink.Send(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to stream audit event",
			"event_id", event.ID,
			"action", string(event.Action),
			"error", err,
		)
	}
}
