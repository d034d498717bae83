package audit

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"encantar/pkg/platform/middleware/metadata"
	"encantar/pkg/requestcontext"
)

// Store persists events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Enqueuer hands events to the asynchronous stream.
type Enqueuer interface {
	Enqueue(event Event) bool
}

// Publisher captures structured audit events. It is append-only; the table
// write is synchronous and the stream is best effort.
type Publisher struct {
	store  Store
	stream Enqueuer
	logger *slog.Logger
}

type Option func(*Publisher)

func WithStream(stream Enqueuer) Option {
	return func(p *Publisher) { p.stream = stream }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills identity and correlation fields from ctx, then records event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == uuid.Nil {
		event.ActorID = requestcontext.AdminID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = metadata.DeviceLabel(requestcontext.UserAgent(ctx))
	}

	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.stream != nil && !p.stream.Enqueue(event) {
		p.logger.WarnContext(ctx, "audit stream queue full, event not streamed",
			"event_id", event.ID,
			"action", string(event.Action),
			"request_id", event.RequestID,
		)
	}
	return nil
}
