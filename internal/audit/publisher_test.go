package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"encantar/internal/platform/logger"
	"encantar/pkg/requestcontext"
)

type recordingStore struct {
	events []Event
	err    error
}

func (r *recordingStore) Append(_ context.Context, event Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

type recordingQueue struct {
	events []Event
	full   bool
}

func (q *recordingQueue) Enqueue(event Event) bool {
	if q.full {
		return false
	}
	q.events = append(q.events, event)
	return true
}

type PublisherSuite struct {
	suite.Suite
	store *recordingStore
	queue *recordingQueue
	pub   *Publisher
	ctx   context.Context
	admin uuid.UUID
	now   time.Time
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = &recordingStore{}
	s.queue = &recordingQueue{}
	s.pub = NewPublisher(s.store, WithStream(s.queue), WithLogger(logger.Discard()))
	s.admin = uuid.New()
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithAdminID(context.Background(), s.admin)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "198.51.100.2", "curl/8.4.0")
	s.ctx = requestcontext.WithTime(ctx, s.now)
}

func (s *PublisherSuite) TestEmitEnrichesFromContext() {
	err := s.pub.Emit(s.ctx, Event{Action: ActionDeleted, Entity: EntityRoute, EntityID: "r-1"})
	s.Require().NoError(err)

	s.Require().Len(s.store.events, 1)
	got := s.store.events[0]
	s.NotEqual(uuid.Nil, got.ID)
	s.Equal(s.admin, got.ActorID)
	s.Equal("req-42", got.RequestID)
	s.Equal(s.now, got.Timestamp)
	s.Equal("198.51.100.2", got.ClientIP)
	s.Equal("curl 8", got.Device)
	s.Equal(s.store.events, s.queue.events)
}

func (s *PublisherSuite) TestExplicitFieldsWin() {
	actor := uuid.New()
	at := s.now.Add(-time.Hour)
	s.Require().NoError(s.pub.Emit(s.ctx, Event{Action: ActionLogin, Entity: EntityAdmin, ActorID: actor, Timestamp: at}))

	got := s.store.events[0]
	s.Equal(actor, got.ActorID)
	s.Equal(at, got.Timestamp)
}

func (s *PublisherSuite) TestStoreFailureSkipsStream() {
	s.store.err = errors.New("db down")
	err := s.pub.Emit(s.ctx, Event{Action: ActionCreated, Entity: EntityItem})
	s.Require().Error(err)
	s.Empty(s.queue.events)
}

func (s *PublisherSuite) TestFullQueueDoesNotFailEmit() {
	s.queue.full = true
	s.Require().NoError(s.pub.Emit(s.ctx, Event{Action: ActionCreated, Entity: EntityItem}))
	s.Len(s.store.events, 1)
}

func (s *PublisherSuite) TestWithoutStream() {
	pub := NewPublisher(s.store)
	s.Require().NoError(pub.Emit(context.Background(), Event{Action: ActionCreated, Entity: EntityItem}))
	s.Equal(uuid.Nil, s.store.events[0].ActorID)
}
