package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"encantar/internal/platform/logger"
	"encantar/internal/platform/metrics"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	now   time.Time
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore()
	s.store.now = func() time.Time { return s.now }
}

func (s *MemoryStoreSuite) TestGetSet() {
	ctx := context.Background()

	s.Run("missing key is a miss", func() {
		_, ok, err := s.store.Get(ctx, "absent")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("stored value is returned until it expires", func() {
		s.Require().NoError(s.store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))

		value, ok, err := s.store.Get(ctx, "k")
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(`{"a":1}`, string(value))

		s.now = s.now.Add(time.Minute)
		_, ok, err = s.store.Get(ctx, "k")
		s.Require().NoError(err)
		s.False(ok)
		s.Equal(0, s.store.Len())
	})

	s.Run("non-positive ttl is not stored", func() {
		s.Require().NoError(s.store.Set(ctx, "zero", []byte("x"), 0))
		_, ok, _ := s.store.Get(ctx, "zero")
		s.False(ok)
	})
}

func (s *MemoryStoreSuite) TestExpiredReadKeepsConcurrentRefresh() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "k", []byte("old"), time.Second))
	s.now = s.now.Add(time.Minute)

	// The clock read that finds "k" expired happens outside the lock; a
	// writer refreshing the key at that moment must not lose its entry.
	refresh := true
	s.store.now = func() time.Time {
		if refresh {
			refresh = false
			s.Require().NoError(s.store.Set(ctx, "k", []byte("new"), time.Minute))
		}
		return s.now
	}

	_, ok, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.False(ok)

	value, ok, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("new", string(value))
}

func (s *MemoryStoreSuite) TestDeletePrefix() {
	ctx := context.Background()
	s.Require().NoError(s.store.Set(ctx, "cache:/api/items", []byte("1"), time.Hour))
	s.Require().NoError(s.store.Set(ctx, "cache:/api/items?page=2", []byte("2"), time.Hour))
	s.Require().NoError(s.store.Set(ctx, "cache:/api/routes", []byte("3"), time.Hour))
	s.Require().NoError(s.store.Set(ctx, "cache:/api/old", []byte("4"), time.Second))
	s.now = s.now.Add(time.Minute)

	n, err := s.store.DeletePrefix(ctx, "cache:/api/items")
	s.Require().NoError(err)
	s.Equal(2, n)
	s.Equal(1, s.store.Len(), "expired entries are swept with the scan")

	_, ok, _ := s.store.Get(ctx, "cache:/api/routes")
	s.True(ok)
}

type MiddlewareSuite struct {
	suite.Suite
	store   *MemoryStore
	metrics *metrics.Metrics
	cache   *ResponseCache
	calls   atomic.Int32
	status  int
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.cache = New(s.store, WithLogger(logger.Discard()), WithMetrics(s.metrics))
	s.calls.Store(0)
	s.status = http.StatusOK
}

func (s *MiddlewareSuite) handler() http.Handler {
	return s.cache.Middleware(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
}

func (s *MiddlewareSuite) serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func (s *MiddlewareSuite) TestMissThenHit() {
	h := s.handler()

	first := s.serve(h, http.MethodGet, "/api/items?page=1")
	s.Equal("MISS", first.Header().Get(HeaderStatus))
	s.Equal(`{"success":true}`, first.Body.String())

	second := s.serve(h, http.MethodGet, "/api/items?page=1")
	s.Equal("HIT", second.Header().Get(HeaderStatus))
	s.Equal(http.StatusOK, second.Code)
	s.Equal(`{"success":true}`, second.Body.String())
	s.Equal(int32(1), s.calls.Load())

	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheResults.WithLabelValues("hit")), 0)
	s.InDelta(1, testutil.ToFloat64(s.metrics.CacheResults.WithLabelValues("miss")), 0)
}

func (s *MiddlewareSuite) TestQueryStringIsPartOfKey() {
	h := s.handler()
	s.serve(h, http.MethodGet, "/api/items?page=1")
	rr := s.serve(h, http.MethodGet, "/api/items?page=2")
	s.Equal("MISS", rr.Header().Get(HeaderStatus))
	s.Equal(int32(2), s.calls.Load())
}

func (s *MiddlewareSuite) TestNonGetBypasses() {
	h := s.handler()
	rr := s.serve(h, http.MethodPost, "/api/items")
	s.Empty(rr.Header().Get(HeaderStatus))
	s.Equal(0, s.store.Len())
}

func (s *MiddlewareSuite) TestErrorResponsesAreNotStored() {
	s.status = http.StatusNotFound
	h := s.handler()
	s.serve(h, http.MethodGet, "/api/items/missing")
	s.serve(h, http.MethodGet, "/api/items/missing")
	s.Equal(int32(2), s.calls.Load())
	s.Equal(0, s.store.Len())
}

func (s *MiddlewareSuite) TestInvalidateDropsDependents() {
	h := s.handler()
	s.serve(h, http.MethodGet, "/api/deliveries")
	s.serve(h, http.MethodGet, "/api/routes/1")
	s.serve(h, http.MethodGet, "/api/dashboard")
	s.serve(h, http.MethodGet, "/api/document-templates")
	s.Equal(4, s.store.Len())

	s.cache.Invalidate(context.Background(), EntityDeliveries)

	s.Equal(1, s.store.Len())
	_, ok, _ := s.store.Get(context.Background(), "cache:/api/document-templates")
	s.True(ok)
}
