package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"encantar/internal/platform/logger"
	"encantar/internal/ratelimit/metrics"
	"encantar/internal/ratelimit/models"
	"encantar/internal/ratelimit/store/bucket"
	"encantar/pkg/platform/circuit"
	"encantar/pkg/requestcontext"
	tu "encantar/pkg/testutil"
)

type stubStore struct {
	err   error
	keys  []string
	inner *bucket.InMemoryBucketStore
}

func (s *stubStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	s.keys = append(s.keys, key)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Allow(ctx, key, limit, window)
}

type RateLimitSuite struct {
	suite.Suite
	store   *stubStore
	metrics *metrics.Metrics
	policy  models.Policy
}

func TestRateLimitSuite(t *testing.T) {
	suite.Run(t, new(RateLimitSuite))
}

func (s *RateLimitSuite) SetupTest() {
	s.store = &stubStore{inner: bucket.NewInMemoryBucketStore()}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.policy = models.AuthPolicy(2, time.Hour)
}

func (s *RateLimitSuite) handler(opts ...Option) http.Handler {
	opts = append(opts, WithMetrics(s.metrics))
	m := New(s.store, logger.Discard(), opts...)
	return m.Limit(s.policy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func (s *RateLimitSuite) request(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test-agent"))
}

func (s *RateLimitSuite) TestAllowsWithinLimit() {
	h := s.handler()

	rr := tu.DoRequest(h, s.request("203.0.113.7"))
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("2", rr.Header().Get(HeaderLimit))
	s.Equal("1", rr.Header().Get(HeaderRemaining))
	s.NotEmpty(rr.Header().Get(HeaderReset))
	s.Equal([]string{"ratelimit:auth:203.0.113.7"}, s.store.keys)
}

func (s *RateLimitSuite) TestRejectsOverLimit() {
	h := s.handler()
	tu.DoRequest(h, s.request("203.0.113.7"))
	tu.DoRequest(h, s.request("203.0.113.7"))

	rr := tu.DoRequest(h, s.request("203.0.113.7"))
	tu.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "auth_rate_limit_exceeded")
	s.NotEmpty(rr.Header().Get("Retry-After"))
	s.Equal("0", rr.Header().Get(HeaderRemaining))
	s.InDelta(1, testutil.ToFloat64(s.metrics.Rejected.WithLabelValues("auth")), 0)

	s.Run("other clients keep their own window", func() {
		rr := tu.DoRequest(h, s.request("198.51.100.1"))
		s.Equal(http.StatusOK, rr.Code)
	})
}

func (s *RateLimitSuite) TestGlobalPolicyCode() {
	s.policy = models.GlobalPolicy(1, 15*time.Minute)
	h := s.handler()
	tu.DoRequest(h, s.request("203.0.113.7"))

	rr := tu.DoRequest(h, s.request("203.0.113.7"))
	tu.AssertStatusAndError(s.T(), rr, http.StatusTooManyRequests, "rate_limit_exceeded")
}

func (s *RateLimitSuite) TestStoreErrorFailsOpen() {
	s.store.err = errors.New("connection refused")
	h := s.handler()

	rr := tu.DoRequest(h, s.request("203.0.113.7"))
	s.Equal(http.StatusOK, rr.Code)
	s.Empty(rr.Header().Get(HeaderLimit))
	s.InDelta(1, testutil.ToFloat64(s.metrics.StoreErrors.WithLabelValues("auth")), 0)
}

func (s *RateLimitSuite) TestBreakerSwitchesToFallback() {
	s.store.err = errors.New("connection refused")
	breaker := circuit.New("ratelimit", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	h := s.handler(WithFallback(bucket.NewInMemoryBucketStore(), breaker))

	first := tu.DoRequest(h, s.request("203.0.113.7"))
	s.Equal(http.StatusOK, first.Code)
	s.Empty(first.Header().Get(HeaderStatus))

	second := tu.DoRequest(h, s.request("203.0.113.7"))
	s.Equal(http.StatusOK, second.Code)
	s.Equal("degraded", second.Header().Get(HeaderStatus))
	s.Equal("1", second.Header().Get(HeaderRemaining))

	s.Run("fallback enforces the policy", func() {
		tu.DoRequest(h, s.request("203.0.113.7"))
		rr := tu.DoRequest(h, s.request("203.0.113.7"))
		s.Equal(http.StatusTooManyRequests, rr.Code)
	})

	s.Run("recovery returns to the primary store", func() {
		s.store.err = nil
		rr := tu.DoRequest(h, s.request("192.0.2.10"))
		s.Equal(http.StatusOK, rr.Code)
		s.Empty(rr.Header().Get(HeaderStatus))
		s.False(breaker.IsOpen())
	})
}

func (s *RateLimitSuite) TestDisabled() {
	h := s.handler(WithDisabled(true))
	for range 5 {
		rr := tu.DoRequest(h, s.request("203.0.113.7"))
		s.Equal(http.StatusOK, rr.Code)
	}
	s.Empty(s.store.keys)
}
