package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestStartsClosed() {
	b := New("ratelimit")
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
	s.Equal("ratelimit", b.Name())
	s.Equal("closed", b.State().String())
}

func (s *BreakerSuite) TestOpening() {
	s.Run("opens on the threshold failure", func() {
		b := New("redis", WithFailureThreshold(2))

		useFallback, change := b.RecordFailure()
		s.False(useFallback)
		s.False(change.Opened)

		useFallback, change = b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)
		s.Equal("open", b.State().String())
	})

	s.Run("further failures keep serving fallback without a transition", func() {
		b := New("redis", WithFailureThreshold(1))
		b.RecordFailure()

		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened)
	})

	s.Run("a success while closed clears the failure streak", func() {
		b := New("redis", WithFailureThreshold(2))
		b.RecordFailure()
		usePrimary, _ := b.RecordSuccess()
		s.True(usePrimary)

		b.RecordFailure()
		s.False(b.IsOpen())
	})
}

func (s *BreakerSuite) TestClosing() {
	s.Run("needs consecutive successes", func() {
		b := New("redis", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		usePrimary, change := b.RecordSuccess()
		s.False(usePrimary)
		s.False(change.Closed)

		b.RecordFailure()
		usePrimary, _ = b.RecordSuccess()
		s.False(usePrimary, "failure restarted the success streak")

		usePrimary, change = b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.False(b.IsOpen())
	})

	s.Run("reset closes immediately", func() {
		b := New("redis", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		s.Equal(StateClosed, b.State())
	})

	s.Run("non-positive thresholds keep defaults", func() {
		b := New("redis", WithFailureThreshold(0), WithSuccessThreshold(-1))
		for range 4 {
			b.RecordFailure()
		}
		s.False(b.IsOpen())
		b.RecordFailure()
		s.True(b.IsOpen())
	})
}
