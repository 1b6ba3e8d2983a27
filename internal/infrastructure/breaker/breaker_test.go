package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-recommender/internal/infrastructure/config"
)

func testConfig() config.BreakerConfig {
	return config.BreakerConfig{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := New("test", testConfig())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, err := Do(b, func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, "open", b.State())

	_, err := Do(b, func() (int, error) { return 1, nil })
	require.Error(t, err)
	assert.True(t, IsRejected(err))
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	b := New("test", testConfig())
	boom := errors.New("boom")

	_, _ = Do(b, func() (int, error) { return 0, boom })
	_, _ = Do(b, func() (int, error) { return 0, boom })
	assert.Equal(t, "closed", b.State())

	v, err := Do(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCanceledCallsDoNotTrip(t *testing.T) {
	b := New("test", testConfig())
	for i := 0; i < 5; i++ {
		_, err := Do(b, func() (string, error) { return "", context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", b.State())
}

func TestDoWithNilBreaker(t *testing.T) {
	v, err := Do[*int](nil, func() (*int, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)
}
