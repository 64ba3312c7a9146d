package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy_Defaults(t *testing.T) {
	p := NewPolicy("model", 0, 0, 0, 0, -1, 0, 0)
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, p.Retry.MaxAttempts)
	assert.Equal(t, DefaultRetryConfig().InitialBackoff, p.Retry.InitialBackoff)
	assert.Equal(t, 5, p.Breaker.cfg.FailureThreshold)
	assert.Equal(t, 60*time.Second, p.Breaker.cfg.ResetTimeout)
}

func TestNewPolicy_Overrides(t *testing.T) {
	p := NewPolicy("model", 5, 100, 2000, 3, 0.1, 2, 10)
	assert.Equal(t, 5, p.Retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.Retry.InitialBackoff)
	assert.Equal(t, 2*time.Second, p.Retry.MaxBackoff)
	assert.InDelta(t, 3, p.Retry.Multiplier, 0.001)
	assert.InDelta(t, 0.1, p.Retry.JitterFraction, 0.001)
	assert.Equal(t, 2, p.Breaker.cfg.FailureThreshold)
	assert.Equal(t, 10*time.Second, p.Breaker.cfg.ResetTimeout)
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	p := NewPolicy("model", 3, 1, 2, 2, 0, 10, 60)
	calls := 0
	v, err := Run(context.Background(), p, "extract", func(context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errBusy
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestRun_OpenCircuitIsNotRetried(t *testing.T) {
	p := NewPolicy("model", 5, 1, 2, 2, 0, 1, 3600)
	calls := 0
	fn := func(context.Context) (int, error) {
		calls++
		return 0, errBusy
	}

	_, err := Run(context.Background(), p, "verify", fn)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, calls, "breaker opened after the first failure")
}

func TestRun_NilPolicy(t *testing.T) {
	v, err := Run(context.Background(), nil, "x", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = Run(context.Background(), nil, "x", func(context.Context) (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
}
