package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/offsync/internal/gateway"
)

func TestPolicy_DelayGrowsUntilCap(t *testing.T) {
	p := NewPolicy(Config{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     0, // deterministic for the growth check
		MaxRetries: 10,
	})

	var last time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		delay := p.Delay(attempt)
		assert.Greater(t, delay, last, "attempt %d", attempt)
		last = delay
	}

	// 1s * 2^6 = 64s, capped at the configured maximum
	assert.Equal(t, time.Minute, p.Delay(7))
	assert.Equal(t, time.Minute, p.Delay(20))
}

func TestPolicy_JitterStaysInBounds(t *testing.T) {
	p := NewPolicy(Config{
		BaseDelay:  time.Second,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     0.2,
		MaxRetries: 5,
	})

	for i := 0; i < 100; i++ {
		delay := p.Delay(3) // deterministic component is 4s
		assert.GreaterOrEqual(t, delay, 3200*time.Millisecond)
		assert.LessOrEqual(t, delay, 4800*time.Millisecond)
	}
}

func TestPolicy_ShouldRetry(t *testing.T) {
	p := NewPolicy(DefaultConfig())

	transient := &gateway.Error{Kind: gateway.KindTransient, Err: errors.New("timeout")}
	permanent := &gateway.Error{Kind: gateway.KindPermanent, StatusCode: 404}
	conflict := &gateway.ConflictError{RemoteVersion: 2}

	tests := []struct {
		err     error
		name    string
		attempt int
		want    bool
	}{
		{name: "transient within budget", err: transient, attempt: 1, want: true},
		{name: "transient at ceiling", err: transient, attempt: 5, want: false},
		{name: "permanent never retried", err: permanent, attempt: 1, want: false},
		{name: "conflict takes the resolver path", err: conflict, attempt: 1, want: false},
		{name: "unclassified treated as transient", err: errors.New("weird"), attempt: 2, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldRetry(tt.attempt, tt.err))
		})
	}
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, Cooldown: 30 * time.Second})

	require.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: 30 * time.Second})
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())

	// cooldown elapses: exactly one probe is admitted
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.False(t, b.Allow(), "second concurrent probe must be rejected")

	// successful probe closes the circuit
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, Cooldown: 30 * time.Second})
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(31 * time.Second)
	require.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow(), "failed probe restarts the cooldown")
}

func TestBreakerSet_PerService(t *testing.T) {
	set := NewBreakerSet(BreakerConfig{FailureThreshold: 1, Cooldown: time.Minute})

	set.Get("sync-api").RecordFailure()

	assert.Equal(t, BreakerOpen, set.Get("sync-api").State())
	assert.Equal(t, BreakerClosed, set.Get("media-cdn").State())
	assert.Same(t, set.Get("sync-api"), set.Get("sync-api"))
}
