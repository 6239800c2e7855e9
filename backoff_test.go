package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffBaseDoublesAndSaturates(t *testing.T) {
	b := newBackoffScheduler(time.Second, 30*time.Second, func() float64 { return 0 })

	for n := 0; n < 12; n++ {
		want := time.Second << uint(n)
		if want > 30*time.Second {
			want = 30 * time.Second
		}
		require.Equal(t, want, b.Base(), "base after %d failures", n)
		b.Next()
	}
	assert.Equal(t, 30*time.Second, b.Base())
}

func TestBackoffDelayWithinJitterWindow(t *testing.T) {
	b := newBackoffScheduler(defaultInitialReconnectDelay, defaultMaxReconnectDelay, nil)

	for n := 0; n < 50; n++ {
		base := b.Base()
		delay := b.Next()
		assert.GreaterOrEqual(t, delay, base)
		assert.Less(t, delay, base+base*3/10)
	}
}

func TestBackoffJitterUpperEdge(t *testing.T) {
	b := newBackoffScheduler(time.Second, 30*time.Second, func() float64 { return 0.999999 })
	delay := b.Next()
	assert.Less(t, delay, 1300*time.Millisecond)
	assert.Greater(t, delay, 1299*time.Millisecond)
}

func TestBackoffReset(t *testing.T) {
	b := newBackoffScheduler(time.Second, 30*time.Second, func() float64 { return 0 })
	for i := 0; i < 7; i++ {
		b.Next()
	}
	require.Equal(t, 30*time.Second, b.Base())

	b.Reset()
	assert.Equal(t, time.Second, b.Base())
	assert.Equal(t, time.Second, b.Next())
}

func TestBackoffSaturatesNearMaxDuration(t *testing.T) {
	max := time.Duration(1<<62 + 1)
	b := newBackoffScheduler(time.Duration(1<<61), max, func() float64 { return 0 })
	for i := 0; i < 4; i++ {
		b.Next()
		assert.True(t, b.Base() > 0, "base must never wrap")
		assert.LessOrEqual(t, b.Base(), max)
	}
}

func TestBackoffNormalizesArguments(t *testing.T) {
	b := newBackoffScheduler(0, 0, nil)
	assert.Equal(t, defaultInitialReconnectDelay, b.Base())
	assert.Equal(t, defaultInitialReconnectDelay, b.max)
}
