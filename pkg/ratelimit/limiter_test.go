package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTokenBucket(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	tb := NewTokenBucket(10*time.Second, 2)
	tb.now = clock.now

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "burst used up")

	clock.advance(5 * time.Second)
	assert.False(t, tb.Allow())

	clock.advance(5 * time.Second)
	assert.True(t, tb.Allow(), "one token back after the interval")
	assert.False(t, tb.Allow())

	tb.Reset()
	assert.True(t, tb.Allow())
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, PerMinute(0))
	assert.Nil(t, PerMinute(-5))

	l := PerMinute(30)
	require.NotNil(t, l)
	tb, ok := l.(*TokenBucket)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, tb.interval)
	assert.Equal(t, 1, tb.burst)
}

func TestWaitReturnsImmediatelyWhenAllowed(t *testing.T) {
	tb := NewTokenBucket(time.Hour, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, tb.Wait(ctx))
	require.NoError(t, tb.Wait(ctx))
}

func TestWaitUntilTokenRefills(t *testing.T) {
	tb := NewTokenBucket(50*time.Millisecond, 1)
	require.True(t, tb.Allow())

	start := time.Now()
	require.NoError(t, tb.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestWaitHonoursCancellation(t *testing.T) {
	tb := NewTokenBucket(time.Hour, 1)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, tb.Wait(ctx))
}
