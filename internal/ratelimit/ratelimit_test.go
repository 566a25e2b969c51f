package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms)
}

func TestAdmitBoundary(t *testing.T) {
	clock := &fakeClock{}
	limiter := New(10, 60*time.Second, WithClock(clock.Now))

	for i := 0; i < 10; i++ {
		clock.Set(int64(i))
		require.True(t, limiter.Admit(), "request %d", i)
	}

	clock.Set(10)
	require.False(t, limiter.Admit())
	require.Equal(t, 0, limiter.Remaining())

	clock.Set(60_001)
	require.True(t, limiter.Admit())
}

func TestWindowIsStrict(t *testing.T) {
	clock := &fakeClock{}
	limiter := New(1, time.Second, WithClock(clock.Now))

	clock.Set(0)
	require.True(t, limiter.Admit())

	clock.Set(999)
	require.False(t, limiter.Admit())
	require.Equal(t, time.Millisecond, limiter.RetryAfter())

	clock.Set(1000)
	require.True(t, limiter.Admit())
}

func TestDeniedRequestsAreNotRecorded(t *testing.T) {
	clock := &fakeClock{}
	limiter := New(2, time.Second, WithClock(clock.Now))

	clock.Set(0)
	require.True(t, limiter.Admit())
	require.True(t, limiter.Admit())
	for i := 0; i < 5; i++ {
		require.False(t, limiter.Admit())
	}

	clock.Set(1000)
	require.Equal(t, 2, limiter.Remaining())
	require.Zero(t, limiter.RetryAfter())
}

func TestNewDefaults(t *testing.T) {
	limiter := New(0, 0)
	require.Equal(t, DefaultMaxRequests, limiter.maxRequests)
	require.Equal(t, DefaultWindow, limiter.window)
}

func TestConcurrentAdmitNeverExceedsLimit(t *testing.T) {
	limiter := New(10, time.Hour)

	var admitted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Admit() {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(10), admitted.Load())
}
