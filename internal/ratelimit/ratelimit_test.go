package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
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

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func admittedSequence(t *testing.T, l Limiter, key string, n, limit int, window time.Duration) []bool {
	t.Helper()
	out := make([]bool, 0, n)
	for i := 0; i < n; i++ {
		d, err := l.Check(context.Background(), key, limit, window)
		require.NoError(t, err)
		out = append(out, d.Admitted)
	}
	return out
}

func TestMemoryFixedWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemory(WithClock(clock.Now))

	got := admittedSequence(t, m, "GET:1.2.3.4", 4, 3, time.Minute)
	assert.Equal(t, []bool{true, true, true, false}, got)

	d, err := m.Check(context.Background(), "GET:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)

	clock.Advance(time.Minute + time.Millisecond)
	d, err = m.Check(context.Background(), "GET:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Admitted, "a fresh window admits again")
	assert.Equal(t, 2, d.Remaining)
}

func TestMemoryWindowIsNotSliding(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemory(WithClock(clock.Now))

	first, _ := m.Check(context.Background(), "k", 2, time.Minute)
	clock.Advance(50 * time.Second)
	second, _ := m.Check(context.Background(), "k", 2, time.Minute)
	assert.Equal(t, first.ResetAt, second.ResetAt)

	clock.Advance(11 * time.Second)
	third, _ := m.Check(context.Background(), "k", 2, time.Minute)
	assert.True(t, third.Admitted)
	assert.True(t, third.ResetAt.After(first.ResetAt))
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	m := NewMemory()
	assert.Equal(t, []bool{true, false}, admittedSequence(t, m, "POST:a", 2, 1, time.Minute))
	assert.Equal(t, []bool{true}, admittedSequence(t, m, "POST:b", 1, 1, time.Minute))
	assert.Equal(t, []bool{true}, admittedSequence(t, m, "GET:a", 1, 1, time.Minute))
}

func TestMemoryConcurrentChecksNeverOverAdmit(t *testing.T) {
	m := NewMemory()
	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := m.Check(context.Background(), "hot", 25, time.Minute)
			if err == nil && d.Admitted {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(25), admitted.Load())
}

func TestMemoryPruneAndClose(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := NewMemory(WithClock(clock.Now), WithJanitor(time.Hour))
	_, _ = m.Check(context.Background(), "a", 1, time.Second)
	_, _ = m.Check(context.Background(), "b", 1, time.Hour)
	require.Equal(t, 2, m.Len())

	clock.Advance(2 * time.Second)
	m.Prune()
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestRetryAfter(t *testing.T) {
	now := time.Unix(100, 0)
	assert.Equal(t, 30, RetryAfter(Decision{ResetAt: now.Add(29500 * time.Millisecond)}, now))
	assert.Equal(t, 1, RetryAfter(Decision{ResetAt: now.Add(-time.Second)}, now))
	assert.False(t, Rule{}.Enabled())
	assert.True(t, Rule{Limit: 1, Window: time.Second}.Enabled())
}

func TestRedisFixedWindow(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedis(client, "test:")
	got := admittedSequence(t, l, "GET:1.2.3.4", 4, 3, time.Minute)
	assert.Equal(t, []bool{true, true, true, false}, got)
	assert.True(t, srv.Exists("test:GET:1.2.3.4"))

	d, err := l.Check(context.Background(), "GET:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.True(t, d.ResetAt.After(time.Now()))

	srv.FastForward(time.Minute + time.Second)
	d, err = l.Check(context.Background(), "GET:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Equal(t, 2, d.Remaining)
}

func TestRedisSurfacesServerErrors(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	srv.Close()

	_, err := NewRedis(client, "").Check(context.Background(), "k", 1, time.Minute)
	assert.Error(t, err)
}
