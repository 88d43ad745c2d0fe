package scheduler

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

	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

type countingScanner struct {
	calls atomic.Int32
	block chan struct{}
	nows  []time.Time
	mu    sync.Mutex
}

func (c *countingScanner) Scan(_ context.Context, now time.Time) (sla.ScanReport, error) {
	c.calls.Add(1)
	c.mu.Lock()
	c.nows = append(c.nows, now)
	c.mu.Unlock()
	if c.block != nil {
		<-c.block
	}
	return sla.ScanReport{Examined: 1}, nil
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLease_AcquireRelease(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	lease := NewLease(client, "scan", time.Minute)

	token, err := lease.Acquire(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	other, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)

	// A stale token must not release someone else's lease.
	require.NoError(t, lease.Release(ctx, "stale"))
	assert.True(t, mr.Exists("scan"))

	require.NoError(t, lease.Release(ctx, token))
	assert.False(t, mr.Exists("scan"))
}

func TestLease_Expires(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()
	lease := NewLease(client, "scan", time.Minute)

	_, err := lease.Acquire(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	token, err := lease.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestTick_SkipsWhileLeaseHeld(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	scanner := &countingScanner{block: make(chan struct{})}
	first := New(scanner, Options{Interval: time.Minute, Lease: NewLease(client, "scan", time.Minute), Now: func() time.Time { return now }})
	second := New(scanner, Options{Interval: time.Minute, Lease: NewLease(client, "scan", time.Minute), Now: func() time.Time { return now }})

	done := make(chan bool)
	go func() {
		_, ran := first.Tick(ctx)
		done <- ran
	}()
	require.Eventually(t, func() bool { return scanner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, ran := second.Tick(ctx)
	assert.False(t, ran)

	close(scanner.block)
	assert.True(t, <-done)

	scanner.block = nil
	report, ran := second.Tick(ctx)
	assert.True(t, ran)
	assert.Equal(t, 1, report.Examined)
	assert.Equal(t, int32(2), scanner.calls.Load())
	assert.Equal(t, []time.Time{now, now}, scanner.nows)
}

func TestTick_ScansWhenRedisDown(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	scanner := &countingScanner{}
	s := New(scanner, Options{Interval: time.Minute, Lease: NewLease(client, "scan", time.Minute)})

	_, ran := s.Tick(context.Background())
	assert.True(t, ran)
	assert.Equal(t, int32(1), scanner.calls.Load())
}

func TestRun_StopsOnCancel(t *testing.T) {
	scanner := &countingScanner{}
	s := New(scanner, Options{Interval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()
	require.Eventually(t, func() bool { return scanner.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
