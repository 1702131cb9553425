// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package reqcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for expiry tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func counter(calls *atomic.Int32, v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		calls.Add(1)
		return v, nil
	}
}

func TestDo_HitWithinTTL(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))
	ctx := context.Background()
	var calls atomic.Int32

	v1, err := Do(ctx, c, "k", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)
	clk.Advance(59 * time.Second)
	v2, err := Do(ctx, c, "k", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)

	assert.Equal(t, "a", v1)
	assert.Equal(t, "a", v2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_ExpiresAfterTTL(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))
	ctx := context.Background()
	var calls atomic.Int32

	_, err := Do(ctx, c, "k", time.Minute, counter(&calls, "a"))
	require.NoError(t, err)
	clk.Advance(time.Minute)

	v, err := Do(ctx, c, "k", time.Minute, counter(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_TimerEvicts(t *testing.T) {
	c := New()
	var calls atomic.Int32

	_, err := Do(context.Background(), c, "k", 20*time.Millisecond, counter(&calls, "a"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, c.Keys())

	assert.Eventually(t, func() bool { return len(c.Keys()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestDo_ConcurrentCallersShareOneCall(t *testing.T) {
	c := New()
	release := make(chan struct{})
	var calls atomic.Int32

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Do(context.Background(), c, "k", time.Minute, fn)
		}(i)
	}

	assert.Eventually(t, func() bool { return c.Stats().Pending == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := 0; i < n; i++ {
		assert.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestDo_ConcurrentCallersShareOneError(t *testing.T) {
	c := New()
	release := make(chan struct{})
	boom := errors.New("boom")
	var calls atomic.Int32

	fn := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 0, boom
	}

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	var started sync.WaitGroup
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started.Done()
			_, errs[i] = Do(context.Background(), c, "k", time.Minute, fn)
		}(i)
	}
	started.Wait()
	assert.Eventually(t, func() bool { return c.Stats().Pending == 1 }, time.Second, time.Millisecond)
	// Give the remaining goroutines a chance to join the pending entry.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}

func TestDo_ErrorIsNotCached(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	_, err := Do(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
		calls.Add(1)
		return "", errors.New("down")
	})
	require.Error(t, err)
	assert.Empty(t, c.Keys())

	v, err := Do(ctx, c, "k", time.Minute, counter(&calls, "up"))
	require.NoError(t, err)
	assert.Equal(t, "up", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDo_PanicBecomesError(t *testing.T) {
	c := New()
	_, err := Do(context.Background(), c, "k", time.Minute, func(context.Context) (string, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Empty(t, c.Keys())
}

func TestDo_WaiterCancelDoesNotCancelProducer(t *testing.T) {
	c := New()
	release := make(chan struct{})
	var producerErr atomic.Value

	fn := func(ctx context.Context) (string, error) {
		<-release
		if ctx.Err() != nil {
			producerErr.Store(ctx.Err())
		}
		return "done", nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := Do(ctx, c, "k", time.Minute, fn)
		errc <- err
	}()

	assert.Eventually(t, func() bool { return c.Stats().Pending == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	v, err := Do(context.Background(), c, "k", time.Minute, fn)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Nil(t, producerErr.Load())
}

func TestDo_TypeMismatch(t *testing.T) {
	c := New()
	ctx := context.Background()

	_, err := Do(ctx, c, "k", time.Minute, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	_, err = Do(ctx, c, "k", time.Minute, func(context.Context) (string, error) { return "x", nil })
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestInvalidate(t *testing.T) {
	c := New()
	ctx := context.Background()
	var calls atomic.Int32

	for _, k := range []string{"airtable:social:list::", "airtable:social:list:Orden:asc", "airtable:gallery:list::"} {
		_, err := Do(ctx, c, k, time.Minute, counter(&calls, k))
		require.NoError(t, err)
	}
	assert.Equal(t, Stats{Entries: 3}, c.Stats())

	c.Invalidate("airtable:gallery:list::")
	assert.Equal(t, []string{"airtable:social:list::", "airtable:social:list:Orden:asc"}, c.Keys())

	assert.Equal(t, 2, c.InvalidatePrefix("airtable:social:"))
	assert.Empty(t, c.Keys())

	_, err := Do(ctx, c, "airtable:social:list::", time.Minute, counter(&calls, "again"))
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())

	c.InvalidateAll()
	assert.Empty(t, c.Keys())
}

func TestInvalidate_LateFailureKeepsNewEntry(t *testing.T) {
	c := New()
	ctx := context.Background()
	release := make(chan struct{})

	errc := make(chan error, 1)
	go func() {
		_, err := Do(ctx, c, "k", time.Minute, func(context.Context) (string, error) {
			<-release
			return "", errors.New("late")
		})
		errc <- err
	}()
	assert.Eventually(t, func() bool { return c.Stats().Pending == 1 }, time.Second, time.Millisecond)

	c.Invalidate("k")
	v, err := Do(ctx, c, "k", time.Minute, func(context.Context) (string, error) { return "new", nil })
	require.NoError(t, err)
	assert.Equal(t, "new", v)

	close(release)
	assert.Error(t, <-errc)
	assert.Equal(t, []string{"k"}, c.Keys())
}

func TestStatus(t *testing.T) {
	c := New()
	release := make(chan struct{})
	assert.Equal(t, Absent, c.Status("k"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = Do(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
	}()
	assert.Eventually(t, func() bool { return c.Status("k") == Pending }, time.Second, time.Millisecond)

	close(release)
	<-done
	assert.Equal(t, Ready, c.Status("k"))
	assert.Equal(t, "ready", Ready.String())
}

func TestAge(t *testing.T) {
	clk := newClock()
	c := New(WithClock(clk.Now))

	_, err := Do(context.Background(), c, "k", time.Minute, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	clk.Advance(10 * time.Second)

	age, ok := c.Age("k")
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, age)

	_, ok = c.Age("missing")
	assert.False(t, ok)
}
