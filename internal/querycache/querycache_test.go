// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/reqcache"
	"github.com/staranto/vcardctl/internal/resource"
)

// fakeFetcher counts List calls per resource and returns canned records.
type fakeFetcher struct {
	mu    sync.Mutex
	calls map[resource.Key]int
	recs  map[resource.Key][]airtable.Record
	errs  map[resource.Key]error
	gate  chan struct{}
}

func newFake() *fakeFetcher {
	return &fakeFetcher{
		calls: map[resource.Key]int{},
		recs:  map[resource.Key][]airtable.Record{},
		errs:  map[resource.Key]error{},
	}
}

func (f *fakeFetcher) List(_ context.Context, res resource.Key, _ airtable.ListOptions) ([]airtable.Record, error) {
	f.mu.Lock()
	f.calls[res]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[res]; err != nil {
		return nil, err
	}
	return f.recs[res], nil
}

func (f *fakeFetcher) set(res resource.Key, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	recs := make([]airtable.Record, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, airtable.Record{ID: id, Fields: json.RawMessage(`{}`)})
	}
	f.recs[res] = recs
}

func (f *fakeFetcher) fail(res resource.Key, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[res] = err
}

func (f *fakeFetcher) count(res resource.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[res]
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(f Fetcher, opts ...Option) (*QueryCache, *clock) {
	clk := &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	rc := reqcache.New(reqcache.WithClock(clk.Now))
	return New(f, rc, append([]Option{WithClock(clk.Now)}, opts...)...), clk
}

func ids(recs []airtable.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func TestKey(t *testing.T) {
	assert.Equal(t, "airtable:social:list::", Key(resource.Social, airtable.ListOptions{}))
	assert.Equal(t, "airtable:posiciontarjeta:list:Posicion:asc",
		Key(resource.PosicionTarjeta, airtable.SortedBy("Posicion", "asc")))
	assert.Equal(t, "airtable:experience:list:FechaInicio:desc",
		Key(resource.Experience, airtable.SortedBy("FechaInicio", "DESC")))
}

func TestTTL(t *testing.T) {
	q, _ := newCache(newFake(), WithTTLs(map[resource.Staleness]time.Duration{
		resource.Realtime: 5 * time.Second,
		resource.Static:   0,
	}))

	assert.Equal(t, 30*time.Minute, q.TTL(resource.Config))
	assert.Equal(t, 10*time.Minute, q.TTL(resource.Gallery))
	assert.Equal(t, 5*time.Minute, q.TTL(resource.Social))
	assert.Equal(t, 5*time.Second, q.TTL(resource.Colaborar))
}

func TestFetch_WithinTTLFetchesOnce(t *testing.T) {
	for _, res := range resource.Keys() {
		t.Run(string(res), func(t *testing.T) {
			f := newFake()
			f.set(res, "rec1")
			q, clk := newCache(f)
			ctx := context.Background()

			first, err := q.Fetch(ctx, res, airtable.ListOptions{})
			require.NoError(t, err)
			clk.Advance(q.TTL(res) - time.Second)
			second, err := q.Fetch(ctx, res, airtable.ListOptions{})
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, 1, f.count(res))

			clk.Advance(time.Second)
			_, err = q.Fetch(ctx, res, airtable.ListOptions{})
			require.NoError(t, err)
			assert.Equal(t, 2, f.count(res))
		})
	}
}

func TestFetch_ConcurrentCallsShareOneFetch(t *testing.T) {
	f := newFake()
	f.set(resource.Gallery, "rec1")
	f.gate = make(chan struct{})
	q, _ := newCache(f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := q.Fetch(context.Background(), resource.Gallery, airtable.ListOptions{})
			assert.NoError(t, err)
			assert.Len(t, recs, 1)
		}()
	}
	assert.Eventually(t, func() bool { return f.count(resource.Gallery) == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()

	assert.Equal(t, 1, f.count(resource.Gallery))
}

func TestInvalidateResource_NextReadFetchesOnce(t *testing.T) {
	f := newFake()
	f.set(resource.Social, "rec1")
	f.set(resource.Gallery, "img1")
	q, _ := newCache(f)
	ctx := context.Background()

	_, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	_, err = q.Fetch(ctx, resource.Social, airtable.SortedBy("Orden", "asc"))
	require.NoError(t, err)
	_, err = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, f.count(resource.Social))

	f.set(resource.Social, "rec1", "rec2")
	q.InvalidateResource(resource.Social)

	recs, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1", "rec2"}, ids(recs))
	_, err = q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.count(resource.Social))

	// Other resources keep their entries.
	_, err = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.count(resource.Gallery))
}

func TestInvalidateAll(t *testing.T) {
	f := newFake()
	q, _ := newCache(f)
	ctx := context.Background()

	_, _ = q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	_, _ = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})
	q.InvalidateAll()
	_, _ = q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	_, _ = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})

	assert.Equal(t, 2, f.count(resource.Social))
	assert.Equal(t, 2, f.count(resource.Gallery))
}

func TestFetch_FailureIsolation(t *testing.T) {
	f := newFake()
	f.set(resource.Social, "rec1")
	f.fail(resource.Gallery, errors.New("gallery down"))
	q, _ := newCache(f)
	ctx := context.Background()

	_, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)

	_, err = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})
	require.Error(t, err)
	_, err = q.Fetch(ctx, resource.Gallery, airtable.ListOptions{})
	require.Error(t, err)
	assert.Equal(t, 2, f.count(resource.Gallery))

	recs, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"rec1"}, ids(recs))
	assert.Equal(t, 1, f.count(resource.Social))
}

func TestQuery_StaleWhileRevalidate(t *testing.T) {
	f := newFake()
	f.set(resource.Colaborar, "v1")

	var refreshed [][]string
	var mu sync.Mutex
	q, clk := newCache(f, WithOnRefresh(func(res resource.Key, old, new []airtable.Record) {
		mu.Lock()
		defer mu.Unlock()
		refreshed = append(refreshed, []string{ids(old)[0], ids(new)[0]})
	}))
	ctx := context.Background()

	snap := q.Query(ctx, resource.Colaborar, airtable.ListOptions{})
	require.NoError(t, snap.Err)
	assert.False(t, snap.Stale)
	assert.False(t, snap.Loading)
	assert.Equal(t, []string{"v1"}, ids(snap.Records))

	snap = q.Query(ctx, resource.Colaborar, airtable.ListOptions{})
	assert.False(t, snap.Stale)
	assert.Equal(t, 1, f.count(resource.Colaborar))

	// After expiry the old value is served while one refresh runs.
	f.set(resource.Colaborar, "v2")
	f.gate = make(chan struct{})
	clk.Advance(q.TTL(resource.Colaborar))

	snap = q.Query(ctx, resource.Colaborar, airtable.ListOptions{})
	assert.True(t, snap.Stale)
	assert.True(t, snap.Loading)
	assert.Equal(t, []string{"v1"}, ids(snap.Records))

	snap = q.Query(ctx, resource.Colaborar, airtable.ListOptions{})
	assert.True(t, snap.Stale)
	assert.Equal(t, []string{"v1"}, ids(snap.Records))

	close(f.gate)
	assert.Eventually(t, func() bool {
		return q.Requests().Status(Key(resource.Colaborar, airtable.ListOptions{})) == reqcache.Ready
	}, time.Second, time.Millisecond)

	snap = q.Query(ctx, resource.Colaborar, airtable.ListOptions{})
	assert.False(t, snap.Stale)
	assert.Equal(t, []string{"v2"}, ids(snap.Records))
	assert.Equal(t, 2, f.count(resource.Colaborar))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"v1", "v2"}}, refreshed)
}

func TestQuery_FailedRefreshKeepsLastGoodValue(t *testing.T) {
	f := newFake()
	f.set(resource.Social, "good")
	q, _ := newCache(f)
	ctx := context.Background()

	snap := q.Query(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, snap.Err)

	boom := errors.New("boom")
	f.fail(resource.Social, boom)
	q.InvalidateResource(resource.Social)

	snap = q.Query(ctx, resource.Social, airtable.ListOptions{})
	assert.True(t, snap.Stale)
	assert.Equal(t, []string{"good"}, ids(snap.Records))

	assert.Eventually(t, func() bool { return f.count(resource.Social) == 2 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool {
		s := q.Query(ctx, resource.Social, airtable.ListOptions{})
		return errors.Is(s.Err, boom) && len(s.Records) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestQuery_NoValueBlocksAndReportsError(t *testing.T) {
	f := newFake()
	f.fail(resource.Videos, errors.New("down"))
	q, _ := newCache(f)

	snap := q.Query(context.Background(), resource.Videos, airtable.ListOptions{})
	assert.Error(t, snap.Err)
	assert.Nil(t, snap.Records)
	assert.False(t, snap.Stale)
}

func TestEntries(t *testing.T) {
	f := newFake()
	f.set(resource.Social, "a", "b")
	q, clk := newCache(f)

	_, err := q.Fetch(context.Background(), resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	clk.Advance(time.Minute)

	entries := q.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "airtable:social:list::", entries[0].Key)
	assert.Equal(t, "ready", entries[0].Status)
	assert.Equal(t, 2, entries[0].Records)
	assert.Equal(t, time.Minute, entries[0].Age)
	assert.Equal(t, 5*time.Minute, entries[0].TTL)
}


// scriptedFetcher answers the n-th List call with replies[n]. A reply with a
// gate blocks until the gate is closed.
type scriptedFetcher struct {
	mu      sync.Mutex
	n       int
	replies []reply
}

type reply struct {
	ids  []string
	gate chan struct{}
}

func (f *scriptedFetcher) List(_ context.Context, _ resource.Key, _ airtable.ListOptions) ([]airtable.Record, error) {
	f.mu.Lock()
	r := f.replies[f.n]
	f.n++
	f.mu.Unlock()

	if r.gate != nil {
		<-r.gate
	}
	recs := make([]airtable.Record, 0, len(r.ids))
	for _, id := range r.ids {
		recs = append(recs, airtable.Record{ID: id, Fields: json.RawMessage(`{}`)})
	}
	return recs, nil
}

func (f *scriptedFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

func TestInvalidateResource_LateFetchDoesNotReplaceNewerValue(t *testing.T) {
	slow := make(chan struct{})
	f := &scriptedFetcher{replies: []reply{
		{ids: []string{"old"}, gate: slow},
		{ids: []string{"new"}},
		{ids: []string{"newer"}},
	}}

	var mu sync.Mutex
	var refreshed [][]string
	q, clk := newCache(f, WithOnRefresh(func(_ resource.Key, old, new []airtable.Record) {
		mu.Lock()
		defer mu.Unlock()
		refreshed = append(refreshed, []string{ids(old)[0], ids(new)[0]})
	}))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		recs, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
		assert.NoError(t, err)
		assert.Equal(t, []string{"old"}, ids(recs))
	}()
	require.Eventually(t, func() bool { return f.count() == 1 }, time.Second, time.Millisecond)

	// A write lands while the first fetch is still running.
	q.InvalidateResource(resource.Social)
	recs, err := q.Fetch(ctx, resource.Social, airtable.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, ids(recs))

	close(slow)
	<-done

	clk.Advance(q.TTL(resource.Social))
	snap := q.Query(ctx, resource.Social, airtable.ListOptions{})
	assert.True(t, snap.Stale)
	assert.Equal(t, []string{"new"}, ids(snap.Records))

	assert.Eventually(t, func() bool {
		return q.Requests().Status(Key(resource.Social, airtable.ListOptions{})) == reqcache.Ready
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]string{{"new", "newer"}}, refreshed)
}
