// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package querycache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"

	"github.com/staranto/vcardctl/internal/airtable"
	"github.com/staranto/vcardctl/internal/reqcache"
	"github.com/staranto/vcardctl/internal/resource"
)

// Fetcher is the part of airtable.Client the cache reads through.
type Fetcher interface {
	List(ctx context.Context, res resource.Key, opts airtable.ListOptions) ([]airtable.Record, error)
}

// RefreshFunc is called when a successful fetch replaces an earlier value of
// the same key.
type RefreshFunc func(res resource.Key, old, new []airtable.Record)

// Snapshot is what a consumer sees for one query.
type Snapshot struct {
	Records []airtable.Record
	// Loading is true while a fetch for the key is in flight.
	Loading bool
	// Stale is true when Records predate an expiry or invalidation.
	Stale bool
	// Err is the most recent failure for the key, if the last fetch failed.
	Err       error
	FetchedAt time.Time
}

// last is the most recent successful result of a key. It is replaced, never
// modified in place.
type last struct {
	records   []airtable.Record
	fetchedAt time.Time
	err       error
}

// QueryCache caches list results per resource with the TTL of the resource's
// staleness class.
type QueryCache struct {
	fetcher   Fetcher
	rc        *reqcache.Cache
	ttls      map[resource.Staleness]time.Duration
	onRefresh RefreshFunc
	now       func() time.Time

	mu    sync.Mutex
	index map[resource.Key]map[string]struct{}
	last  map[string]last
	// gen is bumped on every invalidation of a resource. A fetch only
	// updates last while the generation it started under is current.
	gen map[resource.Key]uint64
}

// Option customizes a QueryCache.
type Option func(*QueryCache)

// WithTTLs overrides the TTL of individual staleness classes. Non-positive
// durations are ignored.
func WithTTLs(ttls map[resource.Staleness]time.Duration) Option {
	return func(q *QueryCache) {
		for s, d := range ttls {
			if d > 0 {
				q.ttls[s] = d
			}
		}
	}
}

// WithOnRefresh registers a callback for refreshed values.
func WithOnRefresh(fn RefreshFunc) Option {
	return func(q *QueryCache) { q.onRefresh = fn }
}

// WithClock replaces time.Now for FetchedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(q *QueryCache) { q.now = now }
}

// New returns a QueryCache reading through fetcher. A nil rc gets a private
// request cache.
func New(fetcher Fetcher, rc *reqcache.Cache, opts ...Option) *QueryCache {
	if rc == nil {
		rc = reqcache.New()
	}
	q := &QueryCache{
		fetcher: fetcher,
		rc:      rc,
		ttls:    map[resource.Staleness]time.Duration{},
		now:     time.Now,
		index:   map[resource.Key]map[string]struct{}{},
		last:    map[string]last{},
		gen:     map[resource.Key]uint64{},
	}
	for _, s := range resource.Stalenesses() {
		q.ttls[s] = s.DefaultTTL()
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Key is the canonical cache key of a list query.
func Key(res resource.Key, opts airtable.ListOptions) string {
	return KeyPrefix(res) + "list:" + opts.CacheKey()
}

// KeyPrefix is shared by every key of res.
func KeyPrefix(res resource.Key) string {
	return "airtable:" + string(res) + ":"
}

// TTL returns the time-to-live applied to res.
func (q *QueryCache) TTL(res resource.Key) time.Duration {
	return q.ttls[resource.StalenessOf(res)]
}

// Requests exposes the underlying request cache.
func (q *QueryCache) Requests() *reqcache.Cache { return q.rc }

// Fetch returns the records of res, from cache when fresh. Concurrent calls
// for the same query share one request.
func (q *QueryCache) Fetch(ctx context.Context, res resource.Key, opts airtable.ListOptions) ([]airtable.Record, error) {
	key := Key(res, opts)
	gen := q.track(res, key)

	return reqcache.Do(ctx, q.rc, key, q.TTL(res), func(ctx context.Context) ([]airtable.Record, error) {
		recs, err := q.fetcher.List(ctx, res, opts)
		if err != nil {
			q.fail(res, key, gen, err)
			return nil, err
		}
		q.store(res, key, gen, recs)
		return recs, nil
	})
}

// Query is Fetch with stale-while-revalidate. When the key has no fresh value
// but an earlier one exists, that value is returned marked stale and a single
// background refresh is started. It only blocks when nothing was ever fetched
// for the key.
func (q *QueryCache) Query(ctx context.Context, res resource.Key, opts airtable.ListOptions) Snapshot {
	key := Key(res, opts)

	q.mu.Lock()
	prev, ok := q.last[key]
	q.mu.Unlock()

	status := q.rc.Status(key)
	if !ok || status == reqcache.Ready {
		recs, err := q.Fetch(ctx, res, opts)
		if err != nil {
			return Snapshot{Err: err}
		}
		q.mu.Lock()
		cur := q.last[key]
		q.mu.Unlock()
		return Snapshot{Records: recs, FetchedAt: cur.fetchedAt}
	}

	if status == reqcache.Absent {
		log.Debugf("querycache: serving stale %s while refreshing", key)
	}
	go func() {
		if _, err := q.Fetch(context.WithoutCancel(ctx), res, opts); err != nil {
			log.WithError(err).Warnf("querycache: refresh of %s failed", key)
		}
	}()

	return Snapshot{
		Records:   prev.records,
		Loading:   true,
		Stale:     true,
		Err:       prev.err,
		FetchedAt: prev.fetchedAt,
	}
}

// track indexes key under res and returns the current generation of res.
func (q *QueryCache) track(res resource.Key, key string) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	keys, ok := q.index[res]
	if !ok {
		keys = map[string]struct{}{}
		q.index[res] = keys
	}
	keys[key] = struct{}{}
	return q.gen[res]
}

// store replaces the last good value of key. Results of a fetch that started
// before the latest invalidation of res are dropped.
func (q *QueryCache) store(res resource.Key, key string, gen uint64, recs []airtable.Record) {
	q.mu.Lock()
	if q.gen[res] != gen {
		q.mu.Unlock()
		log.Debugf("querycache: dropping superseded result of %s", key)
		return
	}
	prev, had := q.last[key]
	q.last[key] = last{records: recs, fetchedAt: q.now()}
	q.mu.Unlock()

	if had && q.onRefresh != nil {
		q.onRefresh(res, prev.records, recs)
	}
}

// fail keeps the last good records and remembers the error next to them.
func (q *QueryCache) fail(res resource.Key, key string, gen uint64, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.gen[res] != gen {
		return
	}
	if prev, ok := q.last[key]; ok {
		prev.err = err
		q.last[key] = prev
	}
}

// InvalidateResource drops every cached query of res so the next read fetches
// again. Last good values are kept for stale reads. Fetches already in flight
// still answer their callers but no longer replace the last good values.
func (q *QueryCache) InvalidateResource(res resource.Key) {
	q.mu.Lock()
	q.gen[res]++
	keys := make([]string, 0, len(q.index[res]))
	for k := range q.index[res] {
		keys = append(keys, k)
	}
	q.mu.Unlock()

	for _, k := range keys {
		q.rc.Invalidate(k)
	}
	n := q.rc.InvalidatePrefix(KeyPrefix(res))
	log.Debugf("querycache: invalidated %s (%d tracked, %d untracked)", res, len(keys), n)
}

// InvalidateAll drops every cached query.
func (q *QueryCache) InvalidateAll() {
	q.mu.Lock()
	resources := make([]resource.Key, 0, len(q.index))
	for res := range q.index {
		resources = append(resources, res)
	}
	q.mu.Unlock()

	for _, res := range resources {
		q.InvalidateResource(res)
	}
	q.rc.InvalidateAll()
}

// Entry describes one tracked query for diagnostics.
type Entry struct {
	Key       string        `json:"key"`
	Resource  resource.Key  `json:"resource"`
	Status    string        `json:"status"`
	Records   int           `json:"records"`
	TTL       time.Duration `json:"ttl"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Age       time.Duration `json:"age"`
	Err       string        `json:"error,omitempty"`
}

// Entries lists every tracked query, sorted by key.
func (q *QueryCache) Entries() []Entry {
	q.mu.Lock()
	var out []Entry
	for res, keys := range q.index {
		for k := range keys {
			e := Entry{Key: k, Resource: res, TTL: q.TTL(res)}
			if l, ok := q.last[k]; ok {
				e.Records = len(l.records)
				e.FetchedAt = l.fetchedAt
				if l.err != nil {
					e.Err = l.err.Error()
				}
			}
			out = append(out, e)
		}
	}
	q.mu.Unlock()

	for i := range out {
		out[i].Status = q.rc.Status(out[i].Key).String()
		if age, ok := q.rc.Age(out[i].Key); ok {
			out[i].Age = age
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
