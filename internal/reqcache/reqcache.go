// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package reqcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// ErrTypeMismatch is returned when callers sharing a key expect different
// value types.
var ErrTypeMismatch = errors.New("cached value has a different type")

// entry is one cached producer invocation. done is closed once val and err
// are set; neither changes afterwards.
type entry struct {
	done    chan struct{}
	val     any
	err     error
	created time.Time
	ttl     time.Duration
	timer   *time.Timer
}

func (e *entry) settled() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// Cache shares one producer call among every caller of the same key within
// the key's TTL. The zero value is not usable; call New.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock replaces time.Now. Expiry is checked against the clock on every
// lookup, in addition to the eviction timer.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New returns an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: map[string]*entry{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do returns the value for key, calling fn at most once per TTL window no
// matter how many goroutines ask concurrently. fn runs in its own goroutine
// with a context that is not cancelled when the first caller gives up, so
// later callers still get the result. A failed fn is forgotten immediately
// and the same error is returned to every waiter.
func Do[T any](
	ctx context.Context,
	c *Cache,
	key string,
	ttl time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	e, fresh := c.lookupOrInsert(key, ttl)
	if fresh {
		log.Debugf("reqcache miss %s (ttl %s)", key, ttl)
		go c.run(context.WithoutCancel(ctx), key, e, func(ctx context.Context) (any, error) {
			return fn(ctx)
		})
	} else {
		log.Debugf("reqcache hit %s", key)
	}

	var zero T
	select {
	case <-e.done:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if e.err != nil {
		return zero, e.err
	}
	v, ok := e.val.(T)
	if !ok && e.val != nil {
		return zero, fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, key, e.val)
	}
	return v, nil
}

func (c *Cache) lookupOrInsert(key string, ttl time.Duration) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if !c.expired(e) {
			return e, false
		}
		c.removeLocked(key, e)
	}

	e := &entry{
		done:    make(chan struct{}),
		created: c.now(),
		ttl:     ttl,
	}
	c.entries[key] = e
	if ttl > 0 {
		e.timer = time.AfterFunc(ttl, func() { c.evict(key, e) })
	}
	return e, true
}

func (c *Cache) run(ctx context.Context, key string, e *entry, fn func(context.Context) (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			e.val, e.err = nil, fmt.Errorf("producer for %s panicked: %v", key, r)
			log.WithError(e.err).Error("reqcache")
			c.evict(key, e)
		}
		close(e.done)
	}()

	e.val, e.err = fn(ctx)
	if e.err != nil {
		log.WithError(e.err).Debugf("reqcache drop %s", key)
		c.evict(key, e)
	}
}

// expired reports whether e has outlived its TTL. A TTL of zero or less
// never expires by time.
func (c *Cache) expired(e *entry) bool {
	return e.ttl > 0 && !c.now().Before(e.created.Add(e.ttl))
}

// evict removes key only while it still maps to e, so a stale timer or a late
// failure cannot remove a newer entry.
func (c *Cache) evict(key string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur == e {
		c.removeLocked(key, e)
	}
}

func (c *Cache) removeLocked(key string, e *entry) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(c.entries, key)
}

// Invalidate forgets key. A producer already running keeps running and its
// current waiters still receive its result.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// InvalidatePrefix forgets every key starting with prefix and returns how many
// were removed.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if strings.HasPrefix(k, prefix) {
			c.removeLocked(k, e)
			n++
		}
	}
	return n
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		c.removeLocked(k, e)
	}
}

// Stats is a point in time view of the cache.
type Stats struct {
	Entries int `json:"entries"`
	Pending int `json:"pending"`
}

// Stats counts live entries and those whose producer has not finished.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	for _, e := range c.entries {
		if c.expired(e) {
			continue
		}
		s.Entries++
		if !e.settled() {
			s.Pending++
		}
	}
	return s
}

// Keys returns the live keys, sorted.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Status describes what the cache holds for a key.
type Status int

const (
	// Absent means no live entry; the next Do calls the producer.
	Absent Status = iota
	// Pending means a producer is running.
	Pending
	// Ready means a settled value is cached.
	Ready
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	default:
		return "absent"
	}
}

// Status reports the state of key without touching it.
func (c *Cache) Status(key string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	switch {
	case !ok || c.expired(e):
		return Absent
	case e.settled():
		return Ready
	default:
		return Pending
	}
}

// Age returns how long ago key was populated.
func (c *Cache) Age(key string) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return 0, false
	}
	return c.now().Sub(e.created), true
}
