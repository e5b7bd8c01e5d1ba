// Package cache provides the keyed TTL cache that fronts role and
// assignment reads.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a missing key.
type Loader[V any] func(ctx context.Context) (V, error)

// Recorder receives hit/miss notifications.
type Recorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

// Memory is an in-memory TTL cache with single-flight population: however
// many callers miss the same key at once, one Loader call runs and all of
// them observe its value or its error. Errors are never cached.
type Memory[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]*entry[V]
	// gens holds the generation of keys deleted while a load for them was
	// running; epoch changes on Clear. A load started before either
	// invalidation neither stores its result nor absorbs new callers.
	gens    map[K]uint64
	loading map[K]int
	epoch   uint64

	ttl      time.Duration
	maxSize  int
	interval time.Duration
	name     string
	recorder Recorder
	now      func() time.Time

	group     singleflight.Group
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Option configures a Memory cache.
type Option func(*config)

type config struct {
	ttl      time.Duration
	maxSize  int
	interval time.Duration
	name     string
	recorder Recorder
	now      func() time.Time
}

// WithTTL sets the entry time-to-live. Defaults to one hour.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) { c.ttl = ttl }
}

// WithMaxSize bounds the number of entries. Zero means unbounded.
func WithMaxSize(n int) Option {
	return func(c *config) { c.maxSize = n }
}

// WithJanitor sets how often expired entries are swept. Zero disables the
// background sweep; expired entries are then dropped on access only.
func WithJanitor(interval time.Duration) Option {
	return func(c *config) { c.interval = interval }
}

// WithRecorder reports hits and misses under name.
func WithRecorder(name string, r Recorder) Option {
	return func(c *config) {
		c.name = name
		c.recorder = r
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// NewMemory creates a cache. Call Close to stop its janitor.
func NewMemory[K comparable, V any](opts ...Option) *Memory[K, V] {
	cfg := config{
		ttl:      time.Hour,
		interval: time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Memory[K, V]{
		entries:  make(map[K]*entry[V]),
		gens:     make(map[K]uint64),
		loading:  make(map[K]int),
		ttl:      cfg.ttl,
		maxSize:  cfg.maxSize,
		interval: cfg.interval,
		name:     cfg.name,
		recorder: cfg.recorder,
		now:      cfg.now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if m.interval > 0 {
		go m.janitor()
	} else {
		close(m.done)
	}
	return m
}

// Get returns the cached value for key if present and not expired.
func (m *Memory[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		if cur, ok := m.entries[key]; ok && cur == e {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Fetch returns the cached value for key, calling load on a miss.
//
// The load runs detached from the caller's cancellation so that one caller
// giving up does not fail the others sharing the flight; a caller whose ctx
// ends stops waiting and gets ctx.Err().
func (m *Memory[K, V]) Fetch(ctx context.Context, key K, load Loader[V]) (V, error) {
	if v, ok := m.Get(key); ok {
		m.hit()
		return v, nil
	}
	m.miss()

	m.mu.RLock()
	epoch, gen := m.epoch, m.gens[key]
	m.mu.RUnlock()

	flight := fmt.Sprintf("%d\x00%d\x00%v", epoch, gen, key)
	ch := m.group.DoChan(flight, func() (any, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		m.begin(key)
		defer m.end(key)
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		m.store(key, v, epoch, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		return res.Val.(V), nil //nolint:forcetypeassert // the flight only returns V
	}
}

// Set stores value under key.
func (m *Memory[K, V]) Set(key K, value V) {
	m.mu.RLock()
	epoch, gen := m.epoch, m.gens[key]
	m.mu.RUnlock()
	m.store(key, value, epoch, gen)
}

func (m *Memory[K, V]) store(key K, value V, epoch, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch || gen != m.gens[key] {
		return
	}

	if m.maxSize > 0 && len(m.entries) >= m.maxSize {
		if _, exists := m.entries[key]; !exists {
			m.evictExpired()
			if len(m.entries) >= m.maxSize {
				m.evictSoonest()
			}
		}
	}

	m.entries[key] = &entry[V]{
		value:     value,
		expiresAt: m.now().Add(m.ttl),
	}
}

// Delete removes key. Loads of other keys are not affected.
func (m *Memory[K, V]) Delete(key K) {
	m.mu.Lock()
	delete(m.entries, key)
	if m.loading[key] > 0 {
		m.gens[key]++
	} else {
		// Nothing in flight can store under an older generation.
		delete(m.gens, key)
	}
	m.mu.Unlock()
}

// Clear removes every entry.
func (m *Memory[K, V]) Clear() {
	m.mu.Lock()
	m.entries = make(map[K]*entry[V])
	m.gens = make(map[K]uint64)
	m.epoch++
	m.mu.Unlock()
}

func (m *Memory[K, V]) begin(key K) {
	m.mu.Lock()
	m.loading[key]++
	m.mu.Unlock()
}

func (m *Memory[K, V]) end(key K) {
	m.mu.Lock()
	if m.loading[key]--; m.loading[key] <= 0 {
		delete(m.loading, key)
	}
	m.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor and drops all entries. It is safe to call more
// than once.
func (m *Memory[K, V]) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		<-m.done
		m.Clear()
	})
}

func (m *Memory[K, V]) janitor() {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			m.evictExpired()
			m.mu.Unlock()
		}
	}
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory[K, V]) evictExpired() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictSoonest removes the entry closest to expiry. Must hold write lock.
func (m *Memory[K, V]) evictSoonest() {
	var (
		victim K
		first  = true
		soon   time.Time
	)
	for k, e := range m.entries {
		if first || e.expiresAt.Before(soon) {
			victim, soon, first = k, e.expiresAt, false
		}
	}
	if !first {
		delete(m.entries, victim)
	}
}

func (m *Memory[K, V]) hit() {
	if m.recorder != nil {
		m.recorder.CacheHit(m.name)
	}
}

func (m *Memory[K, V]) miss() {
	if m.recorder != nil {
		m.recorder.CacheMiss(m.name)
	}
}
