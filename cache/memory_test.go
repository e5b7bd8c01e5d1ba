package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
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

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestFetchHitMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, []string](WithJanitor(0))
	defer c.Close()

	var loads int
	load := func(context.Context) ([]string, error) {
		loads++
		return []string{"a", "b"}, nil
	}

	got, err := c.Fetch(ctx, "k", load)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %d", len(got))
	}
	if _, err := c.Fetch(ctx, "k", load); err != nil {
		t.Fatal(err)
	}
	if loads != 1 {
		t.Fatalf("expected 1 load, got %d", loads)
	}
}

func TestFetchTTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	c := NewMemory[string, int](WithTTL(time.Hour), WithClock(clock.Now), WithJanitor(0))
	defer c.Close()

	var loads int
	load := func(context.Context) (int, error) {
		loads++
		return loads, nil
	}

	v, _ := c.Fetch(ctx, "k", load)
	clock.Advance(59 * time.Minute)
	v2, _ := c.Fetch(ctx, "k", load)
	if v != 1 || v2 != 1 {
		t.Fatalf("expected cached value 1, got %d then %d", v, v2)
	}

	clock.Advance(time.Minute)
	v3, _ := c.Fetch(ctx, "k", load)
	if v3 != 2 {
		t.Fatalf("expected reload after TTL, got %d", v3)
	}
}

func TestFetchSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithJanitor(0))
	defer c.Close()

	var loads atomic.Int32
	load := func(context.Context) (int, error) {
		loads.Add(1)
		time.Sleep(50 * time.Millisecond)
		return 42, nil
	}

	const callers = 32
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
	)
	results := make([]int, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := c.Fetch(ctx, "roles", load)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}()
	}
	close(start)
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("expected exactly 1 load, got %d", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Fatalf("caller %d got %d", i, v)
		}
	}
}

func TestFetchSharesErrorAndDoesNotCacheIt(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithJanitor(0))
	defer c.Close()

	boom := errors.New("storage down")
	release := make(chan struct{})
	var loads atomic.Int32
	failing := func(context.Context) (int, error) {
		loads.Add(1)
		<-release
		return 0, boom
	}

	const callers = 8
	errs := make(chan error, callers)
	for range callers {
		go func() {
			_, err := c.Fetch(ctx, "k", failing)
			errs <- err
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)

	for range callers {
		if err := <-errs; !errors.Is(err, boom) {
			t.Fatalf("expected shared error, got %v", err)
		}
	}
	if n := loads.Load(); n != 1 {
		t.Fatalf("expected 1 failing load, got %d", n)
	}

	v, err := c.Fetch(ctx, "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected recovery after error, got %d, %v", v, err)
	}
}

func TestFetchCallerCancellation(t *testing.T) {
	c := NewMemory[string, int](WithJanitor(0))
	defer c.Close()

	release := make(chan struct{})
	slow := func(context.Context) (int, error) {
		<-release
		return 1, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "k", slow); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	close(release)

	// The detached load still completes and populates the cache.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if v, ok := c.Get("k"); ok && v == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected detached load to populate the cache")
}

func TestDeleteDuringLoadDropsStaleResult(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithJanitor(0))
	defer c.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Fetch(ctx, "k", func(context.Context) (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()

	<-started
	c.Delete("k")
	close(release)
	<-done

	if _, ok := c.Get("k"); ok {
		t.Fatal("a load started before Delete must not repopulate the cache")
	}
	v, _ := c.Fetch(ctx, "k", func(context.Context) (int, error) { return 2, nil })
	if v != 2 {
		t.Fatalf("expected fresh load, got %d", v)
	}
}

func TestDeleteOtherKeyKeepsSingleFlight(t *testing.T) {
	ctx := context.Background()
	c := NewMemory[string, int](WithJanitor(0))
	defer c.Close()

	var loads atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		if loads.Add(1) == 1 {
			close(started)
		}
		<-release
		return 7, nil
	}

	var wg sync.WaitGroup
	fetch := func() {
		defer wg.Done()
		if v, err := c.Fetch(ctx, "A", load); err != nil || v != 7 {
			t.Errorf("fetch A: %d, %v", v, err)
		}
	}

	wg.Add(1)
	go fetch()
	<-started

	c.Delete("B")

	wg.Add(1)
	go fetch()
	// Give the second caller time to join the flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := loads.Load(); n != 1 {
		t.Fatalf("expected 1 load for A after Delete(B), got %d", n)
	}
	if v, ok := c.Get("A"); !ok || v != 7 {
		t.Fatalf("expected A to stay cached, got %d, %v", v, ok)
	}
}

func TestMaxSize(t *testing.T) {
	c := NewMemory[int, int](WithMaxSize(2), WithJanitor(0))
	defer c.Close()

	for i := range 5 {
		c.Set(i, i)
	}
	if n := c.Len(); n > 2 {
		t.Fatalf("expected max 2 entries, got %d", n)
	}
}

func TestJanitorAndClose(t *testing.T) {
	c := NewMemory[string, int](WithTTL(time.Millisecond), WithJanitor(2*time.Millisecond))
	c.Set("k", 1)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if c.Len() != 0 {
		t.Fatal("expected janitor to sweep expired entry")
	}

	c.Close()
	c.Close()
}

type countingRecorder struct {
	hits, misses atomic.Int32
}

func (r *countingRecorder) CacheHit(string)  { r.hits.Add(1) }
func (r *countingRecorder) CacheMiss(string) { r.misses.Add(1) }

func TestRecorder(t *testing.T) {
	rec := &countingRecorder{}
	c := NewMemory[string, int](WithRecorder("roles", rec), WithJanitor(0))
	defer c.Close()

	load := func(context.Context) (int, error) { return 1, nil }
	_, _ = c.Fetch(context.Background(), "k", load)
	_, _ = c.Fetch(context.Background(), "k", load)

	if rec.hits.Load() != 1 || rec.misses.Load() != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", rec.hits.Load(), rec.misses.Load())
	}
}
