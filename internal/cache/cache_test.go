package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"varlens/internal/slogutil"
)

func newTestCache(ttl time.Duration) *Cache {
	return New(ttl, slogutil.NewDiscardLogger())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("lint", "src/", "", "", "warning")
	b := Fingerprint("lint", "src/", "", "", "warning")
	c := Fingerprint("lint", "src/", "", "", "error")

	if a != b {
		t.Error("identical inputs should produce identical fingerprints")
	}
	if a == c {
		t.Error("different inputs should produce different fingerprints")
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32 hex chars", len(a))
	}
}

func TestCache_HitWithinTTL(t *testing.T) {
	c := newTestCache(time.Minute)
	calls := 0
	compute := func(ctx context.Context) (any, error) {
		calls++
		return "result", nil
	}

	v1, info1, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if info1.Hit {
		t.Error("first call should be a miss")
	}

	v2, info2, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if !info2.Hit {
		t.Error("second call should be a hit")
	}
	if v1 != v2 {
		t.Errorf("values differ: %v vs %v", v1, v2)
	}

	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestCache_ExpiryRecomputes(t *testing.T) {
	c := newTestCache(time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	calls := 0
	compute := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, _, err := c.GetOrCompute(context.Background(), "k", compute); err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	// Jump past the TTL; the entry is now stale and must be recomputed
	c.now = func() time.Time { return base.Add(2 * time.Minute) }

	v, info, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if info.Hit {
		t.Error("expired entry should not count as a hit")
	}
	if v != 2 {
		t.Errorf("value = %v, want recomputed 2", v)
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCache_HitAge(t *testing.T) {
	c := newTestCache(time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	if _, _, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (any, error) {
		return "v", nil
	}); err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}

	c.now = func() time.Time { return base.Add(30 * time.Second) }

	_, info, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (any, error) {
		t.Fatal("compute should not run on a live hit")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("GetOrCompute() error = %v", err)
	}
	if info.Age != 30*time.Second {
		t.Errorf("Age = %v, want 30s", info.Age)
	}
}

func TestCache_ConcurrentSingleFlight(t *testing.T) {
	c := newTestCache(time.Minute)

	var calls atomic.Int32
	gate := make(chan struct{})
	compute := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-gate
		return "shared", nil
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]any, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrCompute(context.Background(), "k", compute)
			if err != nil {
				t.Errorf("GetOrCompute() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	// Give every worker time to reach the flight, then release the compute
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute ran %d times under concurrent identical requests, want 1", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("results[%d] = %v, want %q", i, v, "shared")
		}
	}
}

func TestCache_InvalidateAll(t *testing.T) {
	c := newTestCache(time.Minute)

	calls := 0
	compute := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, _, err := c.GetOrCompute(context.Background(), "a", compute); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.GetOrCompute(context.Background(), "b", compute); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	if n := c.InvalidateAll(); n != 2 {
		t.Errorf("InvalidateAll() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() after invalidation = %d, want 0", c.Len())
	}

	// Any request after invalidation recomputes regardless of prior TTL state
	_, info, err := c.GetOrCompute(context.Background(), "a", compute)
	if err != nil {
		t.Fatal(err)
	}
	if info.Hit {
		t.Error("request after InvalidateAll should be a miss")
	}
	if calls != 3 {
		t.Errorf("compute ran %d times, want 3", calls)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := newTestCache(time.Minute)

	calls := 0
	boom := errors.New("engine exploded")
	compute := func(ctx context.Context) (any, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return "recovered", nil
	}

	_, _, err := c.GetOrCompute(context.Background(), "k", compute)
	if !errors.Is(err, boom) {
		t.Fatalf("first call error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("failed compute should not be stored, Len() = %d", c.Len())
	}

	v, _, err := c.GetOrCompute(context.Background(), "k", compute)
	if err != nil {
		t.Fatalf("second call error = %v", err)
	}
	if v != "recovered" {
		t.Errorf("value = %v, want %q", v, "recovered")
	}
	if calls != 2 {
		t.Errorf("compute ran %d times, want 2", calls)
	}
}

func TestCache_DistinctKeysComputeSeparately(t *testing.T) {
	c := newTestCache(time.Minute)

	calls := 0
	compute := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	if _, _, err := c.GetOrCompute(context.Background(), "lint:src", compute); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.GetOrCompute(context.Background(), "lint:lib", compute); err != nil {
		t.Fatal(err)
	}

	if calls != 2 {
		t.Errorf("compute ran %d times for distinct keys, want 2", calls)
	}
}
