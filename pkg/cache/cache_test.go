package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type record struct {
	Symbol   string  `json:"symbol"`
	Accuracy float64 `json:"accuracy"`
}

func TestMemoryCacheRoundTripAndExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }

	if err := mc.Set(ctx, Key("calibration", "TCS"), record{"TCS", 81.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got record
	if err := mc.Get(ctx, "calibration:TCS", &got); err != nil || got.Accuracy != 81.5 {
		t.Fatalf("get = %+v, %v", got, err)
	}

	now = now.Add(2 * time.Minute)
	if err := mc.Get(ctx, "calibration:TCS", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	_ = mc.Set(ctx, "a", "1", 0)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "b", "2", 0)
	now = now.Add(time.Second)
	var s string
	_ = mc.Get(ctx, "a", &s)
	now = now.Add(time.Second)
	_ = mc.Set(ctx, "c", "3", 0)

	if err := mc.Get(ctx, "b", &s); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected b evicted, got %v", err)
	}
	if err := mc.Get(ctx, "a", &s); err != nil || s != "1" {
		t.Fatalf("a should survive, got %q %v", s, err)
	}
}

func TestMemoryCacheLock(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	ok, _ := mc.TryLock(ctx, "lock:TCS", time.Minute)
	if !ok {
		t.Fatalf("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "lock:TCS", time.Minute); ok {
		t.Fatalf("second lock should fail")
	}
	_ = mc.Unlock(ctx, "lock:TCS")
	if ok, _ := mc.TryLock(ctx, "lock:TCS", time.Minute); !ok {
		t.Fatalf("lock should be free after unlock")
	}
}

func TestLayeredCacheFillsL1(t *testing.T) {
	l2 := NewMemoryCache()
	lc := NewLayeredCache(l2)
	defer lc.Close()
	ctx := context.Background()

	if err := l2.Set(ctx, "history:TCS", []record{{"TCS", 1}}, time.Hour); err != nil {
		t.Fatal(err)
	}
	var got []record
	if err := lc.Get(ctx, "history:TCS", &got); err != nil || len(got) != 1 {
		t.Fatalf("get through L2 = %+v, %v", got, err)
	}
	_ = l2.Delete(ctx, "history:TCS")
	got = nil
	if err := lc.Get(ctx, "history:TCS", &got); err != nil || len(got) != 1 {
		t.Fatalf("expected L1 hit after fill, got %+v, %v", got, err)
	}
}
