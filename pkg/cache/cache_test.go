package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

// summary 测试用的缓存值.
type summary struct {
	Files     int64 `json:"files"`
	Downloads int64 `json:"downloads"`
}

func TestGetMissIsNotError(t *testing.T) {
	c := cache.New(kv.NewMemory(), "stats")

	v, ok, err := cache.Get[summary](context.Background(), c, "summary")
	if err != nil || ok {
		t.Fatalf("Get = %+v, %v, %v", v, ok, err)
	}
}

func TestSetGet(t *testing.T) {
	ctx := context.Background()
	c := cache.New(kv.NewMemory(), "stats")

	if err := cache.Set(ctx, c, "summary", summary{Files: 3, Downloads: 9}, time.Minute); err != nil {
		t.Fatal(err)
	}

	v, ok, err := cache.Get[summary](ctx, c, "summary")
	if err != nil || !ok || v.Files != 3 || v.Downloads != 9 {
		t.Fatalf("Get = %+v, %v, %v", v, ok, err)
	}
}

// TestGetOrSetCallsGetterOnce 第二次调用命中缓存.
func TestGetOrSetCallsGetterOnce(t *testing.T) {
	ctx := context.Background()
	c := cache.New(kv.NewMemory(), "stats")

	calls := 0
	getter := func() (summary, error) {
		calls++

		return summary{Files: int64(calls)}, nil
	}

	for range 3 {
		v, err := cache.GetOrSet(ctx, c, "summary", getter, time.Minute)
		if err != nil {
			t.Fatal(err)
		}

		if v.Files != 1 {
			t.Errorf("value = %+v", v)
		}
	}

	if calls != 1 {
		t.Errorf("getter called %d times", calls)
	}
}

func TestGetOrSetPropagatesGetterError(t *testing.T) {
	c := cache.New(kv.NewMemory(), "")
	boom := errors.New("boom")

	_, err := cache.GetOrSet(context.Background(), c, "k", func() (int, error) { return 0, boom }, 0)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

// TestClearOnlyTouchesPrefix 不同前缀的缓存共享同一个 KV 时互不影响.
func TestClearOnlyTouchesPrefix(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	stats := cache.New(store, "stats")
	other := cache.New(store, "other")

	_ = cache.Set(ctx, stats, "a", 1, 0)
	_ = cache.Set(ctx, stats, "b", 2, 0)
	_ = cache.Set(ctx, other, "a", 3, 0)

	if err := stats.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if _, ok, _ := cache.Get[int](ctx, stats, "a"); ok {
		t.Error("stats:a survived Clear")
	}

	if v, ok, _ := cache.Get[int](ctx, other, "a"); !ok || v != 3 {
		t.Errorf("other:a = %d, %v", v, ok)
	}
}

func TestDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	c := cache.New(kv.NewMemory(), "stats")

	_ = cache.Set(ctx, c, "summary", summary{Files: 1}, 0)
	_ = c.Delete(ctx, "summary")

	if _, ok, _ := cache.Get[summary](ctx, c, "summary"); ok {
		t.Error("value still cached after delete")
	}
}
