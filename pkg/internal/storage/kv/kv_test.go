package kv_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Get missing err = %v", err)
	}

	if err := store.Set(ctx, "a", []byte("1"), 0); err != nil {
		t.Fatal(err)
	}

	v, err := store.Get(ctx, "a")
	if err != nil || string(v) != "1" {
		t.Fatalf("Get = %q, %v", v, err)
	}

	// 返回副本，修改不影响存储
	v[0] = 'x'
	if v2, _ := store.Get(ctx, "a"); string(v2) != "1" {
		t.Errorf("stored value mutated: %q", v2)
	}

	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	if ok, _ := store.Exists(ctx, "a"); ok {
		t.Error("key still exists after delete")
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	if err := store.Set(ctx, "short", []byte("v"), 20*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	if ok, _ := store.Exists(ctx, "short"); !ok {
		t.Fatal("key should exist before ttl")
	}

	time.Sleep(40 * time.Millisecond)

	if _, err := store.Get(ctx, "short"); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("expired Get err = %v", err)
	}
}

// TestMemoryIncrWindow 计数窗口从第一次递增开始，后续递增不延长.
func TestMemoryIncrWindow(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	for i := 1; i <= 3; i++ {
		n, err := store.Incr(ctx, "fail:alice", 50*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}

		if n != int64(i) {
			t.Fatalf("Incr #%d = %d", i, n)
		}
	}

	time.Sleep(80 * time.Millisecond)

	n, err := store.Incr(ctx, "fail:alice", 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	if n != 1 {
		t.Errorf("counter after window = %d, want 1", n)
	}
}

func TestMemoryIncrConcurrent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, _ = store.Incr(ctx, "c", 0)
		}()
	}

	wg.Wait()

	v, _ := store.Get(ctx, "c")
	if string(v) != "50" {
		t.Errorf("counter = %s, want 50", v)
	}
}

func TestMemoryKeysPattern(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	for _, k := range []string{"login:a", "login:b", "stats:summary"} {
		_ = store.Set(ctx, k, []byte("x"), 0)
	}

	keys, err := store.Keys(ctx, "login:*")
	if err != nil {
		t.Fatal(err)
	}

	if len(keys) != 2 || keys[0] != "login:a" || keys[1] != "login:b" {
		t.Errorf("keys = %v", keys)
	}

	all, _ := store.Keys(ctx, "")
	if len(all) != 3 {
		t.Errorf("all keys = %v", all)
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := configs.Defaults().KV

	store, err := kv.New(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, ok := store.(*kv.Memory); !ok {
		t.Errorf("default store = %T, want *kv.Memory", store)
	}

	cfg.Type = "etcd"
	if _, err := kv.New(context.Background(), cfg); err == nil {
		t.Error("unknown type should fail")
	}
}

// 可选：ENABLE_REDIS_TEST=1 并设置 REDIS_ADDR（默认 127.0.0.1:6379）.
func TestRedisIncr(t *testing.T) {
	if os.Getenv("ENABLE_REDIS_TEST") == "" {
		t.Skip("set ENABLE_REDIS_TEST=1 to enable")
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	store, err := kv.NewRedis(context.Background(), configs.RedisKVConfig{Addr: addr})
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer store.Close()

	exerciseIncr(t, store)
}

// 可选：ENABLE_NATS_TEST=1 并设置 NATS_URL（默认 nats://127.0.0.1:4222）.
func TestNATSIncr(t *testing.T) {
	if os.Getenv("ENABLE_NATS_TEST") == "" {
		t.Skip("set ENABLE_NATS_TEST=1 to enable")
	}

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}

	store, err := kv.NewNATS(context.Background(), configs.NATSKVConfig{URL: url, Bucket: "filedrop-kv-test"})
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	defer store.Close()

	exerciseIncr(t, store)
}

func exerciseIncr(t *testing.T, store kv.Store) {
	t.Helper()

	ctx := context.Background()
	key := fmt.Sprintf("test-incr-%d", time.Now().UnixNano())

	t.Cleanup(func() { _ = store.Delete(ctx, key) })

	for i := int64(1); i <= 3; i++ {
		n, err := store.Incr(ctx, key, time.Minute)
		if err != nil {
			t.Fatal(err)
		}

		if n != i {
			t.Fatalf("Incr = %d, want %d", n, i)
		}
	}
}

func BenchmarkMemoryIncr(b *testing.B) {
	ctx := context.Background()
	store := kv.NewMemory()

	b.ReportAllocs()

	for i := 0; b.Loop(); i++ {
		if _, err := store.Incr(ctx, fmt.Sprintf("bench-%d", i%64), time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}
