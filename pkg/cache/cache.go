// Package cache 提供基于键值存储的泛型缓存.
//
// 值用 sonic 编码为 JSON，所有键自动加上实例前缀，不同用途可以共用一个 KV 存储.
//
// 基本用法:
//
//	c := cache.New(mgr.KV, "stats")
//
//	summary, err := cache.GetOrSet(ctx, c, "summary", func() (Summary, error) {
//		return loadSummary(ctx)
//	}, 30*time.Second)
//
//	// 数据变化后失效
//	_ = c.Delete(ctx, "summary")
//
// 缓存未命中不是错误：Get 返回 (零值, false, nil).
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
	nlog "github.com/yeisme/filedrop/pkg/log"
)

// Cache 基于 KV 存储的缓存.
type Cache struct {
	store  kv.Store
	prefix string
}

// New 创建缓存实例，prefix 为空时不加前缀.
func New(store kv.Store, prefix string) *Cache {
	if prefix != "" {
		prefix += ":"
	}

	return &Cache{store: store, prefix: prefix}
}

func (c *Cache) key(k string) string { return c.prefix + k }

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool, error) {
	var zero T

	data, err := c.store.Get(ctx, c.key(key))
	if errors.Is(err, kv.ErrNotFound) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}

	return value, true, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return c.store.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.key(key))
}

// GetOrSet 命中直接返回，否则调用 getter 并写回. 缓存读写失败只记录日志，不影响结果.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	value, ok, err := Get[T](ctx, c, key)
	if err != nil {
		nlog.Logger().Debug().Err(err).Str("key", c.key(key)).Msg("cache read failed")
	}

	if ok {
		return value, nil
	}

	value, err = getter()
	if err != nil {
		var zero T

		return zero, err
	}

	if err := Set(ctx, c, key, value, ttl); err != nil {
		nlog.Logger().Debug().Err(err).Str("key", c.key(key)).Msg("cache write failed")
	}

	return value, nil
}

// Clear 删除本实例前缀下的全部键.
func (c *Cache) Clear(ctx context.Context) error {
	keys, err := c.store.Keys(ctx, c.prefix+"*")
	if err != nil {
		return err
	}

	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return err
		}
	}

	return nil
}
