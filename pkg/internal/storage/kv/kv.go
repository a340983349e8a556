// Package kv 提供短期键值状态的存储接口与实现：登录失败计数、统计缓存等.
//
// 所有实现对不存在或已过期的 key 返回 ErrNotFound.
package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yeisme/filedrop/pkg/configs"
)

// ErrNotFound key 不存在或已过期.
var ErrNotFound = errors.New("kv: key not found")

// Store 定义键值存储接口.
type Store interface {
	// Get 获取键的值.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set 设置键的值，ttl<=0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 删除键，不存在时不报错.
	Delete(ctx context.Context, key string) error
	// Exists 检查键是否存在.
	Exists(ctx context.Context, key string) (bool, error)
	// Incr 原子加一并返回新值. 计数器首次创建时设置 ttl，之后的递增不会延长窗口.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Keys 获取匹配 glob 模式的键，空模式表示全部（用于调试）.
	Keys(ctx context.Context, pattern string) ([]string, error)
	// Close 关闭存储连接.
	Close() error
}

// Factory 定义创建 Store 的工厂函数类型.
type Factory func(ctx context.Context, cfg configs.KVConfig) (Store, error)

// factories 存储 KV 类型到工厂的映射.
var factories = make(map[configs.KVType]Factory)

// RegisterFactory 注册 KV 工厂函数.
func RegisterFactory(kvType configs.KVType, factory Factory) {
	factories[kvType] = factory
}

// GetRegisteredTypes 返回已注册的 KV 类型列表.
func GetRegisteredTypes() []configs.KVType {
	types := make([]configs.KVType, 0, len(factories))
	for kvType := range factories {
		types = append(types, kvType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 根据 cfg.Type 创建 Store 实例.
func New(ctx context.Context, cfg configs.KVConfig) (Store, error) {
	factory, exists := factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", cfg.Type)
	}

	return factory(ctx, cfg)
}
