package kv

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/yeisme/filedrop/pkg/configs"
)

type memEntry struct {
	value   []byte
	expires time.Time // 零值表示不过期
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Memory 进程内 KV，过期条目在访问时惰性清除. 单实例部署的默认选择.
type Memory struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemory 创建内存 KV 实例.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]memEntry), now: time.Now}
}

// load 调用方必须持有锁.
func (m *Memory) load(key string) (memEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memEntry{}, false
	}

	if e.expired(m.now()) {
		delete(m.data, key)

		return memEntry{}, false
	}

	return e, true
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(key)
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(e.value))
	copy(out, e.value)

	return out, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	e := memEntry{value: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.load(key)

	return ok, nil
}

func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(key)
	if !ok {
		e = memEntry{}
		if ttl > 0 {
			e.expires = m.now().Add(ttl)
		}
	}

	n, _ := strconv.ParseInt(string(e.value), 10, 64)
	n++
	e.value = []byte(strconv.FormatInt(n, 10))
	m.data[key] = e

	return n, nil
}

func (m *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))

	for k := range m.data {
		if _, ok := m.load(k); !ok {
			continue
		}

		if pattern != "" {
			if matched, err := path.Match(pattern, k); err != nil || !matched {
				continue
			}
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys, nil
}

func (m *Memory) Close() error {
	return nil
}

func init() {
	RegisterFactory(configs.KVTypeMemory, func(context.Context, configs.KVConfig) (Store, error) {
		return NewMemory(), nil
	})
}
