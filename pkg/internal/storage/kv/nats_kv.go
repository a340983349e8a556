package kv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/filedrop/pkg/configs"
)

// maxCASRetries Incr 在并发冲突时的最大重试次数.
const maxCASRetries = 8

// NATS 基于 JetStream KV 的实现. JetStream KV 只有 bucket 级 TTL，逐键过期用包装值表达.
type NATS struct {
	kv   nats.KeyValue
	conn *nats.Conn
	now  func() time.Time
}

// NewNATS 连接 NATS 并创建或打开 bucket.
func NewNATS(_ context.Context, cfg configs.NATSKVConfig) (*NATS, error) {
	opts := []nats.Option{nats.Name("filedrop-kv")}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket})
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to open KV bucket %s: %w", cfg.Bucket, err)
	}

	return &NATS{kv: kv, conn: nc, now: time.Now}, nil
}

// entry 读取并解包，已过期的条目被惰性删除.
func (n *NATS) entry(key string) ([]byte, time.Time, uint64, error) {
	e, err := n.kv.Get(key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, time.Time{}, 0, ErrNotFound
	}

	if err != nil {
		return nil, time.Time{}, 0, fmt.Errorf("failed to get key: %w", err)
	}

	val, exp, expired, err := decodeWithExpiry(e.Value(), n.now())
	if err != nil {
		return nil, time.Time{}, 0, err
	}

	if expired {
		_ = n.kv.Delete(key)

		return nil, time.Time{}, 0, ErrNotFound
	}

	return val, exp, e.Revision(), nil
}

func (n *NATS) Get(_ context.Context, key string) ([]byte, error) {
	val, _, _, err := n.entry(key)

	return val, err
}

func (n *NATS) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	encoded, err := encodeWithExpiry(value, expiryFromTTL(n.now(), ttl))
	if err != nil {
		return err
	}

	if _, err := n.kv.Put(key, encoded); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}

	return nil
}

func (n *NATS) Delete(_ context.Context, key string) error {
	if err := n.kv.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	return nil
}

func (n *NATS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := n.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

// Incr 基于 revision 的乐观并发：冲突时重读重试.
func (n *NATS) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	for range maxCASRetries {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		val, exp, rev, err := n.entry(key)

		fresh := errors.Is(err, ErrNotFound)
		if err != nil && !fresh {
			return 0, err
		}

		var count int64
		if fresh {
			exp = expiryFromTTL(n.now(), ttl)
		} else {
			count, _ = strconv.ParseInt(string(val), 10, 64)
		}

		count++

		encoded, err := encodeWithExpiry([]byte(strconv.FormatInt(count, 10)), exp)
		if err != nil {
			return 0, err
		}

		if rev == 0 {
			_, err = n.kv.Create(key, encoded)
		} else {
			_, err = n.kv.Update(key, encoded, rev)
		}

		if err == nil {
			return count, nil
		}
	}

	return 0, fmt.Errorf("incr %s: too much contention", key)
}

func (n *NATS) Keys(_ context.Context, pattern string) ([]string, error) {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}

	result := make([]string, 0, len(keys))

	for _, key := range keys {
		if pattern != "" {
			if matched, err := path.Match(pattern, key); err != nil || !matched {
				continue
			}
		}

		if _, _, _, err := n.entry(key); err != nil {
			continue
		}

		result = append(result, key)
	}

	return result, nil
}

func (n *NATS) Close() error {
	n.conn.Close()

	return nil
}

func init() {
	RegisterFactory(configs.KVTypeNATS, func(ctx context.Context, cfg configs.KVConfig) (Store, error) {
		return NewNATS(ctx, cfg.NATS)
	})
}
