package kv

import (
	"bytes"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// ttlMagic 标记带过期时间的包装值，供没有逐键 TTL 的后端（NATS KV）使用.
const ttlMagic = "FDTTL1:"

type ttlValue struct {
	V []byte `json:"v"`
	E int64  `json:"e,omitempty"` // unix 毫秒，0 表示不过期
}

// encodeWithExpiry 在 expires 非零时包装值.
func encodeWithExpiry(value []byte, expires time.Time) ([]byte, error) {
	if expires.IsZero() {
		return value, nil
	}

	b, err := sonic.Marshal(ttlValue{V: value, E: expires.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("marshal ttl value: %w", err)
	}

	return append([]byte(ttlMagic), b...), nil
}

func expiryFromTTL(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}

	return now.Add(ttl)
}

// decodeWithExpiry 解开包装值，返回原始值、过期时间与是否已过期.
func decodeWithExpiry(b []byte, now time.Time) ([]byte, time.Time, bool, error) {
	if !bytes.HasPrefix(b, []byte(ttlMagic)) {
		return b, time.Time{}, false, nil
	}

	var tv ttlValue
	if err := sonic.Unmarshal(b[len(ttlMagic):], &tv); err != nil {
		return nil, time.Time{}, false, fmt.Errorf("unmarshal ttl value: %w", err)
	}

	if tv.E == 0 {
		return tv.V, time.Time{}, false, nil
	}

	exp := time.UnixMilli(tv.E)

	return tv.V, exp, !now.Before(exp), nil
}
