// Package queue 定义文件生命周期事件的信封、主题与负载，经由 internal/storage/mq 发布.
//
// 概览
//   - 统一的消息封装：Message[Payload] = Header + Payload
//   - 主题常量见 topics.go，负载结构体见 payloads.go
//   - 默认 JSON 编解码（bytedance/sonic），跨语言易解析
//   - 事件只用于通知，发布失败不影响触发它的操作
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "id": "01J9Z3J8Q5X4M6T2V7B1C0N9RS",
//	    "topic": "fd.file.expired",
//	    "producer": "filedrop",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { "file": { "id": "V1StGXR8_Z", "storage_key": "1735787045123-a.txt" }, "reason": "expired" }
//	}
//
// 发布/订阅示例
//
//	_ = queue.PublishFileExpired(client.Publisher(), queue.FileExpiredPayload{
//		File:   queue.FileRef{ID: rec.ID, StorageKey: rec.StorageKey},
//		Reason: "expired",
//	}, queue.WithProducer("filedrop"))
//
//	ch, _ := client.Subscribe(ctx, queue.TopicFileExpired)
//	for m := range ch {
//		env, _ := queue.ParseFileExpired(m)
//		_ = env.Payload.File.ID
//		m.Ack()
//	}
package queue

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/oklog/ulid"
)

const PayloadVersionV1 = "v1"

// watermill 元数据键，消费端无需解码负载即可路由.
const (
	MetaTopic      = "topic"
	MetaProducer   = "producer"
	MetaOccurredAt = "occurred_at"
	MetaVersion    = "version"

	// MetaCorrelationID 与 watermill 中间件使用的键一致
	MetaCorrelationID = "correlation_id"
)

// HeaderOption 调整事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 设置 TraceID，同时写入 correlation id 元数据.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

var (
	entropyMu sync.Mutex
	entropy   io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// NewEventID 生成 ULID. 同一毫秒内的 ID 单调递增，消费端可按 ID 排序还原发生顺序.
func NewEventID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewEventHeader 以当前 UTC 时间创建事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	now := time.Now().UTC()
	hdr := EventHeader{
		ID:         NewEventID(now),
		Topic:      topic,
		OccurredAt: now,
		Version:    PayloadVersionV1,
	}

	for _, opt := range opts {
		opt(&hdr)
	}

	return hdr
}

// Encode 信封编码为 JSON.
func Encode[T any](msg Message[T]) ([]byte, error) { return sonic.Marshal(msg) }

// Decode 从 JSON 解码信封.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 构造 watermill 消息：UUID 取事件 ID，头部字段同步写入元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	hdr := NewEventHeader(topic, opts...)

	data, err := Encode(Message[T]{Header: hdr, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(hdr.ID, data)
	msg.Metadata.Set(MetaTopic, topic)
	msg.Metadata.Set(MetaOccurredAt, hdr.OccurredAt.Format(time.RFC3339Nano))
	msg.Metadata.Set(MetaVersion, hdr.Version)

	if hdr.Producer != "" {
		msg.Metadata.Set(MetaProducer, hdr.Producer)
	}

	if hdr.TraceID != "" {
		msg.Metadata.Set(MetaCorrelationID, hdr.TraceID)
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型信封.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	return Decode[T](msg.Payload)
}
