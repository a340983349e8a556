// Package mq 基于 Watermill 提供统一的发布/订阅客户端，用于广播文件生命周期事件.
//
// 支持的 MQ 类型：
//   - memory：进程内 gochannel（默认，单实例部署）
//   - nats：NATS Core 或 JetStream
//   - redis：Redis Pub/Sub
//
// 使用示例：
//
//	client, err := mq.New(ctx, cfg.MQ)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello"))
//	_ = client.Publish(ctx, "fd.file.uploaded", msg)
//
//	ch, _ := client.Subscribe(ctx, "fd.file.uploaded")
//	for m := range ch {
//		m.Ack()
//	}
package mq

import (
	"context"
	"errors"
	"fmt"
	"sort"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/filedrop/pkg/configs"
	nlog "github.com/yeisme/filedrop/pkg/log"
)

// HealthTopic HealthCheck 发布探测消息的主题.
const HealthTopic = "fd.health.ping"

// Factory 定义创建 Publisher + Subscriber 的工厂函数.
type Factory func(ctx context.Context, cfg configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error)

var factories = map[configs.MQType]Factory{}

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的 MQ 类型.
func GetRegisteredTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	kind       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
}

// Option 调整 New 的行为.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
}

// WithMetrics 用给定的 registry 装饰 publisher/subscriber，导出 watermill 指标.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// New 按 cfg.Type 创建客户端. 生命周期由调用方持有.
func New(ctx context.Context, cfg configs.MQConfig, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLogger(nlog.Logger())

	pub, sub, err := factory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	if o.registerer != nil && cfg.Common.EnableMetrics {
		builder := metrics.NewPrometheusMetricsBuilder(o.registerer, "filedrop", "mq")

		if pub, err = builder.DecoratePublisher(pub); err != nil {
			return nil, fmt.Errorf("decorate publisher with metrics: %w", err)
		}

		if sub, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, fmt.Errorf("decorate subscriber with metrics: %w", err)
		}
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("MQ 客户端已初始化")

	return &Client{kind: cfg.Type, publisher: pub, subscriber: sub}, nil
}

// NewFromPubSub 用现成的 publisher/subscriber 构造客户端，测试使用.
func NewFromPubSub(kind configs.MQType, pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{kind: kind, publisher: pub, subscriber: sub}
}

// Kind 返回后端类型.
func (c *Client) Kind() configs.MQType { return c.kind }

// Publisher 返回底层 publisher.
func (c *Client) Publisher() message.Publisher { return c.publisher }

// Publish 便捷发布.
func (c *Client) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return errors.New("mq publisher not initialized")
	}

	return c.publisher.Publish(topic, msgs...)
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, errors.New("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// HealthCheck 向 HealthTopic 发布一条探测消息.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.Publish(ctx, HealthTopic, message.NewMessage(watermill.NewUUID(), nil))
}

// Close 关闭资源. memory 后端的 publisher 与 subscriber 是同一对象，只关闭一次.
func (c *Client) Close() error {
	var errs []error

	if c.publisher != nil {
		errs = append(errs, c.publisher.Close())
	}

	if c.subscriber != nil && any(c.subscriber) != any(c.publisher) {
		errs = append(errs, c.subscriber.Close())
	}

	return errors.Join(errs...)
}
