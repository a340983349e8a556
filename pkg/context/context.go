// Package context 拓展上下文功能，将日志、服务、调用者身份等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/scheduler"
)

type ContextKey string

const (
	ServicesKey  ContextKey = "services"
	SchedulerKey ContextKey = "scheduler"
	IdentityKey  ContextKey = "identity"
	RequestIDKey ContextKey = "requestID"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return storage.WithManager(ctx, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	return storage.ManagerFrom(ctx)
}

// WithServices 将业务服务集合存储到 context 中.
func WithServices(ctx context.Context, svc *service.Services) context.Context {
	return context.WithValue(ctx, ServicesKey, svc)
}

// GetServices 从 context 中获取服务集合.
func GetServices(ctx context.Context) *service.Services {
	if svc, ok := ctx.Value(ServicesKey).(*service.Services); ok {
		return svc
	}

	return nil
}

// WithScheduler 将调度器存储到 context 中.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, SchedulerKey, sched)
}

// GetScheduler 从 context 中获取调度器，未启用定时任务时为 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	if sched, ok := ctx.Value(SchedulerKey).(*scheduler.Scheduler); ok {
		return sched
	}

	return nil
}

// WithIdentity 记录已认证的调用者.
func WithIdentity(ctx context.Context, id *service.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// GetIdentity 返回调用者身份，匿名请求返回 nil.
func GetIdentity(ctx context.Context) *service.Identity {
	if id, ok := ctx.Value(IdentityKey).(*service.Identity); ok {
		return id
	}

	return nil
}

// WithRequestID 记录请求 ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID 返回请求 ID，没有时为空串.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)

	return id
}

// WithTraceContext 创建带有追踪上下文与请求 ID 的 logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()

	if rid := GetRequestID(ctx); rid != "" {
		lc = lc.Str("request_id", rid)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		lc = lc.
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}

	return lc.Logger()
}
