package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/scheduler"
)

// RequestIDHeader 请求 ID 响应头，客户端传入时沿用.
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware 为每个请求分配 ID 并写入响应头.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// InjectMiddleware 把存储、服务与调度器放进请求上下文，处理器从上下文取用. sched 可以为 nil.
func InjectMiddleware(mgr *storage.Manager, svc *service.Services, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if mgr != nil {
			ctx = context.WithStorageManager(ctx, mgr)
		}

		ctx = context.WithServices(ctx, svc)
		if sched != nil {
			ctx = context.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
