package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/filedrop/pkg/tracing"
)

const firstServerError = 500

func isShareRoute(route string) bool {
	return strings.HasPrefix(route, "/api/share/") || strings.HasPrefix(route, "/s/")
}

// TracingMiddleware 创建Gin的分布式追踪中间件. 分享路由的 span 带上分享 ID，已登录请求带上用户 ID.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartSpan(c.Request.Context(), "http.request",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.path", c.Request.URL.Path),
				attribute.String("http.host", c.Request.Host),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("http.client_ip", ClientIP(c)),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if route := c.FullPath(); route != "" {
			span.SetName(c.Request.Method + " " + route)
			span.SetAttributes(attribute.String("http.route", route))
		}

		if id := c.Param("id"); id != "" && isShareRoute(c.FullPath()) {
			span.SetAttributes(tracing.AttrShareID.String(id))
		}

		if who := GetIdentity(c); who != nil {
			span.SetAttributes(attribute.Int64("enduser.id", int64(who.UserID)))
		}

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.String())
		case status >= firstServerError:
			span.SetStatus(codes.Error, "server error")
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}
