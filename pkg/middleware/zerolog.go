package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/log"
)

// GinLoggerMiddleware 使用zerolog记录Gin请求日志的中间件.
// 4xx 记为 warn，5xx 记为 error；分享口令等查询参数不会出现在日志里.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		logger := context.WithTraceContext(c.Request.Context(), *log.Logger())

		event := logger.Info()
		switch {
		case statusCode >= firstServerError:
			event = logger.Error()
		case statusCode >= 400:
			event = logger.Warn()
		}

		event = event.
			Int("status", statusCode).
			Dur("latency", latency).
			Str("method", method).
			Str("path", path).
			Str("client_ip", ClientIP(c)).
			Int("size", c.Writer.Size())

		if who := GetIdentity(c); who != nil {
			event = event.Str("user", who.Username)
		}

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}
