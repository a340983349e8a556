// Package middleware 提供 gin 中间件：会话身份、服务注入、访问日志、指标、追踪、限流与熔断.
package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientIP 返回请求来源地址：X-Forwarded-For 的第一跳，其次 X-Real-IP，最后是连接地址.
// 登录日志与限流都使用它，保证二者看到同一个地址.
func ClientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if ip := strings.TrimSpace(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return host
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
