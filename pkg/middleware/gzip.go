package middleware

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// GzipMiddleware 压缩 JSON 等响应. 文件传输、二维码与指标不压缩：
// 前者多为已压缩格式且需要准确的 Content-Length.
func GzipMiddleware() gin.HandlerFunc {
	return gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/s/", "/metrics", "/_groupcache/"}),
		gzip.WithExcludedPathsRegexs([]string{
			`^/api/share/[^/]+$`,
			`^/api/share/[^/]+/qrcode$`,
			`^/api/files/[^/]+$`,
		}),
	)
}
