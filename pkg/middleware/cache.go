package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/log"
)

const (
	DefaultMaxBodyBytes = 1 << 20 // 1MB
	defaultTTL          = 30 * time.Second
	bypassHeader        = "X-Cache-Bypass"
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache        *appcache.Cache // 必须
	TTL          time.Duration
	MaxBodyBytes int                       // 0 表示不限制
	KeyFunc      func(*gin.Context) string // 默认 方法+路径+query
}

// DefaultCacheConfig 返回一份默认配置.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{Cache: c, TTL: defaultTTL, MaxBodyBytes: DefaultMaxBodyBytes}
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"` // unix nano, 用于 Age
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应，附带 xxhash ETag 并支持 If-None-Match.
// 只用于与调用者身份无关的公开资源. 缓存读写失败不影响主流程.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: Cache cannot be nil")
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultCacheKey
	}

	return func(c *gin.Context) {
		if (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) || c.GetHeader(bypassHeader) != "" {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)

		entry, ok, err := appcache.Get[responseCacheEntry](c.Request.Context(), cfg.Cache, key)
		if err == nil && ok {
			serveEntry(c, entry)
			return
		}

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()
		store(c, cfg, key, bw)
	}
}

func defaultCacheKey(c *gin.Context) string {
	var b strings.Builder

	b.WriteString(c.Request.Method)
	b.WriteByte(':')
	b.WriteString(c.Request.URL.Path)

	if q := c.Request.URL.Query(); len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(q.Encode()) // Encode 按 key 排序
	}

	return fmt.Sprintf("rc:%x", xxhash.Sum64String(b.String()))
}

func serveEntry(c *gin.Context, entry responseCacheEntry) {
	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", fmt.Sprintf("%.0f", time.Since(time.Unix(0, entry.StoredAt)).Seconds()))
	h.Set("X-Cache", "HIT")

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()
}

// bodyCaptureWriter 包装响应写入用于捕获 body.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
			w.buf.Reset()
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

func store(c *gin.Context, cfg CacheConfig, key string, bw *bodyCaptureWriter) {
	if c.Writer.Status() != http.StatusOK || bw.truncated {
		return
	}

	if cc := strings.ToLower(c.Writer.Header().Get("Cache-Control")); strings.Contains(cc, "no-store") || strings.Contains(cc, "private") {
		return
	}

	body := bytes.Clone(bw.buf.Bytes())
	entry := responseCacheEntry{
		Status:      http.StatusOK,
		ContentType: c.Writer.Header().Get("Content-Type"),
		Body:        body,
		ETag:        fmt.Sprintf("%q", fmt.Sprintf("%x", xxhash.Sum64(body))),
		StoredAt:    time.Now().UnixNano(),
	}

	// 请求结束后 request context 会被取消
	if err := appcache.Set(context.WithoutCancel(c.Request.Context()), cfg.Cache, key, entry, cfg.TTL); err != nil {
		l := log.Logger()
		l.Debug().Err(err).Msg("response cache store failed")
	}
}
