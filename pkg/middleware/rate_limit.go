package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/filedrop/pkg/configs"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	maxLimiterEntries = 10000
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterTable 按 key 分配令牌桶，超过容量时淘汰空闲条目.
type limiterTable struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newLimiterTable(cfg configs.RateLimitConfig) *limiterTable {
	return &limiterTable{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(cfg.RPS),
		burst:    cfg.Burst,
	}
}

func (t *limiterTable) get(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}

	if len(t.visitors) >= maxLimiterEntries {
		for k, v := range t.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(t.visitors, k)
			}
		}
	}

	v := &visitor{limiter: rate.NewLimiter(t.limit, t.burst), lastSeen: now}
	t.visitors[key] = v

	return v.limiter
}

// retryAfter 下一个令牌可用前的秒数，至少 1.
func retryAfter(l *rate.Limiter, now time.Time) string {
	r := l.ReserveN(now, 1)
	defer r.CancelAt(now)

	secs := math.Ceil(r.DelayFrom(now).Seconds())
	if !r.OK() || secs < 1 {
		secs = 1
	}

	return strconv.Itoa(int(secs))
}

func tooManyRequests(c *gin.Context, l *rate.Limiter, now time.Time) {
	c.Header("Retry-After", retryAfter(l, now))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
}

// RateLimitMiddleware 令牌桶限流. cfg.Paths 非空时只对这些路径前缀生效，
// cfg.Key 为 global、ip 或 header:<Name>（请求头为空时退回客户端 IP）.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	header, byHeader := strings.CutPrefix(keyMode, "header:")

	var global *rate.Limiter
	if keyMode == "" || keyMode == "global" {
		global = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
	}

	table := newLimiterTable(cfg)

	return func(c *gin.Context) {
		if len(cfg.Paths) > 0 && !isSkippedPath(c.Request.URL.Path, cfg.Paths) {
			c.Next()
			return
		}

		now := time.Now()

		l := global
		if l == nil {
			key := ""
			if byHeader {
				key = c.GetHeader(header)
			}

			if key == "" {
				key = ClientIP(c)
			}

			l = table.get(key, now)
		}

		if !l.AllowN(now, 1) {
			tooManyRequests(c, l, now)
			return
		}

		c.Next()
	}
}
