package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
	"github.com/yeisme/filedrop/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"xff first hop", map[string]string{"X-Forwarded-For": "10.0.0.1, 10.0.0.2"}, "1.2.3.4:5", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.9"},
		{"remote addr", nil, "1.2.3.4:5", "1.2.3.4"},
		{"xff wins over real ip", map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.9"}, "1.2.3.4:5", "10.0.0.1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string

			r := gin.New()
			r.GET("/", func(c *gin.Context) { got = middleware.ClientIP(c) })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote

			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			do(r, req)

			if got != tc.want {
				t.Errorf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	as := func(who *service.Identity) gin.HandlerFunc {
		return func(c *gin.Context) {
			if who != nil {
				middleware.SetIdentity(c, who)
			}

			c.Next()
		}
	}

	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	cases := []struct {
		name      string
		who       *service.Identity
		authCode  int
		adminCode int
	}{
		{"anonymous", nil, http.StatusUnauthorized, http.StatusUnauthorized},
		{"user", &service.Identity{UserID: 2, Username: "bob"}, http.StatusNoContent, http.StatusForbidden},
		{"admin", &service.Identity{UserID: 1, Username: "root", IsAdmin: true}, http.StatusNoContent, http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(as(tc.who))
			r.GET("/auth", middleware.RequireAuth(), ok)
			r.GET("/admin", middleware.RequireAdmin(), ok)

			if w := do(r, httptest.NewRequest(http.MethodGet, "/auth", nil)); w.Code != tc.authCode {
				t.Errorf("auth status = %d, want %d", w.Code, tc.authCode)
			}

			if w := do(r, httptest.NewRequest(http.MethodGet, "/admin", nil)); w.Code != tc.adminCode {
				t.Errorf("admin status = %d, want %d", w.Code, tc.adminCode)
			}
		})
	}
}

func TestRateLimitOnlyConfiguredPaths(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   1,
		Key:     "ip",
		Paths:   []string{"/api/auth/login"},
	}))
	r.POST("/api/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/files", func(c *gin.Context) { c.Status(http.StatusOK) })

	login := func() int {
		return do(r, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)).Code
	}

	if got := login(); got != http.StatusOK {
		t.Fatalf("first login = %d", got)
	}

	if got := login(); got != http.StatusTooManyRequests {
		t.Fatalf("second login = %d, want 429", got)
	}

	for range 3 {
		if w := do(r, httptest.NewRequest(http.MethodGet, "/api/files", nil)); w.Code != http.StatusOK {
			t.Fatalf("unlimited path = %d", w.Code)
		}
	}
}

func TestRateLimitByHeader(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{
		Enabled: true,
		RPS:     0.001,
		Burst:   1,
		Key:     "header:X-Client",
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Client", client)

		return do(r, req)
	}

	if w := get("a"); w.Code != http.StatusOK {
		t.Fatalf("a first = %d", w.Code)
	}

	w := get("a")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("a second = %d, want 429", w.Code)
	}

	if ra := w.Header().Get("Retry-After"); ra == "" || ra == "0" {
		t.Errorf("Retry-After = %q", ra)
	}

	// 不同的 key 使用独立的令牌桶
	if w := get("b"); w.Code != http.StatusOK {
		t.Fatalf("b first = %d", w.Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(configs.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 5 {
		if w := do(r, httptest.NewRequest(http.MethodGet, "/", nil)); w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	}
}

func TestCacheMiddleware(t *testing.T) {
	calls := 0

	r := gin.New()
	r.Use(middleware.CacheMiddleware(middleware.DefaultCacheConfig(cache.New(kv.NewMemory(), "http"))))
	r.GET("/png", func(c *gin.Context) {
		calls++
		c.Data(http.StatusOK, "image/png", []byte("png-bytes"))
	})

	first := do(r, httptest.NewRequest(http.MethodGet, "/png", nil))
	if first.Code != http.StatusOK || first.Body.String() != "png-bytes" {
		t.Fatalf("first = %d %q", first.Code, first.Body.String())
	}

	second := do(r, httptest.NewRequest(http.MethodGet, "/png", nil))
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != "png-bytes" {
		t.Fatalf("second not served from cache: %v %q", second.Header(), second.Body.String())
	}

	if ct := second.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %q", ct)
	}

	etag := second.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/png", nil)
	req.Header.Set("If-None-Match", etag)

	if w := do(r, req); w.Code != http.StatusNotModified {
		t.Errorf("conditional = %d, want 304", w.Code)
	}

	if calls != 1 {
		t.Errorf("handler calls = %d, want 1", calls)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("request id not generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc")

	if got := do(r, req).Header().Get(middleware.RequestIDHeader); got != "abc" {
		t.Errorf("request id = %q, want abc", got)
	}
}
