package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/log"
)

const identityKey = "identity"

// SessionMiddleware 解析会话 cookie 并注入调用者身份.
//   - 没有 cookie 或会话无效时按匿名请求继续，由 RequireAuth 决定是否拒绝
//   - 会话有效时刷新 cookie 的 max-age（滑动过期）
//   - cfg.SkipPaths 中的路径前缀不解析会话（/metrics、/api/health 等）
func SessionMiddleware(auth *service.AuthService, cfg configs.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil || isSkippedPath(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		sid, err := c.Cookie(auth.CookieName())
		if err != nil || sid == "" {
			c.Next()
			return
		}

		who, err := auth.ValidateSession(c.Request.Context(), sid)
		if err != nil {
			l := log.Logger()
			l.Debug().Err(err).Msg("session rejected")
			ClearSessionCookie(c, auth)
			c.Next()

			return
		}

		SetSessionCookie(c, auth, sid)
		SetIdentity(c, who)
		c.Next()
	}
}

// SetIdentity 在 gin.Context 与 request context 中记录身份.
func SetIdentity(c *gin.Context, who *service.Identity) {
	c.Set(identityKey, who)
	c.Request = c.Request.WithContext(context.WithIdentity(c.Request.Context(), who))
}

// GetIdentity 返回当前调用者，匿名时为 nil.
func GetIdentity(c *gin.Context) *service.Identity {
	if v, ok := c.Get(identityKey); ok {
		if who, ok2 := v.(*service.Identity); ok2 {
			return who
		}
	}

	return context.GetIdentity(c.Request.Context())
}

// SetSessionCookie 写入 httpOnly、SameSite=Lax 的会话 cookie.
func SetSessionCookie(c *gin.Context, auth *service.AuthService, sid string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName(), sid, int(auth.SessionTTL().Seconds()), "/", "", auth.SecureCookie(), true)
}

// ClearSessionCookie 让浏览器删除会话 cookie.
func ClearSessionCookie(c *gin.Context, auth *service.AuthService) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName(), "", -1, "/", "", auth.SecureCookie(), true)
}

// RequireAuth 要求已登录，否则 401.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetIdentity(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Next()
	}
}

// RequireAdmin 要求管理员. 匿名 401，普通用户 403.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := GetIdentity(c)
		if who == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if !who.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: admin only"})
			return
		}

		c.Next()
	}
}
