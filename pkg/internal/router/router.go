// Package router 管理路由配置：把 handle 中的处理器与鉴权中间件绑定到 gin 引擎.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/internal/handle"
	"github.com/yeisme/filedrop/pkg/middleware"
)

// Options 路由可选项.
type Options struct {
	// ResponseCache 非 nil 时缓存二维码等公开 GET 响应
	ResponseCache *cache.Cache
}

// Register 注册全部业务路由.
//
//	公开:   /api/setup, /api/auth/login, /api/share/*, /s/:id, /api/health/*, GET /api/cleanup（外部 cron 触发）
//	登录:   /api/auth/*, /api/account, /api/upload, /api/files/*, POST /api/cleanup, /api/stats
//	管理员: /api/users/*, /api/login-logs, /api/admin/*
func Register(r *gin.Engine, opts Options) {
	api := r.Group("/api")

	RegisterHealthCheckRoute(api)
	registerPublic(api, opts)
	registerAuthenticated(api.Group("", middleware.RequireAuth()))
	registerAdmin(api.Group("", middleware.RequireAdmin()))

	r.GET("/s/:id", handle.ShortLink)
}

func registerPublic(g *gin.RouterGroup, opts Options) {
	g.GET("/setup", handle.GetSetup)
	g.POST("/setup", handle.PostSetup)
	g.POST("/auth/login", handle.Login)
	g.POST("/auth/logout", handle.Logout)
	g.GET("/cleanup", handle.Cleanup)

	share := g.Group("/share/:id")
	{
		share.GET("", handle.GetShare)
		share.POST("/verify", handle.VerifySharePassword)

		qr := []gin.HandlerFunc{handle.ShareQRCode}
		if opts.ResponseCache != nil {
			qr = append([]gin.HandlerFunc{middleware.CacheMiddleware(middleware.DefaultCacheConfig(opts.ResponseCache))}, qr...)
		}

		share.GET("/qrcode", qr...)
	}
}

func registerAuthenticated(g *gin.RouterGroup) {
	g.GET("/auth/me", handle.Me)
	g.PATCH("/account", handle.UpdateAccount)

	g.POST("/upload", handle.Upload)
	g.GET("/files", handle.ListFiles)
	g.GET("/files/:storageKey", handle.DownloadFile)
	g.DELETE("/files/:storageKey", handle.DeleteFile)

	g.POST("/cleanup", handle.Cleanup)
	g.GET("/stats", handle.Stats)
}

func registerAdmin(g *gin.RouterGroup) {
	users := g.Group("/users")
	{
		users.GET("", handle.ListUsers)
		users.POST("", handle.CreateUser)
		users.PATCH("/:id", handle.UpdateUser)
		users.DELETE("/:id", handle.DeleteUser)
	}

	g.GET("/login-logs", handle.LoginLogs)

	admin := g.Group("/admin")
	{
		admin.POST("/purge", handle.Purge)
		admin.GET("/jobs", handle.Jobs)
	}
}
