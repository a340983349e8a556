package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/configs"
)

// CORSMiddleware CORS中间件. 会话依赖 cookie，因此开启 credentials 并回显来源.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowCredentials = true
	config.AllowFiles = true
	config.AddAllowHeaders(RequestIDHeader)
	config.AddExposeHeaders(RequestIDHeader, "Content-Disposition")

	if cfg.Debug || cfg.PublicURL == "" {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = []string{cfg.BaseURL()}
	}

	return cors.New(config)
}
