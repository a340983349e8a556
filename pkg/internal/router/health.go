package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/internal/handle"
)

// RegisterHealthCheckRoute 注册健康检查路由.
func RegisterHealthCheckRoute(g *gin.RouterGroup) {
	g.GET("/health", handle.Health)

	healthRoutes := g.Group("/health")
	{
		healthRoutes.GET("/db", handle.HealthComponent("db"))
		healthRoutes.GET("/storage", handle.HealthComponent("storage"))
		healthRoutes.GET("/mq", handle.HealthComponent("mq"))
	}
}
