package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/internal/types"
)

const timeout = 2 * time.Second

type checkFunc func(ctx context.Context) error

// components 返回各组件的检查函数. 未初始化的组件返回 nil.
func components(c *gin.Context) map[string]checkFunc {
	mgr := ctxPkg.GetManager(c.Request.Context())
	checks := map[string]checkFunc{"db": nil, "storage": nil, "mq": nil}

	if mgr == nil {
		return checks
	}

	if mgr.DB != nil {
		checks["db"] = mgr.DB.HealthCheck
	}

	if mgr.Artifacts != nil {
		checks["storage"] = mgr.Artifacts.HealthCheck
	}

	if mgr.MQ != nil {
		checks["mq"] = mgr.MQ.HealthCheck
	}

	return checks
}

func runCheck(ctx context.Context, name string, check checkFunc) types.HealthResponse {
	if check == nil {
		return types.HealthResponse{Component: name, Status: "unhealthy", Error: name + " not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := check(ctx); err != nil {
		return types.HealthResponse{Component: name, Status: "unhealthy", Error: err.Error()}
	}

	return types.HealthResponse{Component: name, Status: "ok"}
}

// Health 汇总检查. mq 未启用不算失败.
//
//	@Summary	健康检查
//	@Tags		健康
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/health [get]
func Health(c *gin.Context) {
	status := http.StatusOK
	results := make(map[string]types.HealthResponse, 3)

	for name, check := range components(c) {
		if name == "mq" && check == nil {
			results[name] = types.HealthResponse{Component: name, Status: "disabled"}
			continue
		}

		r := runCheck(c.Request.Context(), name, check)
		if r.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		results[name] = r
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{"status": overall, "components": results})
}

// HealthComponent 返回单个组件的检查处理器.
//
//	@Summary	组件健康检查
//	@Tags		健康
//	@Produce	json
//	@Param		component	path		string	true	"db | storage | mq"
//	@Success	200			{object}	types.HealthResponse
//	@Failure	503			{object}	types.HealthResponse
//	@Router		/api/health/{component} [get]
func HealthComponent(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := runCheck(c.Request.Context(), name, components(c)[name])

		status := http.StatusOK
		if r.Status != "ok" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, r)
	}
}
