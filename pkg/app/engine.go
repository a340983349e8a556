package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/router"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/metrics"
	"github.com/yeisme/filedrop/pkg/middleware"
	"github.com/yeisme/filedrop/pkg/scheduler"
)

// groupcachePath groupcache 节点间通信的默认路径.
const groupcachePath = "/_groupcache/"

// NewEngine 组装中间件链与路由. mgr 与 sched 可以为 nil（测试、未启用定时任务）.
func NewEngine(cfg *configs.AppConfig, mgr *storage.Manager, svc *service.Services, sched *scheduler.Scheduler) *gin.Engine {
	engine := gin.New()
	engine.MaxMultipartMemory = cfg.Drop.MultipartMemoryMB << 20

	engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.CORSMiddleware(cfg.Server),
		middleware.TracingMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.GzipMiddleware(),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.CircuitBreakerMiddleware(cfg.CircuitBreaker),
		middleware.InjectMiddleware(mgr, svc, sched),
		middleware.SessionMiddleware(svc.Auth, cfg.Session),
	)

	if cfg.Metrics.Enabled {
		engine.Use(middleware.PrometheusMiddleware())

		if cfg.Metrics.Endpoint == "" {
			_ = metrics.StartMetricsServer(cfg.Metrics, engine)
		}
	}

	var opts router.Options
	if mgr != nil && mgr.KV != nil {
		opts.ResponseCache = cache.New(mgr.KV, "http")
	}

	router.Register(engine, opts)
	router.RegisterSwaggerRoute(engine, cfg.Server)

	if peers := svc.QR.PeerHandler(); peers != nil {
		engine.Any(groupcachePath+"*path", gin.WrapH(peers))
	}

	return engine
}
