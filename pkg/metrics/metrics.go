// Package metrics 提供 Prometheus 监控指标：HTTP 请求与文件生命周期（上传、下载、清理、配额）.
//
// 指标变量在包初始化时创建，随时可以更新；只有 InitMetrics 之后才会注册并通过 /metrics 暴露.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.SweepRemoved.Add(float64(len(removed)))
//	metrics.StorageUsedBytes.Set(float64(used))
package metrics

import (
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/filedrop/pkg/configs"
)

// HTTP 指标.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 正在处理的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of in-flight HTTP requests",
		},
	)
)

// 文件生命周期指标.
var (
	Uploads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Files stored successfully",
	})

	UploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "upload_bytes_total",
		Help: "Bytes written to the artifact store by uploads",
	})

	// Downloads via=share|owner.
	Downloads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "downloads_total",
		Help: "Counted content transfers",
	}, []string{"via"})

	// AccessDenied reason=missing|expired|exhausted|bad_password|password_required.
	AccessDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_access_denied_total",
		Help: "Share requests refused by the policy evaluator",
	}, []string{"reason"})

	SweepRuns = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Expiry sweeps executed",
	})

	SweepRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_removed_total",
		Help: "Records removed by the expiry sweeper",
	})

	SweepErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sweep_errors_total",
		Help: "Artifact deletions that failed during a sweep",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sweep_duration_seconds",
		Help:    "Expiry sweep duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	PurgeDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "purge_deleted_total",
		Help: "Records removed by administrator purges",
	})

	StorageUsedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storage_used_bytes",
		Help: "Sum of recorded file sizes at the last quota snapshot",
	})

	StorageMaxBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storage_max_bytes",
		Help: "Configured storage quota at the last quota snapshot",
	})

	// JobRuns result=success|failure.
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Scheduled job executions by job and result",
	}, []string{"job", "result"})

	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Scheduled job duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	// LoginAttempts result=success|failure|throttled.
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})
)

var (
	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 以 config.Namespace 为前缀注册全部指标，重复调用无效.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		reg := prometheus.WrapRegistererWithPrefix(config.Namespace+"_", registry)

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration, ActiveConnections,
			Uploads, UploadBytes, Downloads, AccessDenied,
			SweepRuns, SweepRemoved, SweepErrors, SweepDuration,
			PurgeDeleted, StorageUsedBytes, StorageMaxBytes, LoginAttempts,
			JobRuns, JobDuration,
		} {
			if err = reg.Register(c); err != nil {
				return
			}
		}
	})

	return err
}

// Handler 同时暴露私有 registry 与默认 registry（gorm 插件注册在后者）.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

// StartMetricsServer 在 engine 上挂载 /metrics，可选 /debug/pprof.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	engine.GET("/metrics", gin.WrapH(Handler()))

	if config.Pprof {
		pp := engine.Group("/debug/pprof")
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
		pp.GET("/:name", func(c *gin.Context) {
			pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
