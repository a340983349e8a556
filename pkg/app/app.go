// Package app 提供应用程序的初始化、运行与优雅退出.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/jobs"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
	"github.com/yeisme/filedrop/pkg/scheduler"
	"github.com/yeisme/filedrop/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	services  *service.Services
	scheduler *scheduler.Scheduler
}

// NewApp 初始化追踪、指标、存储、服务与可选的定时任务. 失败时释放已打开的资源.
func NewApp(ctx context.Context, config *configs.AppConfig) (*App, error) {
	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	var opts []storage.Option
	if config.Metrics.Enabled {
		opts = append(opts, storage.WithRegisterer(metrics.GetRegistry()))
	}

	manager, err := storage.Init(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{
		config:   config,
		manager:  manager,
		services: service.New(config, manager),
	}

	if config.Jobs.Enabled {
		if a.scheduler, err = scheduler.NewScheduler(); err != nil {
			_ = manager.Close()
			return nil, fmt.Errorf("init scheduler: %w", err)
		}

		if err := jobs.RegisterCronJobs(a.scheduler, a.services, config.Jobs); err != nil {
			_ = a.scheduler.Stop()
			_ = manager.Close()

			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	a.Engine = NewEngine(config, manager, a.services, a.scheduler)

	return a, nil
}

// Run 启动 HTTP 服务（以及独立的指标端口、调度器），直到 ctx 取消后优雅退出.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()
	g, ctx := errgroup.WithContext(ctx)

	servers := []*http.Server{{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}}

	if a.config.Metrics.Enabled && a.config.Metrics.Endpoint != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              a.config.Metrics.Endpoint,
			Handler:           mux,
			ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
		})
	}

	for _, srv := range servers {
		g.Go(func() error {
			l.Info().Str("addr", srv.Addr).Msg("HTTP server listening")

			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}

			return nil
		})
	}

	if a.scheduler != nil {
		a.scheduler.Start()
		l.Info().Int("jobs", len(a.scheduler.GetJobInfos())).Msg("scheduler started")
	}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}

		l.Info().Msg("HTTP server stopped")

		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close 停止调度器、刷新追踪数据并关闭存储.
func (a *App) Close() error {
	var errs []error

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs = append(errs, tracing.ShutdownTracer(ctx), a.manager.Close())

	return errors.Join(errs...)
}

// Services 返回业务服务集合.
func (a *App) Services() *service.Services { return a.services }
