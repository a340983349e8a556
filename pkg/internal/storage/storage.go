// Package storage 聚合所有后端资源：记录存储（数据库）、工件存储、KV 与消息队列.
//
// Example:
//
//	mgr, err := storage.Init(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer mgr.Close()
//
//	files := db.NewFileStore(mgr.DB)
//	_ = mgr.Artifacts.Delete(ctx, "1700000000000-a.txt")
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	dbc "github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
	"github.com/yeisme/filedrop/pkg/internal/storage/mq"
	nlog "github.com/yeisme/filedrop/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB        *dbc.Client
	Artifacts artifact.Store
	KV        kv.Store
	MQ        *mq.Client
}

// Option 调整 Init 的行为.
type Option func(*initOptions)

type initOptions struct {
	registerer prometheus.Registerer
	skipMQ     bool
}

// WithRegisterer 为 MQ 指标指定 registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *initOptions) { o.registerer = reg }
}

// WithoutMQ 不连接消息队列，离线 CLI 命令使用.
func WithoutMQ() Option {
	return func(o *initOptions) { o.skipMQ = true }
}

// Init 依次初始化数据库、工件存储、KV 与 MQ. 任一步失败时关闭已打开的资源.
func Init(ctx context.Context, cfg *configs.AppConfig, opts ...Option) (*Manager, error) {
	var o initOptions
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{}

	fail := func(err error) (*Manager, error) {
		_ = m.Close()

		return nil, err
	}

	dbClient, err := dbc.New(ctx, cfg.DB, dbc.WithMetrics(cfg.Metrics.Enabled && cfg.Metrics.GORM))
	if err != nil {
		return fail(err)
	}

	m.DB = dbClient

	if cfg.DB.AutoMigrate {
		if err := m.DB.Migrate(ctx); err != nil {
			return fail(err)
		}
	}

	if m.Artifacts, err = artifact.New(ctx, cfg); err != nil {
		return fail(fmt.Errorf("init artifact store: %w", err))
	}

	if m.KV, err = kv.New(ctx, cfg.KV); err != nil {
		return fail(fmt.Errorf("init kv: %w", err))
	}

	if !o.skipMQ {
		var mqOpts []mq.Option
		if o.registerer != nil {
			mqOpts = append(mqOpts, mq.WithMetrics(o.registerer))
		}

		if m.MQ, err = mq.New(ctx, cfg.MQ, mqOpts...); err != nil {
			return fail(err)
		}
	}

	nlog.Logger().Info().
		Str("artifact", string(m.Artifacts.Kind())).
		Str("kv", string(cfg.KV.Type)).
		Bool("mq", m.MQ != nil).
		Msg("storage manager initialized")

	return m, nil
}

// Close 按初始化的逆序释放资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
