// Package service 实现分享链接生命周期的核心组件（访问判定、过期清理、配额统计、全量清空）
// 以及账户、初始化、统计、二维码等业务服务.
//
// 服务只依赖注入的存储接口，不读取全局状态；HTTP 与 CLI 通过 New 构造同一套实例.
package service

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

// RecordStore 文件记录的持久化接口. 查询不到时 getter 返回 (nil, nil).
type RecordStore interface {
	Insert(ctx context.Context, rec *model.FileRecord) error
	GetByID(ctx context.Context, id string) (*model.FileRecord, error)
	GetByStorageKey(ctx context.Context, key string) (*model.FileRecord, error)
	ListAll(ctx context.Context) ([]model.FileRecord, error)
	ListByOwner(ctx context.Context, userID uint) ([]model.FileRecord, error)
	// ListSweepable 返回 now 时刻已过期或下载次数耗尽的记录.
	ListSweepable(ctx context.Context, now time.Time) ([]model.FileRecord, error)
	Update(ctx context.Context, id string, fields map[string]any) error
	// IncrementDownload 仅当次数未耗尽时加一并更新 updated_at，返回是否计数成功.
	IncrementDownload(ctx context.Context, id string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	SumSizes(ctx context.Context) (int64, error)
	SumDownloads(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// SettingsReader 读取实例设置.
type SettingsReader interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Clock 返回当前时间，测试可替换.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// Services 聚合全部业务服务.
type Services struct {
	Shares  *ShareService
	Sweeper *Sweeper
	Quota   *QuotaAccountant
	Purger  *PurgeOrchestrator
	Files   *FileService
	Auth    *AuthService
	Users   *UserService
	Setup   *SetupService
	Stats   *StatsService
	QR      *QRService
	Events  *Emitter
}

// New 基于已初始化的存储管理器构造全部服务.
func New(cfg *configs.AppConfig, mgr *storage.Manager) *Services {
	var pub message.Publisher
	if mgr.MQ != nil {
		pub = mgr.MQ.Publisher()
	}

	records := db.NewFileStore(mgr.DB)
	settings := db.NewSettingStore(mgr.DB)
	users := db.NewUserStore(mgr.DB)
	sessions := db.NewSessionStore(mgr.DB)
	logins := db.NewLoginLogStore(mgr.DB)

	return Build(Deps{
		Config:    cfg,
		Records:   records,
		Artifacts: mgr.Artifacts,
		Settings:  settings,
		Users:     users,
		Sessions:  sessions,
		Logins:    logins,
		KV:        mgr.KV,
		Publisher: pub,
	})
}

// Deps Build 需要的全部协作者.
type Deps struct {
	Config    *configs.AppConfig
	Records   RecordStore
	Artifacts artifact.Store
	Settings  *db.SettingStore
	Users     *db.UserStore
	Sessions  *db.SessionStore
	Logins    *db.LoginLogStore
	KV        kv.Store
	Publisher message.Publisher
	Clock     Clock
	// BcryptCost 0 表示 bcrypt.DefaultCost
	BcryptCost int
}

// Build 由显式依赖构造服务，测试用它替换记录存储或工件存储.
func Build(d Deps) *Services {
	clock := d.Clock
	if clock == nil {
		clock = utcNow
	}

	events := NewEmitter(d.Publisher, d.Config.Events)

	// nil 指针不能直接装进接口，否则 settings != nil 判断失效
	var settings SettingsReader
	if d.Settings != nil {
		settings = d.Settings
	}

	quota := NewQuotaAccountant(d.Records, settings, d.Config.Drop.DefaultMaxStorage)

	s := &Services{
		Events:  events,
		Quota:   quota,
		Shares:  NewShareService(d.Records, d.Artifacts, events, clock),
		Sweeper: NewSweeper(d.Records, d.Artifacts, events, clock),
		Purger:  NewPurgeOrchestrator(d.Records, d.Artifacts, events, d.Config.Drop.PurgeToken),
	}

	s.Files = NewFileService(FileServiceOptions{
		Records:   d.Records,
		Artifacts: d.Artifacts,
		Quota:     quota,
		Shares:    s.Shares,
		Events:    events,
		Clock:     clock,
		IDLength:  d.Config.Drop.ShareIDLength,
		MaxUpload: d.Config.Drop.MaxUploadSize,
	})

	if d.Users != nil {
		s.Auth = NewAuthService(AuthOptions{
			Users:      d.Users,
			Sessions:   d.Sessions,
			Logins:     d.Logins,
			KV:         d.KV,
			Events:     events,
			Clock:      clock,
			Session:    d.Config.Session,
			LogLimit:   d.Config.Drop.LoginLogLimit,
			BcryptCost: d.BcryptCost,
		})
		s.Users = NewUserService(d.Users, d.Sessions, d.BcryptCost)
		s.Setup = NewSetupService(d.Settings, d.Users, d.Config.Drop, d.BcryptCost)
	}

	s.Stats = NewStatsService(quota, d.Records, d.Users, d.Artifacts, d.KV)
	s.QR = NewQRService(d.Config.KV.Groupcache, d.Config.Server.BaseURL(), d.Records)

	return s
}
