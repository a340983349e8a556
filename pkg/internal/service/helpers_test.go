package service_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

// fakeClock 可手动拨动的时钟.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// flakyStore 对 failKeys 中的 key 删除失败，其余操作委托给真实存储.
type flakyStore struct {
	artifact.Store

	mu       sync.Mutex
	failKeys map[string]bool
}

func (f *flakyStore) failDelete(key string, fail bool) {
	f.mu.Lock()
	f.failKeys[key] = fail
	f.mu.Unlock()
}

func (f *flakyStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	fail := f.failKeys[key]
	f.mu.Unlock()

	if fail {
		return errors.New("permission denied")
	}

	return f.Store.Delete(ctx, key)
}

type testEnv struct {
	cfg       configs.AppConfig
	client    *db.Client
	records   *db.FileStore
	settings  *db.SettingStore
	users     *db.UserStore
	sessions  *db.SessionStore
	artifacts *flakyStore
	kv        kv.Store
	clock     *fakeClock
	svc       *service.Services
}

type envOption func(*testEnv, *service.Deps)

func withPublisher(pub message.Publisher) envOption {
	return func(_ *testEnv, d *service.Deps) { d.Publisher = pub }
}

func withConfig(fn func(*configs.AppConfig)) envOption {
	return func(e *testEnv, d *service.Deps) {
		fn(&e.cfg)
		d.Config = &e.cfg
	}
}

// newEnv 基于临时 SQLite 与本地工件目录构造完整的服务集合.
func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	ctx := context.Background()

	c, err := db.New(ctx, configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "drop"),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	if err := c.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	local, err := artifact.NewLocal(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}

	e := &testEnv{
		cfg:       configs.Defaults(),
		client:    c,
		records:   db.NewFileStore(c),
		settings:  db.NewSettingStore(c),
		users:     db.NewUserStore(c),
		sessions:  db.NewSessionStore(c),
		artifacts: &flakyStore{Store: local, failKeys: map[string]bool{}},
		kv:        kv.NewMemory(),
		clock:     &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	deps := service.Deps{
		Config:     &e.cfg,
		Records:    e.records,
		Artifacts:  e.artifacts,
		Settings:   e.settings,
		Users:      e.users,
		Sessions:   e.sessions,
		Logins:     db.NewLoginLogStore(c),
		KV:         e.kv,
		Clock:      e.clock.Now,
		BcryptCost: 4,
	}

	for _, opt := range opts {
		opt(e, &deps)
	}

	e.svc = service.Build(deps)

	return e
}

type recordOpt func(*model.FileRecord)

func expiresAt(t time.Time) recordOpt {
	return func(r *model.FileRecord) { r.ExpiresAt = &t }
}

func maxDownloads(n int) recordOpt {
	return func(r *model.FileRecord) { r.MaxDownloads = &n }
}

func downloaded(n int) recordOpt {
	return func(r *model.FileRecord) { r.DownloadCount = n }
}

func sharePassword(p string) recordOpt {
	return func(r *model.FileRecord) {
		h := service.HashSharePassword(p)
		r.PasswordHash = &h
	}
}

func ownedBy(uid uint) recordOpt {
	return func(r *model.FileRecord) { r.UserID = &uid }
}

// seed 写入工件并插入对应记录.
func (e *testEnv) seed(t *testing.T, id, content string, opts ...recordOpt) *model.FileRecord {
	t.Helper()

	ctx := context.Background()
	rec := &model.FileRecord{
		ID:           id,
		StorageKey:   "1740830400000-" + id + ".txt",
		OriginalName: id + ".txt",
		Size:         int64(len(content)),
		MimeType:     "application/octet-stream",
	}

	for _, opt := range opts {
		opt(rec)
	}

	if _, err := e.artifacts.Write(ctx, rec.StorageKey, strings.NewReader(content), rec.Size, rec.MimeType); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if err := e.records.Insert(ctx, rec); err != nil {
		t.Fatalf("insert record: %v", err)
	}

	return rec
}

func (e *testEnv) exists(t *testing.T, key string) bool {
	t.Helper()

	ok, err := e.artifacts.Exists(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}

	return ok
}

func (e *testEnv) record(t *testing.T, id string) *model.FileRecord {
	t.Helper()

	rec, err := e.records.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}

	return rec
}

func readAll(t *testing.T, dl *service.Download) string {
	t.Helper()

	defer dl.Body.Close()

	b, err := io.ReadAll(dl.Body)
	if err != nil {
		t.Fatal(err)
	}

	return string(b)
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
