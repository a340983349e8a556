package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/app"
	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/storage"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type server struct {
	t       *testing.T
	handler http.Handler
	svc     *service.Services
	cfg     configs.AppConfig
}

// newServer 基于临时 SQLite、本地工件目录与内存 KV 组装完整的 HTTP 引擎.
func newServer(t *testing.T) *server {
	t.Helper()

	ctx := context.Background()

	c, err := db.New(ctx, configs.DBConfig{
		Type:         configs.SQLite,
		Database:     filepath.Join(t.TempDir(), "http"),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = c.Close() })

	if err := c.Migrate(ctx); err != nil {
		t.Fatal(err)
	}

	local, err := artifact.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	s := &server{t: t, cfg: configs.Defaults()}
	mgr := &storage.Manager{DB: c, Artifacts: local, KV: kv.NewMemory()}

	s.svc = service.Build(service.Deps{
		Config:     &s.cfg,
		Records:    db.NewFileStore(c),
		Artifacts:  local,
		Settings:   db.NewSettingStore(c),
		Users:      db.NewUserStore(c),
		Sessions:   db.NewSessionStore(c),
		Logins:     db.NewLoginLogStore(c),
		KV:         mgr.KV,
		BcryptCost: 4,
	})
	s.handler = app.NewEngine(&s.cfg, mgr, s.svc, nil)

	return s
}

func (s *server) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	return w
}

func (s *server) json(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}

		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, cookie)
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == configs.DefaultSessionCookie && c.Value != "" {
			return c
		}
	}

	t.Fatalf("no session cookie in %v", w.Header())

	return nil
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}

	return v
}

// setupAdmin 完成首次初始化并返回管理员会话.
func (s *server) setupAdmin() *http.Cookie {
	s.t.Helper()

	w := s.json(http.MethodPost, "/api/setup", map[string]any{
		"username": "admin", "password": "secret1", "appName": "Drop", "maxStorageGB": 1,
	}, nil)
	if w.Code != http.StatusOK {
		s.t.Fatalf("setup = %d %s", w.Code, w.Body.String())
	}

	return sessionCookie(s.t, w)
}

func (s *server) upload(cookie *http.Cookie, name, content string, fields map[string]string) map[string]any {
	s.t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		s.t.Fatal(err)
	}

	_, _ = fw.Write([]byte(content))

	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}

	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := s.do(req, cookie)
	if w.Code != http.StatusOK {
		s.t.Fatalf("upload = %d %s", w.Code, w.Body.String())
	}

	return decode[map[string]any](s.t, w)
}

func TestSetupFlow(t *testing.T) {
	s := newServer(t)

	status := decode[map[string]any](t, s.json(http.MethodGet, "/api/setup", nil, nil))
	if status["needsSetup"] != true {
		t.Fatalf("needsSetup = %v", status["needsSetup"])
	}

	admin := s.setupAdmin()

	if w := s.json(http.MethodGet, "/api/auth/me", nil, admin); w.Code != http.StatusOK {
		t.Fatalf("me after setup = %d", w.Code)
	}

	w := s.json(http.MethodPost, "/api/setup", map[string]any{
		"username": "other", "password": "secret1", "appName": "Drop", "maxStorageGB": 1,
	}, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("second setup = %d, want 403", w.Code)
	}

	status = decode[map[string]any](t, s.json(http.MethodGet, "/api/setup", nil, nil))
	if status["needsSetup"] != false || status["appName"] != "Drop" {
		t.Errorf("status after setup = %v", status)
	}
}

func TestLoginAndSession(t *testing.T) {
	s := newServer(t)
	s.setupAdmin()

	if w := s.json(http.MethodGet, "/api/auth/me", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous me = %d, want 401", w.Code)
	}

	w := s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", w.Code)
	}

	w = s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "secret1"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}

	cookie := sessionCookie(t, w)

	me := decode[map[string]map[string]any](t, s.json(http.MethodGet, "/api/auth/me", nil, cookie))
	if me["user"]["username"] != "admin" || me["user"]["isAdmin"] != true {
		t.Errorf("me = %v", me)
	}

	if w := s.json(http.MethodPost, "/api/auth/logout", nil, cookie); w.Code != http.StatusOK {
		t.Fatalf("logout = %d", w.Code)
	}

	if w := s.json(http.MethodGet, "/api/auth/me", nil, cookie); w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", w.Code)
	}

	logs := decode[map[string][]map[string]any](t, s.json(http.MethodGet, "/api/login-logs", nil, s.setupLogin()))
	if len(logs["logs"]) < 2 {
		t.Errorf("login logs = %d entries, want at least 2", len(logs["logs"]))
	}
}

func (s *server) setupLogin() *http.Cookie {
	s.t.Helper()

	w := s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "secret1"}, nil)

	return sessionCookie(s.t, w)
}

func TestShareLifecycle(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	up := s.upload(admin, "report.pdf", "hello", map[string]string{"password": "pw", "maxDownloads": "1"})
	id, _ := up["id"].(string)

	if id == "" || up["hasPassword"] != true || up["mimeType"] != "application/pdf" {
		t.Fatalf("upload response = %v", up)
	}

	if !strings.HasSuffix(up["shareUrl"].(string), "/s/"+id) {
		t.Errorf("shareUrl = %v", up["shareUrl"])
	}

	info := decode[map[string]any](t, s.json(http.MethodGet, "/api/share/"+id, nil, nil))
	if info["hasPassword"] != true || info["originalName"] != "report.pdf" {
		t.Errorf("share info = %v", info)
	}

	if _, leaked := info["password"]; leaked {
		t.Error("share info leaks password")
	}

	w := s.json(http.MethodGet, "/api/share/"+id+"?download=true", nil, nil)
	if w.Code != http.StatusUnauthorized || decode[map[string]any](t, w)["passwordRequired"] != true {
		t.Fatalf("no password = %d %s", w.Code, w.Body.String())
	}

	if w := s.json(http.MethodGet, "/api/share/"+id+"?download=true&password=bad", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password = %d", w.Code)
	}

	verify := s.json(http.MethodPost, "/api/share/"+id+"/verify", map[string]string{"password": "pw"}, nil)
	if verify.Code != http.StatusOK || decode[map[string]bool](t, verify)["valid"] != true {
		t.Fatalf("verify = %d %s", verify.Code, verify.Body.String())
	}

	w = s.json(http.MethodGet, "/api/share/"+id+"?download=true&password=pw", nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != "hello" {
		t.Fatalf("download = %d %q", w.Code, w.Body.String())
	}

	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "report.pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	w = s.json(http.MethodGet, "/api/share/"+id+"?download=true&password=pw", nil, nil)
	if w.Code != http.StatusGone || !strings.Contains(w.Body.String(), "download limit reached") {
		t.Fatalf("exhausted = %d %s", w.Code, w.Body.String())
	}

	// 次数用尽的记录保留，元数据仍可查看，直到清理
	meta := s.json(http.MethodGet, "/api/share/"+id, nil, nil)
	if meta.Code != http.StatusOK {
		t.Fatalf("exhausted metadata = %d, want 200", meta.Code)
	}

	if info := decode[map[string]any](t, meta); info["exhausted"] != true || info["downloadCount"] != float64(1) {
		t.Errorf("exhausted metadata = %v", info)
	}

	// POST 需要登录，GET 对外部 cron 开放
	if w := s.json(http.MethodPost, "/api/cleanup", nil, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous POST cleanup = %d, want 401", w.Code)
	}

	cleanup := decode[map[string]any](t, s.json(http.MethodGet, "/api/cleanup", nil, nil))
	if cleanup["count"] != float64(1) {
		t.Errorf("cleanup = %v", cleanup)
	}

	if w := s.json(http.MethodGet, "/api/share/"+id, nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("after cleanup = %d, want 404", w.Code)
	}
}

func TestShareQRCode(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()
	id := s.upload(admin, "a.txt", "x", nil)["id"].(string)

	w := s.json(http.MethodGet, "/api/share/"+id+"/qrcode", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("qrcode = %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	if !bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("qrcode body is not a PNG")
	}

	if w := s.json(http.MethodGet, "/api/share/missing123/qrcode", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing qrcode = %d, want 404", w.Code)
	}
}

func TestFilesOwnership(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	if w := s.json(http.MethodPost, "/api/users", map[string]any{"username": "bob", "password": "bobpw"}, admin); w.Code != http.StatusCreated {
		t.Fatalf("create user = %d %s", w.Code, w.Body.String())
	}

	bob := sessionCookie(t, s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "bob", "password": "bobpw"}, nil))

	adminFile := s.upload(admin, "admin.txt", "a", nil)["name"].(string)
	bobFile := s.upload(bob, "bob.txt", "b", nil)["name"].(string)

	files := decode[map[string][]map[string]any](t, s.json(http.MethodGet, "/api/files", nil, bob))
	if len(files["files"]) != 1 || files["files"][0]["name"] != bobFile {
		t.Errorf("bob files = %v", files)
	}

	files = decode[map[string][]map[string]any](t, s.json(http.MethodGet, "/api/files", nil, admin))
	if len(files["files"]) != 2 {
		t.Errorf("admin sees %d files, want 2", len(files["files"]))
	}

	if w := s.json(http.MethodGet, "/api/files/"+adminFile, nil, bob); w.Code != http.StatusNotFound {
		t.Errorf("foreign download = %d, want 404", w.Code)
	}

	if w := s.json(http.MethodDelete, "/api/files/"+adminFile, nil, bob); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete = %d, want 404", w.Code)
	}

	if w := s.json(http.MethodGet, "/api/files/"+bobFile, nil, bob); w.Code != http.StatusOK || w.Body.String() != "b" {
		t.Errorf("own download = %d %q", w.Code, w.Body.String())
	}

	if w := s.json(http.MethodDelete, "/api/files/"+bobFile, nil, admin); w.Code != http.StatusOK {
		t.Errorf("admin delete = %d", w.Code)
	}

	if w := s.json(http.MethodGet, "/api/users", nil, bob); w.Code != http.StatusForbidden {
		t.Errorf("non-admin users = %d, want 403", w.Code)
	}

	if w := s.json(http.MethodPost, "/api/admin/purge", map[string]string{"confirmCode": "SUPPRIMER-TOUT"}, bob); w.Code != http.StatusForbidden {
		t.Errorf("non-admin purge = %d, want 403", w.Code)
	}
}

func TestPurge(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		s.upload(admin, name, name, nil)
	}

	for _, code := range []string{"", "supprimer-tout", "SUPPRIMER-TOUT "} {
		if w := s.json(http.MethodPost, "/api/admin/purge", map[string]string{"confirmCode": code}, admin); w.Code != http.StatusBadRequest {
			t.Errorf("purge %q = %d, want 400", code, w.Code)
		}
	}

	stats := decode[map[string]any](t, s.json(http.MethodGet, "/api/stats", nil, admin))
	if stats["filesCount"] != float64(3) {
		t.Fatalf("files before purge = %v", stats["filesCount"])
	}

	w := s.json(http.MethodPost, "/api/admin/purge", map[string]string{"confirmCode": "SUPPRIMER-TOUT"}, admin)
	res := decode[map[string]any](t, w)

	if w.Code != http.StatusOK || res["deleted"] != float64(3) || res["errors"] != float64(0) {
		t.Fatalf("purge = %d %v", w.Code, res)
	}

	stats = decode[map[string]any](t, s.json(http.MethodGet, "/api/stats", nil, admin))
	if stats["filesCount"] != float64(0) || stats["totalStorage"] != float64(0) {
		t.Errorf("stats after purge = %v", stats)
	}
}

func TestUserManagement(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	created := decode[map[string]any](t, s.json(http.MethodPost, "/api/users", map[string]any{"username": "carol", "password": "pass"}, admin))
	id := int(created["id"].(float64))
	path := "/api/users/" + strconv.Itoa(id)

	if w := s.json(http.MethodPost, "/api/users", map[string]any{"username": "carol", "password": "pass"}, admin); w.Code != http.StatusConflict {
		t.Errorf("duplicate = %d, want 409", w.Code)
	}

	if w := s.json(http.MethodPost, "/api/users", map[string]any{"username": "ab", "password": "pass"}, admin); w.Code != http.StatusBadRequest {
		t.Errorf("short username = %d, want 400", w.Code)
	}

	toggle := decode[map[string]any](t, s.json(http.MethodPatch, path, map[string]any{"toggleActive": true}, admin))
	if toggle["isActive"] != false {
		t.Fatalf("toggle = %v", toggle)
	}

	if w := s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "carol", "password": "pass"}, nil); w.Code != http.StatusForbidden {
		t.Errorf("inactive login = %d, want 403", w.Code)
	}

	if w := s.json(http.MethodPatch, "/api/users/1", map[string]any{"toggleActive": true}, admin); w.Code != http.StatusForbidden {
		t.Errorf("self deactivate = %d, want 403", w.Code)
	}

	if w := s.json(http.MethodDelete, "/api/users/1", nil, admin); w.Code != http.StatusForbidden {
		t.Errorf("self delete = %d, want 403", w.Code)
	}

	if w := s.json(http.MethodDelete, path, nil, admin); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}

	if w := s.json(http.MethodDelete, path, nil, admin); w.Code != http.StatusNotFound {
		t.Errorf("delete again = %d, want 404", w.Code)
	}
}

func TestAccountUpdate(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	w := s.json(http.MethodPatch, "/api/account", map[string]any{"currentPassword": "wrong", "newPassword": "changed"}, admin)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong current password = %d, want 401", w.Code)
	}

	w = s.json(http.MethodPatch, "/api/account", map[string]any{"currentPassword": "secret1", "newPassword": "changed"}, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("change password = %d %s", w.Code, w.Body.String())
	}

	if w := s.json(http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "changed"}, nil); w.Code != http.StatusOK {
		t.Errorf("login with new password = %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	w := s.json(http.MethodGet, "/api/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}

	if w := s.json(http.MethodGet, "/api/health/db", nil, nil); w.Code != http.StatusOK {
		t.Errorf("db health = %d", w.Code)
	}

	if w := s.json(http.MethodGet, "/api/health/mq", nil, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("mq health without mq = %d, want 503", w.Code)
	}
}

func TestJobsDisabled(t *testing.T) {
	s := newServer(t)
	admin := s.setupAdmin()

	jobs := decode[map[string]any](t, s.json(http.MethodGet, "/api/admin/jobs", nil, admin))
	if jobs["enabled"] != false {
		t.Errorf("jobs = %v", jobs)
	}
}
