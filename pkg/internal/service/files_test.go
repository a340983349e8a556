package service_test

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"report.pdf":         "report.pdf",
		"my file (1).tar.gz": "my_file__1_.tar.gz",
		"../../etc/passwd":   ".._.._etc_passwd",
		"été.png":            "_t_.png",
		"a-b_c.D":            "a-b_c.D",
	}

	for in, want := range cases {
		if got := service.SanitizeName(in); got != want {
			t.Errorf("SanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMimeType(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":    "image/jpeg",
		"clip.mkv":     "video/x-matroska",
		"song.flac":    "audio/flac",
		"archive.7z":   "application/x-7z-compressed",
		"bundle.gz":    "application/gzip",
		"notes.txt":    "application/octet-stream",
		"no-extension": "application/octet-stream",
	}

	for in, want := range cases {
		if got := service.MimeType(in); got != want {
			t.Errorf("MimeType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpload(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := &service.Identity{UserID: 7, Username: "alice"}

	res, err := e.svc.Files.Upload(ctx, service.UploadInput{
		Name:          "holiday photo.png",
		Size:          5,
		Body:          strings.NewReader("hello"),
		Password:      strPtr("pw"),
		ExpiresInDays: intPtr(2),
		MaxDownloads:  intPtr(3),
		Owner:         owner,
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	rec := res.Record

	if !regexp.MustCompile(`^[A-Za-z0-9_-]{10}$`).MatchString(rec.ID) {
		t.Errorf("id = %q", rec.ID)
	}

	wantKey := "1740830400000-holiday_photo.png"
	if rec.StorageKey != wantKey {
		t.Errorf("storage key = %q, want %q", rec.StorageKey, wantKey)
	}

	if rec.MimeType != "image/png" || rec.Size != 5 || !rec.HasPassword() {
		t.Errorf("record = %+v", rec)
	}

	if want := e.clock.Now().Add(48 * time.Hour); rec.ExpiresAt == nil || !rec.ExpiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", rec.ExpiresAt, want)
	}

	if !rec.OwnedBy(7) {
		t.Error("owner not recorded")
	}

	if !e.exists(t, rec.StorageKey) {
		t.Error("artifact not written")
	}

	if res.Quota.Used != 5 {
		t.Errorf("quota used = %d", res.Quota.Used)
	}

	stored := e.record(t, rec.ID)
	if stored == nil || *stored.PasswordHash == "pw" {
		t.Error("share password stored in clear")
	}
}

func TestUploadValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, withConfig(func(c *configs.AppConfig) { c.Drop.MaxUploadSize = 10 }))

	cases := []service.UploadInput{
		{Name: "", Size: 1, Body: strings.NewReader("x")},
		{Name: "big.bin", Size: 11, Body: strings.NewReader("01234567890")},
		{Name: "a.txt", Size: 1, Body: strings.NewReader("x"), ExpiresInDays: intPtr(0)},
		{Name: "a.txt", Size: 1, Body: strings.NewReader("x"), MaxDownloads: intPtr(0)},
	}

	for i, in := range cases {
		if _, err := e.svc.Files.Upload(ctx, in); !errors.Is(err, service.ErrValidation) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}

	if n, _ := e.records.Count(ctx); n != 0 {
		t.Errorf("records = %d", n)
	}
}

// TestUploadOverQuotaIsAccepted 配额只做告警.
func TestUploadOverQuotaIsAccepted(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, withConfig(func(c *configs.AppConfig) { c.Drop.DefaultMaxStorage = 4 }))

	res, err := e.svc.Files.Upload(ctx, service.UploadInput{Name: "a.txt", Size: 8, Body: strings.NewReader("12345678")})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !res.Quota.Exceeded() || res.Quota.Percent != 200 {
		t.Errorf("quota = %+v", res.Quota)
	}
}

func TestFileOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := service.Identity{UserID: 1, Username: "alice"}
	bob := service.Identity{UserID: 2, Username: "bob"}
	admin := service.Identity{UserID: 3, Username: "root", IsAdmin: true}

	a := e.seed(t, "alicefile1", "alice data", ownedBy(1))
	e.seed(t, "bobfile001", "bob data", ownedBy(2))

	list, err := e.svc.Files.List(ctx, alice)
	if err != nil || len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("alice list = %v, %v", list, err)
	}

	if list, _ := e.svc.Files.List(ctx, admin); len(list) != 2 {
		t.Errorf("admin list = %d records", len(list))
	}

	if _, err := e.svc.Files.Download(ctx, a.StorageKey, bob); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("foreign download err = %v, want ErrNotFound", err)
	}

	if err := e.svc.Files.Delete(ctx, a.StorageKey, bob); !errors.Is(err, service.ErrNotFound) {
		t.Errorf("foreign delete err = %v, want ErrNotFound", err)
	}

	dl, err := e.svc.Files.Download(ctx, a.StorageKey, alice)
	if err != nil {
		t.Fatalf("owner download: %v", err)
	}

	if got := readAll(t, dl); got != "alice data" {
		t.Errorf("content = %q", got)
	}

	if got := e.record(t, a.ID); got.DownloadCount != 1 {
		t.Errorf("download_count = %d, want 1", got.DownloadCount)
	}

	if err := e.svc.Files.Delete(ctx, a.StorageKey, admin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	if e.record(t, a.ID) != nil || e.exists(t, a.StorageKey) {
		t.Error("file not fully deleted")
	}
}

// TestOwnerDownloadIgnoresLimit 所有者下载不受分享次数限制.
func TestOwnerDownloadIgnoresLimit(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	rec := e.seed(t, "ownerlimit", "x", ownedBy(1), maxDownloads(1), downloaded(1))

	dl, err := e.svc.Files.Download(ctx, rec.StorageKey, service.Identity{UserID: 1})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	readAll(t, dl)

	if got := e.record(t, rec.ID); got.DownloadCount != 1 {
		t.Errorf("download_count = %d, want 1", got.DownloadCount)
	}
}

// TestUploadSameNameSameMillisecond 同一毫秒内同名上传得到不同的存储名，先上传的文件不受影响.
func TestUploadSameNameSameMillisecond(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := service.Identity{UserID: 1, Username: "alice"}
	bob := service.Identity{UserID: 2, Username: "bob"}

	upload := func(who service.Identity, content string) *service.UploadResult {
		t.Helper()

		res, err := e.svc.Files.Upload(ctx, service.UploadInput{
			Name:  "a.txt",
			Size:  int64(len(content)),
			Body:  strings.NewReader(content),
			Owner: &who,
		})
		if err != nil {
			t.Fatalf("Upload(%s): %v", who.Username, err)
		}

		return res
	}

	first := upload(alice, "first")
	second := upload(bob, "second")

	if first.Record.StorageKey != "1740830400000-a.txt" || second.Record.StorageKey != "1740830400001-a.txt" {
		t.Fatalf("keys = %q, %q", first.Record.StorageKey, second.Record.StorageKey)
	}

	for _, tc := range []struct {
		who  service.Identity
		key  string
		want string
	}{
		{alice, first.Record.StorageKey, "first"},
		{bob, second.Record.StorageKey, "second"},
	} {
		dl, err := e.svc.Files.Download(ctx, tc.key, tc.who)
		if err != nil {
			t.Fatalf("Download(%s): %v", tc.key, err)
		}

		if got := readAll(t, dl); got != tc.want {
			t.Errorf("%s content = %q, want %q", tc.key, got, tc.want)
		}
	}
}

// TestUploadSkipsKeyWithStrayArtifact 没有记录但工件仍在的存储名同样不会被复用.
func TestUploadSkipsKeyWithStrayArtifact(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	if _, err := e.artifacts.Write(ctx, "1740830400000-a.txt", strings.NewReader("stray"), 5, ""); err != nil {
		t.Fatal(err)
	}

	res, err := e.svc.Files.Upload(ctx, service.UploadInput{Name: "a.txt", Size: 3, Body: strings.NewReader("new")})
	if err != nil {
		t.Fatal(err)
	}

	if res.Record.StorageKey != "1740830400001-a.txt" {
		t.Errorf("storage key = %q", res.Record.StorageKey)
	}
}

// blindStore 总是报告工件不存在，模拟两个上传在检查与写入之间竞争.
type blindStore struct {
	*flakyStore
}

func (blindStore) Exists(context.Context, string) (bool, error) { return false, nil }

// TestUploadLosingRaceKeepsExistingArtifact 写入撞上已有工件时返回冲突，不删除别人的工件.
func TestUploadLosingRaceKeepsExistingArtifact(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	first, err := e.svc.Files.Upload(ctx, service.UploadInput{Name: "a.txt", Size: 5, Body: strings.NewReader("first")})
	if err != nil {
		t.Fatal(err)
	}

	// 记录查询同样看不到已占用的 key
	if err := e.records.Delete(ctx, first.Record.ID); err != nil {
		t.Fatal(err)
	}

	files := service.NewFileService(service.FileServiceOptions{
		Records:   e.records,
		Artifacts: blindStore{e.artifacts},
		Clock:     e.clock.Now,
	})

	_, err = files.Upload(ctx, service.UploadInput{Name: "a.txt", Size: 6, Body: strings.NewReader("second")})
	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	if !e.exists(t, first.Record.StorageKey) {
		t.Fatal("existing artifact was removed")
	}

	rc, err := e.artifacts.Open(ctx, first.Record.StorageKey)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	if b, _ := io.ReadAll(rc); string(b) != "first" {
		t.Errorf("content = %q, want first", b)
	}
}
