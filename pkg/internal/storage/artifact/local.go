package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/filedrop/pkg/configs"
)

// Local 把工件保存为 dir 下的普通文件.
type Local struct {
	dir string
}

func init() {
	RegisterFactory(configs.ArtifactLocal, func(_ context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewLocal(cfg.Artifact.LocalDir)
	})
}

// NewLocal 创建本地存储，目录不存在时自动创建.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}

	return &Local{dir: dir}, nil
}

// Dir 存储根目录.
func (l *Local) Dir() string { return l.dir }

func (l *Local) Kind() configs.ArtifactType { return configs.ArtifactLocal }

func (l *Local) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	return filepath.Join(l.dir, key), nil
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return err == nil, err
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}

	return nil
}

// Write 先写临时文件并 fsync，再硬链接到最终位置. 目标已存在时返回 ErrExists，临时文件总会被删除.
func (l *Local) Write(ctx context.Context, key string, r io.Reader, _ int64, _ string) (Info, error) {
	p, err := l.path(key)
	if err != nil {
		return Info{}, err
	}

	f, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return Info{}, fmt.Errorf("create temp file: %w", err)
	}

	tmp := f.Name()
	fail := func(err error) (Info, error) {
		_ = f.Close()
		_ = os.Remove(tmp)

		return Info{}, err
	}

	h := xxhash.New()

	n, err := io.Copy(f, io.TeeReader(&ctxReader{ctx: ctx, r: r}, h))
	if err != nil {
		return fail(fmt.Errorf("write %s: %w", key, err))
	}

	if err := f.Sync(); err != nil {
		return fail(fmt.Errorf("fsync %s: %w", key, err))
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)

		return Info{}, fmt.Errorf("close %s: %w", key, err)
	}

	// 硬链接不会替换已存在的目标文件
	err = os.Link(tmp, p)
	_ = os.Remove(tmp)

	if errors.Is(err, fs.ErrExist) {
		return Info{}, fmt.Errorf("%w: %s", ErrExists, key)
	}

	if err != nil {
		return Info{}, fmt.Errorf("link %s: %w", key, err)
	}

	return Info{Size: n, Checksum: strconv.FormatUint(h.Sum64(), 16)}, nil
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}

	return f, nil
}

func (l *Local) Size(_ context.Context, key string) (int64, error) {
	p, err := l.path(key)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNotFound
	}

	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", key, err)
	}

	return info.Size(), nil
}

// HealthCheck 确认根目录仍可访问.
func (l *Local) HealthCheck(_ context.Context) error {
	info, err := os.Stat(l.dir)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.dir)
	}

	return nil
}

// ctxReader 在每次读取前检查 ctx，客户端断开后尽快停止写入.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}

	return c.r.Read(p)
}
