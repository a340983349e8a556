// Package artifact 保存上传文件的字节. 记录存储只保存元数据，二者通过存储名（key）关联.
//
// 所有实现都必须满足：
//   - Delete 幂等，删除不存在的 key 不是错误
//   - Open/Size 对不存在的 key 返回 ErrNotFound
//   - Write 要么完整写入，要么不留下可见对象
//   - Write 不覆盖已有对象，key 已存在时返回 ErrExists
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/yeisme/filedrop/pkg/configs"
)

// ErrNotFound 工件不存在.
var ErrNotFound = errors.New("artifact not found")

// ErrExists 写入的 key 已被占用.
var ErrExists = errors.New("artifact already exists")

// ErrInvalidKey key 含路径分隔符或以点开头.
var ErrInvalidKey = errors.New("invalid artifact key")

// Info Write 的结果.
type Info struct {
	Size     int64
	Checksum string // xxhash64，十六进制
}

// Store 工件存储.
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Info, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Size(ctx context.Context, key string) (int64, error)
	HealthCheck(ctx context.Context) error
	Kind() configs.ArtifactType
}

// Usage 磁盘容量信息，由支持的后端（本地文件系统）提供.
type Usage struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	Available uint64 `json:"available"`
	Percent   int    `json:"percent"`
}

// UsageReporter 可选接口.
type UsageReporter interface {
	Usage() (Usage, error)
}

// Factory 根据全局配置创建 Store.
type Factory func(ctx context.Context, cfg *configs.AppConfig) (Store, error)

var factories = map[configs.ArtifactType]Factory{}

// RegisterFactory 注册后端工厂.
func RegisterFactory(t configs.ArtifactType, f Factory) {
	factories[t] = f
}

// GetRegisteredTypes 返回已注册的后端类型.
func GetRegisteredTypes() []configs.ArtifactType {
	types := make([]configs.ArtifactType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 按 cfg.Artifact.Type 创建工件存储.
func New(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
	f, ok := factories[cfg.Artifact.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported artifact store: %s", cfg.Artifact.Type)
	}

	return f(ctx, cfg)
}

// ValidateKey 拒绝可能逃出存储根目录的 key.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || strings.ContainsAny(key, `/\`) || strings.ContainsRune(key, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}
