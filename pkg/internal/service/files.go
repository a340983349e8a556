package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
	"github.com/yeisme/filedrop/pkg/tracing"
)

// Identity 已认证的调用者.
type Identity struct {
	UserID   uint   `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// CanAccess 管理员可访问全部记录，普通用户只能访问自己的.
func (i Identity) CanAccess(rec *model.FileRecord) bool {
	return i.IsAdmin || rec.OwnedBy(i.UserID)
}

const defaultMimeType = "application/octet-stream"

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"pdf":  "application/pdf",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"7z":   "application/x-7z-compressed",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
}

// MimeType 按扩展名（不区分大小写）推断类型，未知扩展名返回 application/octet-stream.
func MimeType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if t, ok := mimeTypes[ext]; ok {
		return t
	}

	return defaultMimeType
}

// SanitizeName 把 [A-Za-z0-9._-] 以外的字符替换为下划线.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

// StorageKey 生成工件存储名：<毫秒时间戳>-<清洗后的原始名>.
func StorageKey(now time.Time, originalName string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeName(originalName))
}

// maxKeyAttempts 同名文件在同一毫秒内上传时，向后顺延时间戳的最大次数.
const maxKeyAttempts = 16

// freeStorageKey 从 now 开始逐毫秒顺延，返回记录与工件都未占用的存储名.
func (s *FileService) freeStorageKey(ctx context.Context, now time.Time, name string) (string, error) {
	for i := range maxKeyAttempts {
		key := StorageKey(now.Add(time.Duration(i)*time.Millisecond), name)

		rec, err := s.records.GetByStorageKey(ctx, key)
		if err != nil {
			return "", fmt.Errorf("get record by key: %w", err)
		}

		if rec != nil {
			continue
		}

		taken, err := s.artifacts.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%w: stat %s: %v", ErrStorageIO, key, err)
		}

		if !taken {
			return key, nil
		}
	}

	return "", fmt.Errorf("%w: no free storage key for %q", ErrConflict, name)
}

// UploadInput 一次上传的参数. 可选策略为 nil 表示不限制.
type UploadInput struct {
	Name          string
	Size          int64
	Body          io.Reader
	Password      *string
	ExpiresInDays *int
	MaxDownloads  *int
	Owner         *Identity
}

// UploadResult 上传结果，Quota 为写入后的占用.
type UploadResult struct {
	Record *model.FileRecord
	Quota  QuotaSnapshot
}

// FileServiceOptions FileService 的依赖.
type FileServiceOptions struct {
	Records   RecordStore
	Artifacts artifact.Store
	Quota     *QuotaAccountant
	Shares    *ShareService
	Events    *Emitter
	Clock     Clock
	IDLength  int
	MaxUpload int64
}

// FileService 上传、列表、所有者下载与删除.
type FileService struct {
	records   RecordStore
	artifacts artifact.Store
	quota     *QuotaAccountant
	shares    *ShareService
	events    *Emitter
	now       Clock
	idLength  int
	maxUpload int64
}

// NewFileService 创建文件服务.
func NewFileService(o FileServiceOptions) *FileService {
	if o.Clock == nil {
		o.Clock = utcNow
	}

	if o.IDLength <= 0 {
		o.IDLength = 10
	}

	if o.Shares == nil {
		o.Shares = NewShareService(o.Records, o.Artifacts, o.Events, o.Clock)
	}

	return &FileService{
		records:   o.Records,
		artifacts: o.Artifacts,
		quota:     o.Quota,
		shares:    o.Shares,
		events:    o.Events,
		now:       o.Clock,
		idLength:  o.IDLength,
		maxUpload: o.MaxUpload,
	}
}

// MaxUpload 单个文件的字节上限，0 表示不限制.
func (s *FileService) MaxUpload() int64 { return s.maxUpload }

// Upload 写入工件并插入记录. 配额只做告警，超出时仍然接受上传.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (res *UploadResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "files.Upload")
	defer func() { tracing.EndSpan(span, err) }()

	if err := s.validateUpload(in); err != nil {
		return nil, err
	}

	id, err := gonanoid.New(s.idLength)
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}

	now := s.now()

	key, err := s.freeStorageKey(ctx, now, in.Name)
	if err != nil {
		return nil, err
	}

	rec := &model.FileRecord{
		ID:           id,
		StorageKey:   key,
		OriginalName: in.Name,
		Size:         in.Size,
		MimeType:     MimeType(in.Name),
		MaxDownloads: in.MaxDownloads,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	span.SetAttributes(
		tracing.AttrShareID.String(rec.ID),
		tracing.AttrStorageKey.String(rec.StorageKey),
		tracing.AttrBytes.Int64(in.Size),
	)

	if in.Password != nil && *in.Password != "" {
		h := HashSharePassword(*in.Password)
		rec.PasswordHash = &h
	}

	if in.ExpiresInDays != nil {
		exp := now.Add(time.Duration(*in.ExpiresInDays) * 24 * time.Hour)
		rec.ExpiresAt = &exp
	}

	if in.Owner != nil {
		uid := in.Owner.UserID
		rec.UserID = &uid
	}

	info, err := s.artifacts.Write(ctx, rec.StorageKey, in.Body, in.Size, rec.MimeType)
	if errors.Is(err, artifact.ErrExists) {
		// 并发上传抢先占用了这个存储名，已有工件保持不变
		return nil, fmt.Errorf("%w: storage key %s is taken", ErrConflict, rec.StorageKey)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: write %s: %v", ErrStorageIO, rec.StorageKey, err)
	}

	rec.Size = info.Size

	// Write 不会覆盖已有对象，回滚只删除本次写入的工件
	if err := s.records.Insert(ctx, rec); err != nil {
		if derr := s.artifacts.Delete(ctx, rec.StorageKey); derr != nil {
			nlog.Logger().Error().Err(derr).Str("key", rec.StorageKey).Msg("rollback artifact failed")
		}

		return nil, fmt.Errorf("insert record: %w", err)
	}

	metrics.Uploads.Inc()
	metrics.UploadBytes.Add(float64(rec.Size))
	s.events.FileUploaded(rec, info.Checksum)

	res = &UploadResult{Record: rec}

	if s.quota != nil {
		snap, err := s.quota.Snapshot(ctx)
		if err != nil {
			nlog.Logger().Warn().Err(err).Msg("quota snapshot failed")
		} else {
			res.Quota = snap
			if snap.Exceeded() {
				nlog.Logger().Warn().
					Int64("used", snap.Used).
					Int64("max", snap.Max).
					Int("percent", snap.Percent).
					Msg("storage quota exceeded")
				s.events.QuotaExceeded(snap)
			}
		}
	}

	return res, nil
}

func (s *FileService) validateUpload(in UploadInput) error {
	switch {
	case in.Body == nil || in.Name == "":
		return fmt.Errorf("%w: no file provided", ErrValidation)
	case in.Size < 0:
		return fmt.Errorf("%w: invalid size", ErrValidation)
	case s.maxUpload > 0 && in.Size > s.maxUpload:
		return fmt.Errorf("%w: file too large (max %d bytes)", ErrValidation, s.maxUpload)
	case in.ExpiresInDays != nil && *in.ExpiresInDays < 1:
		return fmt.Errorf("%w: expiresIn must be at least 1 day", ErrValidation)
	case in.MaxDownloads != nil && *in.MaxDownloads < 1:
		return fmt.Errorf("%w: maxDownloads must be at least 1", ErrValidation)
	}

	return nil
}

// List 管理员看到全部记录，普通用户只看到自己的.
func (s *FileService) List(ctx context.Context, who Identity) ([]model.FileRecord, error) {
	if who.IsAdmin {
		return s.records.ListAll(ctx)
	}

	return s.records.ListByOwner(ctx, who.UserID)
}

// lookup 对无权访问的调用者返回 ErrNotFound，不暴露记录是否存在.
func (s *FileService) lookup(ctx context.Context, storageKey string, who Identity) (*model.FileRecord, error) {
	rec, err := s.records.GetByStorageKey(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("get record by key: %w", err)
	}

	if rec == nil || !who.CanAccess(rec) {
		return nil, ErrNotFound
	}

	return rec, nil
}

// Download 所有者或管理员按存储名下载. 不经过分享策略，但同样计入下载次数.
func (s *FileService) Download(ctx context.Context, storageKey string, who Identity) (*Download, error) {
	rec, err := s.lookup(ctx, storageKey, who)
	if err != nil {
		return nil, err
	}

	return s.shares.transfer(ctx, rec, "owner", false)
}

// Delete 所有者或管理员删除文件，先删工件再删记录.
func (s *FileService) Delete(ctx context.Context, storageKey string, who Identity) error {
	rec, err := s.lookup(ctx, storageKey, who)
	if err != nil {
		return err
	}

	if err := removeRecord(ctx, s.records, s.artifacts, rec); err != nil {
		return err
	}

	s.events.FileDeleted(rec, who.UserID)

	return nil
}
