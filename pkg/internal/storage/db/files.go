package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// FileStore 文件记录仓储.
type FileStore struct {
	db *gorm.DB
}

// NewFileStore 基于已打开的连接创建文件记录仓储.
func NewFileStore(c *Client) *FileStore {
	return &FileStore{db: c.DB}
}

func (s *FileStore) Insert(ctx context.Context, rec *model.FileRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *FileStore) GetByID(ctx context.Context, id string) (*model.FileRecord, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *FileStore) GetByStorageKey(ctx context.Context, key string) (*model.FileRecord, error) {
	return s.first(ctx, "storage_key = ?", key)
}

func (s *FileStore) first(ctx context.Context, query string, arg any) (*model.FileRecord, error) {
	var rec model.FileRecord

	err := s.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// ListAll 按创建时间倒序返回全部记录.
func (s *FileStore) ListAll(ctx context.Context) ([]model.FileRecord, error) {
	var recs []model.FileRecord
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&recs).Error

	return recs, err
}

func (s *FileStore) ListByOwner(ctx context.Context, userID uint) ([]model.FileRecord, error) {
	var recs []model.FileRecord
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&recs).Error

	return recs, err
}

// ListSweepable 选出已过期或下载次数用尽的记录.
func (s *FileStore) ListSweepable(ctx context.Context, now time.Time) ([]model.FileRecord, error) {
	var recs []model.FileRecord
	err := s.db.WithContext(ctx).
		Where("(expires_at IS NOT NULL AND expires_at < ?) OR (max_downloads IS NOT NULL AND download_count >= max_downloads)", now).
		Find(&recs).Error

	return recs, err
}

// Update 按列名更新部分字段，updated_at 由 GORM 维护.
func (s *FileStore) Update(ctx context.Context, id string, fields map[string]any) error {
	return s.db.WithContext(ctx).Model(&model.FileRecord{}).Where("id = ?", id).Updates(fields).Error
}

// IncrementDownload 在未达上限时把下载计数加一并把 updated_at 设为 now. 判断与自增在同一条 UPDATE 中完成，
// 返回 false 表示记录不存在或已达到 max_downloads.
func (s *FileStore) IncrementDownload(ctx context.Context, id string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		Where("id = ? AND (max_downloads IS NULL OR download_count < max_downloads)", id).
		Updates(map[string]any{
			"download_count": gorm.Expr("download_count + ?", 1),
			"updated_at":     now,
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

// Delete 删除记录，记录不存在不视为错误.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.FileRecord{}).Error
}

// SumSizes 当前全部记录的大小之和.
func (s *FileStore) SumSizes(ctx context.Context) (int64, error) {
	return s.sum(ctx, "size")
}

// SumDownloads 全部记录的下载次数之和.
func (s *FileStore) SumDownloads(ctx context.Context) (int64, error) {
	return s.sum(ctx, "download_count")
}

func (s *FileStore) sum(ctx context.Context, column string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.FileRecord{}).
		Select("COALESCE(SUM(" + column + "), 0)").
		Scan(&total).Error

	return total, err
}

func (s *FileStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.FileRecord{}).Count(&n).Error

	return n, err
}
