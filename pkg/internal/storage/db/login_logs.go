package db

import (
	"context"

	"gorm.io/gorm"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// LoginLogStore 登录日志仓储，只追加.
type LoginLogStore struct {
	db *gorm.DB
}

func NewLoginLogStore(c *Client) *LoginLogStore {
	return &LoginLogStore{db: c.DB}
}

func (s *LoginLogStore) Append(ctx context.Context, entry *model.LoginLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// Recent 最新的 limit 条记录，新记录在前.
func (s *LoginLogStore) Recent(ctx context.Context, limit int) ([]model.LoginLog, error) {
	var logs []model.LoginLog
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error

	return logs, err
}
