package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// SessionStore 会话仓储.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{db: c.DB}
}

func (s *SessionStore) Create(ctx context.Context, sess *model.Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

func (s *SessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session

	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &sess, nil
}

// Touch 把会话过期时间推到 expiresAt.
func (s *SessionStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&model.Session{}).Where("id = ?", id).Update("expires_at", expiresAt).Error
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Session{}).Error
}

// DeleteByUser 注销某个用户的全部会话.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Session{}).Error
}

// DeleteExpired 清除 now 之前过期的会话，返回删除条数.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&model.Session{})

	return res.RowsAffected, res.Error
}
