package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// SettingStore config 表的键值访问.
type SettingStore struct {
	db *gorm.DB
}

func NewSettingStore(c *Client) *SettingStore {
	return &SettingStore{db: c.DB}
}

// Get 返回键对应的值；键不存在时 ok 为 false.
func (s *SettingStore) Get(ctx context.Context, key string) (string, bool, error) {
	var e model.ConfigEntry

	err := s.db.WithContext(ctx).Where(&model.ConfigEntry{Key: key}).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return e.Value, true, nil
}

// Set 写入或覆盖一个键.
func (s *SettingStore) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&model.ConfigEntry{Key: key, Value: value}).Error
}

// SetMany 在一个事务内写入多个键，setup 使用.
func (s *SettingStore) SetMany(ctx context.Context, kv map[string]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range kv {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&model.ConfigEntry{Key: k, Value: v}).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}
