package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gorm.io/gorm"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
)

// SetupInput 首次初始化参数.
type SetupInput struct {
	Username     string `json:"username"     rule:"required,username"`
	Password     string `json:"password"     rule:"required,password"`
	AppName      string `json:"appName"      rule:"required,min=2,max=64"`
	MaxStorageGB int    `json:"maxStorageGB" rule:"min=1,max=1000"`
}

// SetupService 实例首次初始化：创建管理员并写入实例设置.
type SetupService struct {
	settings *db.SettingStore
	users    *db.UserStore
	cfg      configs.DropConfig
	cost     int
	mu       sync.Mutex
}

// NewSetupService 创建初始化服务.
func NewSetupService(settings *db.SettingStore, users *db.UserStore, cfg configs.DropConfig, bcryptCost int) *SetupService {
	return &SetupService{settings: settings, users: users, cfg: cfg, cost: bcryptCost}
}

// NeedsSetup 是否尚未完成初始化.
func (s *SetupService) NeedsSetup(ctx context.Context) (bool, error) {
	v, ok, err := s.settings.Get(ctx, model.ConfigSetupCompleted)
	if err != nil {
		return false, fmt.Errorf("read setup flag: %w", err)
	}

	return !ok || v != "true", nil
}

// AppName 实例显示名称，未设置时使用配置中的默认值.
func (s *SetupService) AppName(ctx context.Context) (string, error) {
	v, ok, err := s.settings.Get(ctx, model.ConfigAppName)
	if err != nil {
		return "", fmt.Errorf("read app name: %w", err)
	}

	if !ok || v == "" {
		return s.cfg.AppName, nil
	}

	return v, nil
}

// Complete 创建第一个管理员并写入设置. 已完成初始化时返回 ErrSetupDone.
func (s *SetupService) Complete(ctx context.Context, in SetupInput) (*model.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	needed, err := s.NeedsSetup(ctx)
	if err != nil {
		return nil, err
	}

	if !needed {
		return nil, ErrSetupDone
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	admin := &model.User{Username: in.Username, PasswordHash: hash, IsAdmin: true, IsActive: true}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: username %q is taken", ErrConflict, in.Username)
		}

		return nil, fmt.Errorf("create admin: %w", err)
	}

	maxBytes := int64(in.MaxStorageGB) << 30

	err = s.settings.SetMany(ctx, map[string]string{
		model.ConfigAppName:        in.AppName,
		model.ConfigMaxStorage:     strconv.FormatInt(maxBytes, 10),
		model.ConfigSetupCompleted: "true",
	})
	if err != nil {
		return nil, fmt.Errorf("write settings: %w", err)
	}

	return admin, nil
}
