package service

import (
	"context"
	"fmt"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/rule"
)

// CreateUserInput 管理员创建账户.
type CreateUserInput struct {
	Username string `json:"username" rule:"required,username"`
	Password string `json:"password" rule:"required,password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// UpdateUserInput 管理员修改账户，nil 字段保持不变.
type UpdateUserInput struct {
	Username *string `json:"username,omitempty" rule:"omitempty,username"`
	Password *string `json:"password,omitempty" rule:"omitempty,password"`
	IsAdmin  *bool   `json:"isAdmin,omitempty"`
}

// AccountInput 用户修改自己的账户. 修改口令必须提供当前口令.
type AccountInput struct {
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     *string `json:"newPassword,omitempty" rule:"omitempty,password"`
	NewUsername     *string `json:"newUsername,omitempty" rule:"omitempty,username"`
}

// UserService 账户管理.
type UserService struct {
	users    *db.UserStore
	sessions *db.SessionStore
	cost     int
}

// NewUserService 创建账户服务.
func NewUserService(users *db.UserStore, sessions *db.SessionStore, bcryptCost int) *UserService {
	return &UserService{users: users, sessions: sessions, cost: bcryptCost}
}

func validate(in any) error {
	if err := rule.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Create 创建账户，用户名已存在时返回 ErrConflict.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	if err := s.ensureUsernameFree(ctx, in.Username, 0); err != nil {
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.cost)
	if err != nil {
		return nil, err
	}

	u := &model.User{Username: in.Username, PasswordHash: hash, IsAdmin: in.IsAdmin, IsActive: true}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (s *UserService) get(ctx context.Context, id uint) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}

	if u == nil {
		return nil, ErrNotFound
	}

	return u, nil
}

// ensureUsernameFree except 为允许保留该用户名的账户 ID.
func (s *UserService) ensureUsernameFree(ctx context.Context, username string, except uint) error {
	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if existing != nil && existing.ID != except {
		return fmt.Errorf("%w: username %q is taken", ErrConflict, username)
	}

	return nil
}

// Update 修改用户名、口令或管理员标记. 管理员不能撤销自己的管理员身份.
func (s *UserService) Update(ctx context.Context, actor Identity, id uint, in UpdateUserInput) (*model.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if in.Username != nil && *in.Username != u.Username {
		if err := s.ensureUsernameFree(ctx, *in.Username, id); err != nil {
			return nil, err
		}

		fields["username"] = *in.Username
	}

	if in.Password != nil {
		hash, err := HashPassword(*in.Password, s.cost)
		if err != nil {
			return nil, err
		}

		fields["password_hash"] = hash
	}

	if in.IsAdmin != nil && *in.IsAdmin != u.IsAdmin {
		if id == actor.UserID {
			return nil, fmt.Errorf("%w: cannot change your own admin flag", ErrForbidden)
		}

		fields["is_admin"] = *in.IsAdmin
	}

	if len(fields) > 0 {
		if err := s.users.Update(ctx, id, fields); err != nil {
			return nil, fmt.Errorf("update user %d: %w", id, err)
		}
	}

	return s.get(ctx, id)
}

// ToggleActive 切换启用状态并返回新状态. 停用时立即删除该用户的全部会话.
func (s *UserService) ToggleActive(ctx context.Context, actor Identity, id uint) (bool, error) {
	if id == actor.UserID {
		return false, fmt.Errorf("%w: cannot deactivate your own account", ErrForbidden)
	}

	u, err := s.get(ctx, id)
	if err != nil {
		return false, err
	}

	active := !u.IsActive
	if err := s.users.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return false, fmt.Errorf("update user %d: %w", id, err)
	}

	if !active {
		if err := s.sessions.DeleteByUser(ctx, id); err != nil {
			return false, fmt.Errorf("revoke sessions: %w", err)
		}
	}

	return active, nil
}

// Delete 删除账户及其会话与登录日志. 该用户上传的文件保留.
func (s *UserService) Delete(ctx context.Context, actor Identity, id uint) error {
	if id == actor.UserID {
		return fmt.Errorf("%w: cannot delete your own account", ErrForbidden)
	}

	if _, err := s.get(ctx, id); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}

	return nil
}

// UpdateAccount 用户修改自己的用户名或口令.
func (s *UserService) UpdateAccount(ctx context.Context, actor Identity, in AccountInput) (*model.User, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	u, err := s.get(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if in.NewPassword != nil && *in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, fmt.Errorf("%w: current password required", ErrValidation)
		}

		if !CheckPassword(u.PasswordHash, in.CurrentPassword) {
			return nil, ErrBadPassword
		}

		hash, err := HashPassword(*in.NewPassword, s.cost)
		if err != nil {
			return nil, err
		}

		fields["password_hash"] = hash
	}

	if in.NewUsername != nil && *in.NewUsername != "" && *in.NewUsername != u.Username {
		if err := s.ensureUsernameFree(ctx, *in.NewUsername, u.ID); err != nil {
			return nil, err
		}

		fields["username"] = *in.NewUsername
	}

	if len(fields) > 0 {
		if err := s.users.Update(ctx, u.ID, fields); err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
	}

	return s.get(ctx, u.ID)
}
