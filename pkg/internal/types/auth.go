package types

import (
	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/service"
)

// LoginRequest 登录请求.
type LoginRequest struct {
	Username string `json:"username" rule:"required"`
	Password string `json:"password" rule:"required"`
}

// UserView 返回给客户端的账户信息.
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
	IsActive bool   `json:"isActive"`
}

// NewUserView 从模型构造视图，不包含口令摘要.
func NewUserView(u *model.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin, IsActive: u.IsActive}
}

// LoginResponse 登录或 setup 成功.
type LoginResponse struct {
	Success bool     `json:"success"`
	User    UserView `json:"user"`
}

// MeResponse 当前用户.
type MeResponse struct {
	User UserView `json:"user"`
}

// SetupStatusResponse GET /api/setup.
type SetupStatusResponse struct {
	NeedsSetup bool   `json:"needsSetup"`
	AppName    string `json:"appName,omitempty"`
}

// SetupRequest 首次初始化.
type SetupRequest = service.SetupInput

// AccountRequest 修改自己的账户.
type AccountRequest = service.AccountInput

// CreateUserRequest 管理员创建账户.
type CreateUserRequest = service.CreateUserInput

// UpdateUserRequest 管理员修改账户. ToggleActive 为 true 时只切换启用状态，忽略其它字段.
type UpdateUserRequest struct {
	service.UpdateUserInput

	ToggleActive bool `json:"toggleActive"`
}

// UsersResponse 账户列表.
type UsersResponse struct {
	Users []UserView `json:"users"`
}

// ToggleActiveResponse 切换启用状态后的结果.
type ToggleActiveResponse struct {
	Success  bool `json:"success"`
	IsActive bool `json:"isActive"`
}

// LoginLogsResponse 最近的登录记录，新的在前.
type LoginLogsResponse struct {
	Logs []model.LoginLog `json:"logs"`
}
