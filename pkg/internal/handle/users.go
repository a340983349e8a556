package handle

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/types"
)

func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, fmt.Errorf("%w: invalid user id", service.ErrValidation))
		return 0, false
	}

	return uint(id), true
}

// ListUsers 全部账户.
//
//	@Summary	账户列表
//	@Tags		用户管理
//	@Produce	json
//	@Success	200	{object}	types.UsersResponse
//	@Failure	403	{object}	types.ErrorResponse
//	@Router		/api/users [get]
func ListUsers(c *gin.Context) {
	users, err := services(c).Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]types.UserView, 0, len(users))
	for i := range users {
		views = append(views, types.NewUserView(&users[i]))
	}

	c.JSON(http.StatusOK, types.UsersResponse{Users: views})
}

// CreateUser 创建账户.
//
//	@Summary	创建账户
//	@Tags		用户管理
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.CreateUserRequest	true	"账户"
//	@Success	201		{object}	types.UserView
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	409		{object}	types.ErrorResponse
//	@Router		/api/users [post]
func CreateUser(c *gin.Context) {
	var req types.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := services(c).Users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, types.NewUserView(user))
}

// UpdateUser 修改账户，toggleActive=true 时切换启用状态.
//
//	@Summary	修改账户
//	@Tags		用户管理
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int						true	"用户 ID"
//	@Param		body	body		types.UpdateUserRequest	true	"修改内容"
//	@Success	200		{object}	types.UserView
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	403		{object}	types.ErrorResponse	"不能停用自己"
//	@Failure	404		{object}	types.ErrorResponse
//	@Router		/api/users/{id} [patch]
func UpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	var req types.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	svc := services(c)

	if req.ToggleActive {
		active, err := svc.Users.ToggleActive(c.Request.Context(), identity(c), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, types.ToggleActiveResponse{Success: true, IsActive: active})

		return
	}

	user, err := svc.Users.Update(c.Request.Context(), identity(c), id, req.UpdateUserInput)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.NewUserView(user))
}

// DeleteUser 删除账户及其会话与登录记录.
//
//	@Summary	删除账户
//	@Tags		用户管理
//	@Produce	json
//	@Param		id	path		int	true	"用户 ID"
//	@Success	200	{object}	types.SuccessResponse
//	@Failure	403	{object}	types.ErrorResponse	"不能删除自己"
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/users/{id} [delete]
func DeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}

	if err := services(c).Users.Delete(c.Request.Context(), identity(c), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// LoginLogs 最近的登录记录.
//
//	@Summary	登录记录
//	@Tags		用户管理
//	@Produce	json
//	@Success	200	{object}	types.LoginLogsResponse
//	@Router		/api/login-logs [get]
func LoginLogs(c *gin.Context) {
	logs, err := services(c).Auth.RecentLogins(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.LoginLogsResponse{Logs: logs})
}
