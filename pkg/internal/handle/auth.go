package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/types"
	"github.com/yeisme/filedrop/pkg/middleware"
)

// GetSetup 是否需要首次初始化.
//
//	@Summary	初始化状态
//	@Tags		初始化
//	@Produce	json
//	@Success	200	{object}	types.SetupStatusResponse
//	@Router		/api/setup [get]
func GetSetup(c *gin.Context) {
	svc := services(c)

	needs, err := svc.Setup.NeedsSetup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	name, err := svc.Setup.AppName(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.SetupStatusResponse{NeedsSetup: needs, AppName: name})
}

// PostSetup 创建第一个管理员并写入实例设置，成功后直接登录.
//
//	@Summary	首次初始化
//	@Tags		初始化
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.SetupRequest	true	"管理员与实例设置"
//	@Success	200		{object}	types.LoginResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	403		{object}	types.ErrorResponse	"已初始化"
//	@Router		/api/setup [post]
func PostSetup(c *gin.Context) {
	var req types.SetupRequest
	if !bindJSON(c, &req) {
		return
	}

	svc := services(c)

	user, err := svc.Setup.Complete(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	sess, err := svc.Auth.StartSession(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, svc.Auth, sess.ID)
	c.JSON(http.StatusOK, types.LoginResponse{Success: true, User: types.NewUserView(user)})
}

// Login 校验凭据并设置会话 cookie.
//
//	@Summary	登录
//	@Tags		认证
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.LoginRequest	true	"凭据"
//	@Success	200		{object}	types.LoginResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	401		{object}	types.ErrorResponse	"凭据错误"
//	@Failure	403		{object}	types.ErrorResponse	"账户已停用"
//	@Failure	429		{object}	types.ErrorResponse	"失败次数过多"
//	@Router		/api/auth/login [post]
func Login(c *gin.Context) {
	var req types.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	svc := services(c)

	user, sess, err := svc.Auth.Login(c.Request.Context(), service.LoginInput{
		Username:  req.Username,
		Password:  req.Password,
		IP:        middleware.ClientIP(c),
		UserAgent: c.Request.UserAgent(),
	})
	if errors.Is(err, service.ErrBadPassword) {
		// 用户不存在与口令错误不作区分
		c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "invalid credentials"})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetSessionCookie(c, svc.Auth, sess.ID)
	c.JSON(http.StatusOK, types.LoginResponse{Success: true, User: types.NewUserView(user)})
}

// Logout 删除会话.
//
//	@Summary	登出
//	@Tags		认证
//	@Produce	json
//	@Success	200	{object}	types.SuccessResponse
//	@Router		/api/auth/logout [post]
func Logout(c *gin.Context) {
	auth := services(c).Auth

	if sid, err := c.Cookie(auth.CookieName()); err == nil {
		if err := auth.Logout(c.Request.Context(), sid); err != nil {
			respondError(c, err)
			return
		}
	}

	middleware.ClearSessionCookie(c, auth)
	c.JSON(http.StatusOK, types.SuccessResponse{Success: true})
}

// Me 当前用户.
//
//	@Summary	当前用户
//	@Tags		认证
//	@Produce	json
//	@Success	200	{object}	types.MeResponse
//	@Failure	401	{object}	types.ErrorResponse
//	@Router		/api/auth/me [get]
func Me(c *gin.Context) {
	user, err := services(c).Auth.Me(c.Request.Context(), identity(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MeResponse{User: types.NewUserView(user)})
}

// UpdateAccount 修改自己的用户名或口令.
//
//	@Summary	修改账户
//	@Tags		账户
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.AccountRequest	true	"新用户名或新口令"
//	@Success	200		{object}	types.MeResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	401		{object}	types.ErrorResponse	"当前口令错误"
//	@Failure	409		{object}	types.ErrorResponse	"用户名已存在"
//	@Router		/api/account [patch]
func UpdateAccount(c *gin.Context) {
	var req types.AccountRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := services(c).Users.UpdateAccount(c.Request.Context(), identity(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.MeResponse{User: types.NewUserView(user)})
}
