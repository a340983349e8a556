// Package handle 提供 HTTP 请求处理器. 处理器从请求上下文取得服务集合与调用者身份，
// 业务错误统一经 respondError 映射为状态码.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/types"
	"github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/middleware"
)

func services(c *gin.Context) *service.Services {
	svc := ctxPkg.GetServices(c.Request.Context())
	if svc == nil {
		panic("handle: services not injected, missing InjectMiddleware")
	}

	return svc
}

// identity 返回调用者. 路由已挂 RequireAuth 时不会为 nil.
func identity(c *gin.Context) service.Identity {
	if who := middleware.GetIdentity(c); who != nil {
		return *who
	}

	return service.Identity{}
}

type statusMapping struct {
	target error
	status int
}

var errorStatuses = []statusMapping{
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrExpired, http.StatusGone},
	{service.ErrExhausted, http.StatusGone},
	{service.ErrBadPassword, http.StatusUnauthorized},
	{service.ErrPasswordRequired, http.StatusUnauthorized},
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInactive, http.StatusForbidden},
	{service.ErrSetupDone, http.StatusForbidden},
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrThrottled, http.StatusTooManyRequests},
}

// StatusOf 返回业务错误对应的 HTTP 状态码，未知错误为 500.
func StatusOf(err error) int {
	for _, m := range errorStatuses {
		if errors.Is(err, m.target) {
			return m.status
		}
	}

	return http.StatusInternalServerError
}

// respondError 写出错误响应. 5xx 只返回通用信息，细节写入日志.
func respondError(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		l := ctxPkg.WithTraceContext(c.Request.Context(), *log.Logger())
		l.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		_ = c.Error(err)

		c.AbortWithStatusJSON(status, types.ErrorResponse{Error: "internal server error"})

		return
	}

	resp := types.ErrorResponse{Error: err.Error()}
	if errors.Is(err, service.ErrPasswordRequired) {
		resp.PasswordRequired = true
	}

	c.AbortWithStatusJSON(status, resp)
}

// bindJSON 绑定并校验请求体，失败时已写出 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		l := log.Logger()
		l.Debug().Err(err).Msg("invalid request")
		c.AbortWithStatusJSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})

		return false
	}

	return true
}
