package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/filedrop/pkg/context"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/internal/types"
	"github.com/yeisme/filedrop/pkg/scheduler"
)

// Cleanup 立即清理过期与次数用尽的文件. GET 无需登录，供外部 cron 调用；POST 需要登录.
//
//	@Summary	清理过期文件
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	types.CleanupResponse
//	@Failure	401	{object}	types.ErrorResponse	"POST 未登录"
//	@Router		/api/cleanup [get]
//	@Router		/api/cleanup [post]
func Cleanup(c *gin.Context) {
	svc := services(c)

	res, err := svc.Sweeper.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	if len(res.Removed) > 0 {
		svc.Stats.Invalidate(c.Request.Context())
	}

	removed := res.Removed
	if removed == nil {
		removed = []string{}
	}

	c.JSON(http.StatusOK, types.CleanupResponse{
		Success: true,
		Removed: removed,
		Count:   len(removed),
		Errors:  res.Errors,
	})
}

// Purge 删除全部文件. confirmCode 必须与配置的确认口令完全一致.
//
//	@Summary	清空全部文件
//	@Tags		管理
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.PurgeRequest	true	"确认口令"
//	@Success	200		{object}	types.PurgeResponse
//	@Failure	400		{object}	types.ErrorResponse	"确认口令错误"
//	@Failure	403		{object}	types.ErrorResponse
//	@Router		/api/admin/purge [post]
func Purge(c *gin.Context) {
	var req types.PurgeRequest
	if !bindJSON(c, &req) {
		return
	}

	svc := services(c)

	res, err := svc.Purger.PurgeAll(c.Request.Context(), req.ConfirmCode)
	if errors.Is(err, service.ErrValidation) {
		c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "invalid confirmation code"})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	svc.Stats.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, types.PurgeResponse{Success: true, Deleted: res.Deleted, Errors: res.Errors})
}

// Jobs 定时任务列表.
//
//	@Summary	定时任务
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	types.JobsResponse
//	@Router		/api/admin/jobs [get]
func Jobs(c *gin.Context) {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		c.JSON(http.StatusOK, types.JobsResponse{Enabled: false, Jobs: []scheduler.JobInfo{}})
		return
	}

	c.JSON(http.StatusOK, types.JobsResponse{Enabled: true, Jobs: sched.GetJobInfos()})
}

// Stats 存储占用、文件与用户数量、主机磁盘.
//
//	@Summary	统计
//	@Tags		统计
//	@Produce	json
//	@Success	200	{object}	service.Summary
//	@Failure	401	{object}	types.ErrorResponse
//	@Router		/api/stats [get]
func Stats(c *gin.Context) {
	sum, err := services(c).Stats.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sum)
}
