// Package jobs 负责注册业务定时任务（基于 scheduler）. 任务只是按计划调用同步的服务方法.
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/service"
	"github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/scheduler"
)

// RegisterCronJobs 按配置注册：
//   - 过期清理：与 /api/cleanup 调用同一个 Sweeper，进程内并发触发会被合并
//   - 会话清理：删除已过期的会话行
func RegisterCronJobs(sched *scheduler.Scheduler, svc *service.Services, cfg configs.JobsConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if svc == nil {
		return errors.New("services are nil")
	}

	if err := sched.AddCron(JobSweepExpired, cfg.SweepCron, SweepJob(svc.Sweeper), scheduler.WithTimeout(cfg.Timeout)); err != nil {
		return err
	}

	if svc.Auth != nil {
		if err := sched.AddCron(JobSessionCleanup, cfg.SessionCleanupCron, SessionCleanupJob(svc.Auth), scheduler.WithTimeout(cfg.Timeout)); err != nil {
			return err
		}
	}

	return nil
}

// SweepJob 执行一次过期清理.
func SweepJob(sweeper *service.Sweeper) scheduler.JobFunc {
	return func(ctx context.Context) error {
		res, err := sweeper.SweepExpired(ctx)
		if err != nil {
			return err
		}

		log.Logger().Debug().
			Str("job", JobSweepExpired).
			Int("removed", len(res.Removed)).
			Int("errors", res.Errors).
			Msg("sweep job done")

		return nil
	}
}

// SessionCleanupJob 删除过期会话.
func SessionCleanupJob(auth *service.AuthService) scheduler.JobFunc {
	return func(ctx context.Context) error {
		n, err := auth.CleanupSessions(ctx)
		if err != nil {
			return err
		}

		if n > 0 {
			log.Logger().Info().Str("job", JobSessionCleanup).Int64("deleted", n).Msg("expired sessions removed")
		}

		return nil
	}
}
