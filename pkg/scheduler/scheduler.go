// Package scheduler 在 gocron/v2 之上提供按名称管理的定时任务.
//
// 每个任务以单例模式运行：上一次执行尚未结束时，本次触发被跳过并按计划重新调度.
// 执行结果写入 JobInfo 与 job_runs_total / job_duration_seconds 指标.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
)

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error" // 上一次执行失败
)

// JobInfo 任务的运行情况，由 /api/admin/jobs 返回.
type JobInfo struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CronExpr     string        `json:"cronExpr"`
	Timeout      time.Duration `json:"timeout,omitempty"`
	NextRun      time.Time     `json:"nextRun"`
	LastRun      time.Time     `json:"lastRun"`
	LastSuccess  time.Time     `json:"lastSuccess,omitempty"`
	LastDuration time.Duration `json:"lastDuration"`
	Runs         int64         `json:"runs"`
	Failures     int64         `json:"failures"`
	Status       JobStatus     `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// JobFunc 任务函数. 返回的错误记录在 JobInfo 中，不会停止后续调度.
type JobFunc func(ctx context.Context) error

// JobOption 调整单个任务.
type JobOption func(*jobOptions)

type jobOptions struct {
	timeout time.Duration
}

// WithTimeout 限制单次执行时长，超时后任务的 ctx 被取消.
func WithTimeout(d time.Duration) JobOption {
	return func(o *jobOptions) { o.timeout = d }
}

type entry struct {
	job  gocron.Job
	info *JobInfo
}

// Scheduler 按名称管理任务. Stop 会取消所有正在执行任务的 ctx.
type Scheduler struct {
	cron    gocron.Scheduler
	entries map[string]*entry
	mu      sync.RWMutex
	logger  zerolog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler 创建调度器，cron 表达式按 UTC 解释.
func NewScheduler() (*Scheduler, error) {
	cron, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron,
		entries: make(map[string]*entry),
		logger:  log.Component("scheduler"),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// AddCron 以 5 段 cron 表达式注册任务，名称必须唯一.
func (s *Scheduler) AddCron(name, cronExpr string, fn JobFunc, opts ...JobOption) error {
	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	j, err := s.cron.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.execute(name, fn, o.timeout) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRuns(func(_ uuid.UUID, jobName string) { s.refresh(jobName) }),
		),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	nextRun, _ := j.NextRun()

	s.entries[name] = &entry{
		job: j,
		info: &JobInfo{
			ID:        j.ID().String(),
			Name:      name,
			CronExpr:  cronExpr,
			Timeout:   o.timeout,
			NextRun:   nextRun,
			Status:    StatusScheduled,
			CreatedAt: time.Now(),
		},
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Dur("timeout", o.timeout).Msg("job added")

	return nil
}

// execute 运行一次任务并记录结果. panic 被转换为错误.
func (s *Scheduler) execute(name string, fn JobFunc, timeout time.Duration) {
	s.update(name, func(info *JobInfo) { info.Status = StatusRunning })

	ctx := s.ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)

		defer cancel()
	}

	start := time.Now()
	err := safeRun(ctx, name, fn)
	elapsed := time.Since(start)

	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	s.update(name, func(info *JobInfo) {
		info.Runs++
		info.LastDuration = elapsed

		if err != nil {
			info.Failures++
			info.Status = StatusError
			info.Error = err.Error()

			return
		}

		info.Status = StatusScheduled
		info.Error = ""
		info.LastSuccess = start.Add(elapsed)
	})

	if err != nil {
		metrics.JobRuns.WithLabelValues(name, "failure").Inc()
		s.logger.Error().Err(err).Str("job", name).Dur("elapsed", elapsed).Msg("job failed")

		return
	}

	metrics.JobRuns.WithLabelValues(name, "success").Inc()
}

func safeRun(ctx context.Context, name string, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", name, r)
		}
	}()

	return fn(ctx)
}

// RunNow 立即触发一次，不影响原有计划. 执行是异步的.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, exists := s.entries[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s does not exist", name)
	}

	return e.job.RunNow()
}

// RemoveJobByName 移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[name]
	if !exists {
		return fmt.Errorf("job %s does not exist", name)
	}

	if err := s.cron.RemoveJob(e.job.ID()); err != nil {
		return err
	}

	delete(s.entries, name)
	s.logger.Info().Str("job", name).Msg("job removed")

	return nil
}

// GetJobInfoByName 返回任务信息的副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[name]
	if !exists {
		return JobInfo{}, fmt.Errorf("job %s does not exist", name)
	}

	return *e.info, nil
}

// GetJobInfos 按名称排序返回全部任务信息.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, *e.info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.GetJobInfos())).Msg("scheduler starting")
	s.cron.Start()
}

// Stop 取消正在执行任务的 ctx 并等待其退出.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("scheduler stopping")
	s.cancel()

	return s.cron.Shutdown()
}

// refresh 每次执行后同步 gocron 记录的运行时间.
func (s *Scheduler) refresh(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return
	}

	if next, err := e.job.NextRun(); err == nil {
		e.info.NextRun = next
	}

	if last, err := e.job.LastRun(); err == nil {
		e.info.LastRun = last
	}
}

func (s *Scheduler) update(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		fn(e.info)
	}
}
