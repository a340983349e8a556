package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/filedrop/pkg/cache"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	"github.com/yeisme/filedrop/pkg/internal/storage/db"
	"github.com/yeisme/filedrop/pkg/internal/storage/kv"
	nlog "github.com/yeisme/filedrop/pkg/log"
)

// Summary 仪表盘统计.
type Summary struct {
	TotalStorage   int64 `json:"totalStorage"`
	MaxStorage     int64 `json:"maxStorage"`
	StoragePercent int   `json:"storagePercent"`
	FilesCount     int64 `json:"filesCount"`
	UsersCount     int64 `json:"usersCount"`
	TotalDownloads int64 `json:"totalDownloads"`

	// 主机磁盘，仅本地工件存储提供
	DiskTotal     uint64 `json:"vpsTotal"`
	DiskUsed      uint64 `json:"vpsUsed"`
	DiskAvailable uint64 `json:"vpsAvailable"`
	DiskPercent   int    `json:"vpsPercent"`
}

const (
	statsCacheKey = "summary"
	statsCacheTTL = 5 * time.Second
)

// StatsService 汇总配额、记录数、用户数与磁盘占用. 结果在 KV 中缓存几秒.
type StatsService struct {
	quota     *QuotaAccountant
	records   RecordStore
	users     *db.UserStore
	artifacts artifact.Store
	cache     *cache.Cache
}

// NewStatsService 创建统计服务. store 为 nil 时不缓存.
func NewStatsService(quota *QuotaAccountant, records RecordStore, users *db.UserStore, artifacts artifact.Store, store kv.Store) *StatsService {
	s := &StatsService{quota: quota, records: records, users: users, artifacts: artifacts}
	if store != nil {
		s.cache = cache.New(store, "stats")
	}

	return s
}

// Summary 返回统计结果，缓存命中时不访问记录存储.
func (s *StatsService) Summary(ctx context.Context) (Summary, error) {
	if s.cache == nil {
		return s.load(ctx)
	}

	return cache.GetOrSet(ctx, s.cache, statsCacheKey, func() (Summary, error) {
		return s.load(ctx)
	}, statsCacheTTL)
}

// Invalidate 丢弃缓存的统计结果.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, statsCacheKey); err != nil && !errors.Is(err, kv.ErrNotFound) {
		nlog.Logger().Warn().Err(err).Msg("invalidate stats cache failed")
	}
}

func (s *StatsService) load(ctx context.Context) (Summary, error) {
	snap, err := s.quota.Snapshot(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{TotalStorage: snap.Used, MaxStorage: snap.Max, StoragePercent: snap.Percent}

	if out.FilesCount, err = s.records.Count(ctx); err != nil {
		return Summary{}, fmt.Errorf("count files: %w", err)
	}

	if out.TotalDownloads, err = s.records.SumDownloads(ctx); err != nil {
		return Summary{}, fmt.Errorf("sum downloads: %w", err)
	}

	if s.users != nil {
		if out.UsersCount, err = s.users.Count(ctx); err != nil {
			return Summary{}, fmt.Errorf("count users: %w", err)
		}
	}

	if r, ok := s.artifacts.(artifact.UsageReporter); ok {
		usage, err := r.Usage()
		if err != nil {
			nlog.Logger().Debug().Err(err).Msg("disk usage unavailable")
		} else {
			out.DiskTotal = usage.Total
			out.DiskUsed = usage.Used
			out.DiskAvailable = usage.Available
			out.DiskPercent = usage.Percent
		}
	}

	return out, nil
}
