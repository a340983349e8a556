package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
	"github.com/yeisme/filedrop/pkg/tracing"
)

// SweepResult 一次清理的结果. Errors 只统计工件删除失败，对应的记录仍然被删除.
type SweepResult struct {
	Removed  []string      `json:"removed"`
	Errors   int           `json:"errors"`
	Duration time.Duration `json:"duration"`
}

// Sweeper 删除已过期或下载次数耗尽的记录及其工件.
type Sweeper struct {
	records   RecordStore
	artifacts artifact.Store
	events    *Emitter
	now       Clock
	group     singleflight.Group
}

// NewSweeper 创建清理器.
func NewSweeper(records RecordStore, artifacts artifact.Store, events *Emitter, clock Clock) *Sweeper {
	if clock == nil {
		clock = utcNow
	}

	return &Sweeper{records: records, artifacts: artifacts, events: events, now: clock}
}

const sweepKey = "sweep"

// SweepExpired 同步执行一次清理. 进程内并发调用合并为一次执行，共享同一结果.
func (s *Sweeper) SweepExpired(ctx context.Context) (SweepResult, error) {
	v, err, _ := s.group.Do(sweepKey, func() (any, error) {
		return s.sweep(ctx)
	})
	if err != nil {
		return SweepResult{}, err
	}

	return v.(SweepResult), nil
}

func (s *Sweeper) sweep(ctx context.Context) (res SweepResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "sweeper.SweepExpired")
	defer func() { tracing.EndSpan(span, err) }()

	logger := nlog.Component("sweeper")
	start := time.Now()
	now := s.now()

	recs, err := s.records.ListSweepable(ctx, now)
	if err != nil {
		return SweepResult{}, fmt.Errorf("list sweepable: %w", err)
	}

	res.Removed = make([]string, 0, len(recs))

	for i := range recs {
		rec := &recs[i]

		if err := s.artifacts.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, artifact.ErrNotFound) {
			res.Errors++

			logger.Error().Err(err).Str("id", rec.ID).Str("key", rec.StorageKey).Msg("delete artifact failed")
		}

		if err := s.records.Delete(ctx, rec.ID); err != nil {
			res.Errors++

			logger.Error().Err(err).Str("id", rec.ID).Msg("delete record failed")

			continue
		}

		res.Removed = append(res.Removed, rec.ID)
		s.events.FileExpired(rec, sweepReason(rec, now))
	}

	res.Duration = time.Since(start)

	metrics.SweepRuns.Inc()
	metrics.SweepRemoved.Add(float64(len(res.Removed)))
	metrics.SweepErrors.Add(float64(res.Errors))
	metrics.SweepDuration.Observe(res.Duration.Seconds())

	if len(res.Removed) > 0 || res.Errors > 0 {
		logger.Info().
			Int("removed", len(res.Removed)).
			Int("errors", res.Errors).
			Dur("duration", res.Duration).
			Msg("sweep finished")
	}

	return res, nil
}

func sweepReason(rec *model.FileRecord, now time.Time) Reason {
	if rec.Expired(now) {
		return ReasonExpired
	}

	return ReasonExhausted
}
