package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/yeisme/filedrop/pkg/internal/model"
	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
	"github.com/yeisme/filedrop/pkg/tracing"
)

// Download 一次已计数的内容传输，调用方负责关闭 Body.
type Download struct {
	Record *model.FileRecord
	Body   io.ReadCloser
}

// ShareService 处理分享链接的元数据查看、口令校验与下载.
type ShareService struct {
	records   RecordStore
	artifacts artifact.Store
	events    *Emitter
	now       Clock
}

// NewShareService 创建分享服务.
func NewShareService(records RecordStore, artifacts artifact.Store, events *Emitter, clock Clock) *ShareService {
	if clock == nil {
		clock = utcNow
	}

	return &ShareService{records: records, artifacts: artifacts, events: events, now: clock}
}

// EvaluateAccess 读取记录并判定访问. 判定为过期时先删除工件再删除记录.
// 返回的 error 只表示存储故障，访问被拒绝通过 AccessDecision 表达.
func (s *ShareService) EvaluateAccess(ctx context.Context, id string, password *string, download bool) (*model.FileRecord, AccessDecision, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, AccessDecision{}, fmt.Errorf("get record %s: %w", id, err)
	}

	decision := Evaluate(rec, s.now(), password, download)

	switch {
	case decision.Reason == ReasonExpired:
		if err := removeRecord(ctx, s.records, s.artifacts, rec); err != nil {
			nlog.Logger().Warn().Err(err).Str("id", id).Msg("remove expired record failed")
		} else {
			s.events.FileExpired(rec, ReasonExpired)
		}
	case decision.Outcome == PasswordRequired:
		metrics.AccessDenied.WithLabelValues("password_required").Inc()
	}

	// 元数据视图不拒绝次数用尽的记录
	if decision.Outcome == Denied && (download || decision.Reason != ReasonExhausted) {
		metrics.AccessDenied.WithLabelValues(decision.Reason.String()).Inc()
	}

	return rec, decision, nil
}

// ShareInfo 元数据视图，口令不参与判定. 次数用尽的记录仍然可见，只是不能再下载.
func (s *ShareService) ShareInfo(ctx context.Context, id string) (*model.FileRecord, error) {
	rec, decision, err := s.EvaluateAccess(ctx, id, nil, false)
	if err != nil {
		return nil, err
	}

	if decision.Reason == ReasonExhausted {
		return rec, nil
	}

	if err := decision.Err(); err != nil {
		return nil, err
	}

	return rec, nil
}

// VerifyPassword 校验口令. 没有口令的记录总是返回 true.
func (s *ShareService) VerifyPassword(ctx context.Context, id, password string) (bool, error) {
	rec, err := s.records.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get record %s: %w", id, err)
	}

	if rec == nil {
		return false, ErrNotFound
	}

	if !rec.HasPassword() {
		return true, nil
	}

	return PasswordMatches(*rec.PasswordHash, password), nil
}

// OpenDownload 判定、确认工件存在、原子计数后打开内容流.
func (s *ShareService) OpenDownload(ctx context.Context, id string, password *string) (*Download, error) {
	ctx, span := tracing.StartSpan(ctx, "share.OpenDownload", tracing.WithShare(id))

	rec, decision, err := s.EvaluateAccess(ctx, id, password, true)
	if err == nil {
		err = decision.Err()
	}

	if err != nil {
		tracing.EndSpan(span, err)

		return nil, err
	}

	dl, err := s.transfer(ctx, rec, "share", true)
	tracing.EndSpan(span, err)

	return dl, err
}

// RecordDownload 原子地为一次成功传输计数. 计数失败时区分记录已消失与次数耗尽.
func (s *ShareService) RecordDownload(ctx context.Context, id string) error {
	return recordDownload(ctx, s.records, id, s.now())
}

func recordDownload(ctx context.Context, records RecordStore, id string, now time.Time) error {
	ok, err := records.IncrementDownload(ctx, id, now)
	if err != nil {
		return fmt.Errorf("increment download %s: %w", id, err)
	}

	if ok {
		return nil
	}

	rec, err := records.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get record %s: %w", id, err)
	}

	if rec == nil {
		return ErrNotFound
	}

	return ErrExhausted
}

// transfer 是分享下载与所有者下载共用的传输路径. 工件缺失的记录视为不存在并删除.
// enforce=false 时次数耗尽不拒绝传输，只是不再计数.
func (s *ShareService) transfer(ctx context.Context, rec *model.FileRecord, via string, enforce bool) (*Download, error) {
	exists, err := s.artifacts.Exists(ctx, rec.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", ErrStorageIO, rec.StorageKey, err)
	}

	if !exists {
		s.dropOrphan(ctx, rec)

		return nil, ErrNotFound
	}

	counted := true

	if err := recordDownload(ctx, s.records, rec.ID, s.now()); err != nil {
		switch {
		case errors.Is(err, ErrExhausted) && !enforce:
			counted = false
		case errors.Is(err, ErrExhausted):
			metrics.AccessDenied.WithLabelValues(ReasonExhausted.String()).Inc()

			return nil, err
		default:
			return nil, err
		}
	}

	body, err := s.artifacts.Open(ctx, rec.StorageKey)
	if errors.Is(err, artifact.ErrNotFound) {
		s.dropOrphan(ctx, rec)

		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageIO, rec.StorageKey, err)
	}

	metrics.Downloads.WithLabelValues(via).Inc()
	s.events.FileDownloaded(rec, via)

	if counted {
		rec.DownloadCount++
	}

	return &Download{Record: rec, Body: body}, nil
}

func (s *ShareService) dropOrphan(ctx context.Context, rec *model.FileRecord) {
	if err := s.records.Delete(ctx, rec.ID); err != nil {
		nlog.Logger().Warn().Err(err).Str("id", rec.ID).Msg("delete orphan record failed")

		return
	}

	nlog.Logger().Info().Str("id", rec.ID).Str("key", rec.StorageKey).Msg("artifact missing, record removed")
}

// removeRecord 先删除工件（不存在视为成功）再删除记录. 工件删除失败时保留记录.
func removeRecord(ctx context.Context, records RecordStore, artifacts artifact.Store, rec *model.FileRecord) error {
	if err := artifacts.Delete(ctx, rec.StorageKey); err != nil && !errors.Is(err, artifact.ErrNotFound) {
		return fmt.Errorf("%w: delete artifact %s: %v", ErrStorageIO, rec.StorageKey, err)
	}

	if err := records.Delete(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete record %s: %w", rec.ID, err)
	}

	return nil
}
