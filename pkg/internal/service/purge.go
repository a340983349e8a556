package service

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/yeisme/filedrop/pkg/internal/storage/artifact"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
)

// PurgeResult 全量清空的结果.
type PurgeResult struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// PurgeOrchestrator 删除全部记录与工件. 调用方负责管理员身份检查.
type PurgeOrchestrator struct {
	records   RecordStore
	artifacts artifact.Store
	events    *Emitter
	token     string
}

// NewPurgeOrchestrator 创建清空器，token 是确认口令.
func NewPurgeOrchestrator(records RecordStore, artifacts artifact.Store, events *Emitter, token string) *PurgeOrchestrator {
	return &PurgeOrchestrator{records: records, artifacts: artifacts, events: events, token: token}
}

// PurgeAll 口令必须与配置逐字节相同，否则不做任何修改直接返回 ErrValidation.
// 单条失败只计数，不中断；工件删除失败的记录保留，下次清空会再次处理.
func (p *PurgeOrchestrator) PurgeAll(ctx context.Context, token string) (PurgeResult, error) {
	if p.token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) != 1 {
		return PurgeResult{}, fmt.Errorf("%w: confirmation code mismatch", ErrValidation)
	}

	recs, err := p.records.ListAll(ctx)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("list records: %w", err)
	}

	logger := nlog.Component("purge")

	var res PurgeResult

	for i := range recs {
		if err := removeRecord(ctx, p.records, p.artifacts, &recs[i]); err != nil {
			res.Errors++

			logger.Error().Err(err).Str("id", recs[i].ID).Msg("purge item failed")

			continue
		}

		res.Deleted++
	}

	metrics.PurgeDeleted.Add(float64(res.Deleted))
	p.events.StoragePurged(res)

	logger.Warn().Int("deleted", res.Deleted).Int("errors", res.Errors).Msg("storage purged")

	return res, nil
}
