package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/yeisme/filedrop/pkg/internal/model"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/metrics"
)

// QuotaSnapshot 某一时刻的存储占用.
type QuotaSnapshot struct {
	Used    int64 `json:"used"`
	Max     int64 `json:"max"`
	Percent int   `json:"percent"`
}

// Exceeded 已用空间是否超过配额. Max 为 0 表示没有配额.
func (q QuotaSnapshot) Exceeded() bool {
	return q.Max > 0 && q.Used > q.Max
}

// QuotaAccountant 每次调用都重新汇总记录大小，结果仅供参考，不拦截上传.
type QuotaAccountant struct {
	records    RecordStore
	settings   SettingsReader
	defaultMax int64
}

// NewQuotaAccountant 创建配额统计器. settings 为 nil 时总是使用 defaultMax.
func NewQuotaAccountant(records RecordStore, settings SettingsReader, defaultMax int64) *QuotaAccountant {
	return &QuotaAccountant{records: records, settings: settings, defaultMax: defaultMax}
}

// Snapshot 计算当前占用并刷新存储指标.
func (q *QuotaAccountant) Snapshot(ctx context.Context) (QuotaSnapshot, error) {
	used, err := q.records.SumSizes(ctx)
	if err != nil {
		return QuotaSnapshot{}, fmt.Errorf("sum sizes: %w", err)
	}

	maxBytes, err := q.MaxBytes(ctx)
	if err != nil {
		return QuotaSnapshot{}, err
	}

	snap := QuotaSnapshot{Used: used, Max: maxBytes, Percent: Percent(used, maxBytes)}

	metrics.StorageUsedBytes.Set(float64(used))
	metrics.StorageMaxBytes.Set(float64(maxBytes))

	return snap, nil
}

// MaxBytes 读取实例配置的配额，缺失或无法解析时回退到默认值.
func (q *QuotaAccountant) MaxBytes(ctx context.Context) (int64, error) {
	if q.settings == nil {
		return q.defaultMax, nil
	}

	raw, ok, err := q.settings.Get(ctx, model.ConfigMaxStorage)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", model.ConfigMaxStorage, err)
	}

	if !ok {
		return q.defaultMax, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		nlog.Logger().Warn().Str("value", raw).Msg("invalid max_storage setting, using default")

		return q.defaultMax, nil
	}

	return v, nil
}

// Percent round(used/max*100)，max<=0 时为 0.
func Percent(used, maxBytes int64) int {
	if maxBytes <= 0 {
		return 0
	}

	return int(math.Round(float64(used) / float64(maxBytes) * 100))
}
