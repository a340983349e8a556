package configs

import (
	"time"

	"github.com/spf13/viper"
)

// JobsConfig 可选的进程内定时触发. 关闭时清理只能通过 /api/cleanup 或 CLI 手动触发.
type JobsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	SweepCron          string `mapstructure:"sweep_cron"           rule:"required"`
	SessionCleanupCron string `mapstructure:"session_cleanup_cron" rule:"required"`
	// Timeout 单次执行的上限，0 表示不限制
	Timeout time.Duration `mapstructure:"timeout" rule:"min=0"`
}

func (c *JobsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("jobs.enabled", false)
	v.SetDefault("jobs.sweep_cron", "*/10 * * * *")
	v.SetDefault("jobs.session_cleanup_cron", "17 * * * *")
	v.SetDefault("jobs.timeout", 5*time.Minute)
}
