package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标配置.
// Endpoint 为空时 /metrics 挂在主服务上，否则单独监听该地址.
type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Namespace      string `mapstructure:"namespace"       rule:"required"`
	Endpoint       string `mapstructure:"endpoint"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"` // Go 运行时与进程指标
	Pprof          bool   `mapstructure:"pprof"`           // 同时暴露 /debug/pprof
	GORM           bool   `mapstructure:"gorm"`            // 注册 gorm prometheus 插件
}

// setDefaults 设置Metrics配置的默认值.
func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "filedrop")
	v.SetDefault("metrics.endpoint", "")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.gorm", true)
}
