package configs

import "github.com/spf13/viper"

// EventsConfig 控制生命周期事件的发布（全局与分主题）。
type EventsConfig struct {
	Enabled bool                `mapstructure:"enabled"` // 总开关
	File    FileEventsConfig    `mapstructure:"file"`
	Storage StorageEventsConfig `mapstructure:"storage"`
	Auth    AuthEventsConfig    `mapstructure:"auth"`
}

// FileEventsConfig 文件记录相关事件.
type FileEventsConfig struct {
	Uploaded   bool `mapstructure:"uploaded"`
	Downloaded bool `mapstructure:"downloaded"`
	Deleted    bool `mapstructure:"deleted"`
	Expired    bool `mapstructure:"expired"`
}

// StorageEventsConfig 存储整体相关事件.
type StorageEventsConfig struct {
	Purged        bool `mapstructure:"purged"`
	QuotaExceeded bool `mapstructure:"quota_exceeded"`
}

// AuthEventsConfig 登录事件.
type AuthEventsConfig struct {
	LoginFailed bool `mapstructure:"login_failed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.file.uploaded", true)
	v.SetDefault("events.file.deleted", true)
	v.SetDefault("events.file.expired", true)
	// 下载事件量可能很大，默认关闭
	v.SetDefault("events.file.downloaded", false)

	v.SetDefault("events.storage.purged", true)
	v.SetDefault("events.storage.quota_exceeded", true)

	v.SetDefault("events.auth.login_failed", false)
}
