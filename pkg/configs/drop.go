package configs

import "github.com/spf13/viper"

const (
	// DefaultPurgeToken 清空全部文件时必须原样提交的确认口令.
	DefaultPurgeToken        = "SUPPRIMER-TOUT"
	DefaultAppDisplayName    = "Solilok Drive"
	DefaultMaxUploadSize     = int64(15) << 30 // 15 GiB
	DefaultMaxStorage        = int64(15) << 30 // 15 GiB
	DefaultShareIDLength     = 10
	DefaultLoginLogLimit     = 100
	DefaultMultipartMemoryMB = 32
)

// DropConfig 上传、分享与配额相关的实例级设置.
// 实例名称与最大存储量以 setup 写入数据库的值为准，这里只是缺省值.
type DropConfig struct {
	AppName           string `mapstructure:"app_name"            rule:"required"`
	MaxUploadSize     int64  `mapstructure:"max_upload_size"     rule:"min=1"`
	DefaultMaxStorage int64  `mapstructure:"default_max_storage" rule:"min=0"`
	PurgeToken        string `mapstructure:"purge_token"         rule:"required"`
	ShareIDLength     int    `mapstructure:"share_id_length"     rule:"min=6,max=32"`
	LoginLogLimit     int    `mapstructure:"login_log_limit"     rule:"min=1,max=10000"`
	MultipartMemoryMB int64  `mapstructure:"multipart_memory_mb" rule:"min=1"`
}

func (c *DropConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("drop.app_name", DefaultAppDisplayName)
	v.SetDefault("drop.max_upload_size", DefaultMaxUploadSize)
	v.SetDefault("drop.default_max_storage", DefaultMaxStorage)
	v.SetDefault("drop.purge_token", DefaultPurgeToken)
	v.SetDefault("drop.share_id_length", DefaultShareIDLength)
	v.SetDefault("drop.login_log_limit", DefaultLoginLogLimit)
	v.SetDefault("drop.multipart_memory_mb", DefaultMultipartMemoryMB)
}
