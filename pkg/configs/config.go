// Package configs 管理 filedrop 的全部配置：服务器、数据库、工件存储、会话、队列等.
// 支持 YAML、JSON、TOML、dotenv 等格式，环境变量以 FILEDROP_ 前缀覆盖，并可启用热重载.
//
// Example:
//
//	if err := configs.InitConfig("./"); err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := configs.GetConfig()
//	fmt.Println(cfg.Server.Port, cfg.Drop.PurgeToken)
//
// Example accessing DB config:
//
//	dsn := configs.GetConfig().DB.GetDSN()
package configs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/filedrop/pkg/rule"
)

// EnvPrefix 环境变量前缀，例如 FILEDROP_SERVER_PORT=9000.
const EnvPrefix = "FILEDROP"

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // 监听地址、调试模式、对外地址
		DB             DBConfig             `mapstructure:"db"`              // 记录存储（关系数据库）
		Log            LogConfig            `mapstructure:"log"`             // 日志
		Artifact       ArtifactConfig       `mapstructure:"artifact"`        // 工件（文件字节）存储
		S3             S3Config             `mapstructure:"s3"`              // artifact.type=s3 时使用
		KV             KVConfig             `mapstructure:"kv"`              // 登录限流、统计缓存
		MQ             MQConfig             `mapstructure:"mq"`              // 生命周期事件
		Events         EventsConfig         `mapstructure:"events"`          // 事件开关
		Session        SessionConfig        `mapstructure:"session"`         // 会话 cookie 与滑动过期
		Drop           DropConfig           `mapstructure:"drop"`            // 上传限制、配额、清空口令
		Jobs           JobsConfig           `mapstructure:"jobs"`            // 可选定时触发
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // Prometheus
		Tracing        TracingConfig        `mapstructure:"tracing"`         // OpenTelemetry
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // HTTP 限流
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // HTTP 熔断
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载时对 globalConfig 的写入.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// 找不到配置文件时只使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(path)
		v.AddConfigPath(filepath.Join(path, "configs"))

		for _, ext := range []string{"yaml", "yml", "json", "toml", "env", "dotenv"} {
			cfg := filepath.Join(path, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)

				break
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return err
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	reloadConfigs(v, cfg.Server.ReloadConfig)

	return nil
}

// Validate 使用 rule 标签校验整个配置树.
func Validate(cfg *AppConfig) error {
	if err := rule.ValidateStruct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var c AppConfig

	c.Server.setDefaults(v)
	c.DB.setDefaults(v)
	c.Log.setDefaults(v)
	c.Artifact.setDefaults(v)
	c.S3.setDefaults(v)
	c.KV.setDefaults(v)
	c.MQ.setDefaults(v)
	c.Events.setDefaults(v)
	c.Session.setDefaults(v)
	c.Drop.setDefaults(v)
	c.Jobs.setDefaults(v)
	c.Metrics.setDefaults(v)
	c.Tracing.setDefaults(v)
	c.RateLimit.setDefaults(v)
	c.CircuitBreaker.setDefaults(v)
}

// Defaults 返回仅由默认值构成的配置，测试与 CLI 离线命令使用.
func Defaults() AppConfig {
	v := viper.New()
	setAllDefaults(v)

	var cfg AppConfig
	_ = v.Unmarshal(&cfg)

	return cfg
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)

			return
		}

		if err := Validate(&cfg); err != nil {
			fmt.Printf("Rejected reloaded config: %v\n", err)

			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	return &globalConfig
}

func GetViper() *viper.Viper {
	return appViper
}
