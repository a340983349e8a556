package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultSessionTTL         = 15 * time.Minute // 滑动过期窗口
	DefaultSessionCookie      = "session"
	DefaultLoginMaxFailures   = 10 // 同一来源地址窗口内允许的失败次数
	DefaultLoginFailureWindow = 15 * time.Minute
)

// SessionConfig 会话 cookie 与登录保护.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"            rule:"min=1m"`
	CookieName    string        `mapstructure:"cookie_name"    rule:"required"`
	Secure        bool          `mapstructure:"secure"`
	MaxFailures   int           `mapstructure:"max_failures"   rule:"min=0"` // 0 关闭限制
	FailureWindow time.Duration `mapstructure:"failure_window" rule:"min=1s"`
	// SkipPaths 不解析会话的路径前缀.
	SkipPaths []string `mapstructure:"skip_paths"`
}

func (c *SessionConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("session.ttl", DefaultSessionTTL)
	v.SetDefault("session.cookie_name", DefaultSessionCookie)
	v.SetDefault("session.secure", false)
	v.SetDefault("session.max_failures", DefaultLoginMaxFailures)
	v.SetDefault("session.failure_window", DefaultLoginFailureWindow)
	v.SetDefault("session.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/health",
		"/swagger",
	})
}
