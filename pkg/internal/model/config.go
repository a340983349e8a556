package model

// ConfigEntry 实例级键值设置，由首次 setup 写入.
type ConfigEntry struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"type:text"`
}

func (ConfigEntry) TableName() string { return "config" }

// 已知的设置键.
const (
	ConfigAppName        = "app_name"
	ConfigMaxStorage     = "max_storage"
	ConfigSetupCompleted = "setup_completed"
)

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{
		&FileRecord{},
		&User{},
		&Session{},
		&LoginLog{},
		&ConfigEntry{},
	}
}
