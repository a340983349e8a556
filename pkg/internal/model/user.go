package model

import "time"

// User 账户. 用户名区分大小写且唯一.
type User struct {
	ID           uint      `gorm:"primaryKey"                 json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null"          json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false"     json:"isAdmin"`
	IsActive     bool      `gorm:"not null;default:true"      json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Session 登录会话，ExpiresAt 随每次成功校验向后滑动.
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    uint      `gorm:"index;not null"     json:"userId"`
	ExpiresAt time.Time `gorm:"index"              json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Session) TableName() string { return "sessions" }

// LoginLog 登录尝试记录，只追加.
type LoginLog struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	UserID    *uint     `gorm:"index"          json:"userId"`
	Username  string    `gorm:"size:64"        json:"username"`
	IPAddress string    `gorm:"size:64"        json:"ipAddress"`
	UserAgent string    `gorm:"size:512"       json:"userAgent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `gorm:"index"          json:"createdAt"`
}

func (LoginLog) TableName() string { return "login_logs" }
