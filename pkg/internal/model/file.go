// Package model 定义持久化到记录存储的 gorm 模型.
package model

import (
	"time"
)

// FileRecord 一次上传产生的文件记录及其分享策略.
type FileRecord struct {
	// ID 10 位 nanoid，出现在分享链接中
	ID string `gorm:"primaryKey;size:32" json:"id"`
	// StorageKey 工件存储中的文件名，与用户提供的原始名称无关
	StorageKey   string `gorm:"size:512;uniqueIndex" json:"filename"`
	OriginalName string `gorm:"size:512"             json:"originalName"`
	Size         int64  `gorm:"not null"             json:"size"`
	MimeType     string `gorm:"size:255"             json:"mimeType"`
	// PasswordHash 分享口令摘要，nil 表示无口令；永不序列化给客户端
	PasswordHash  *string    `gorm:"size:128"             json:"-"`
	ExpiresAt     *time.Time `gorm:"index"                json:"expiresAt"`
	MaxDownloads  *int       `json:"maxDownloads"`
	DownloadCount int        `gorm:"not null;default:0"   json:"downloadCount"`
	UserID        *uint      `gorm:"index"                json:"userId"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// TableName 固定表名.
func (FileRecord) TableName() string { return "files" }

// HasPassword 是否设置了分享口令.
func (f *FileRecord) HasPassword() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

// Expired 在 now 时刻是否已过期.
func (f *FileRecord) Expired(now time.Time) bool {
	return f.ExpiresAt != nil && now.After(*f.ExpiresAt)
}

// Exhausted 下载次数是否已用尽.
func (f *FileRecord) Exhausted() bool {
	return f.MaxDownloads != nil && f.DownloadCount >= *f.MaxDownloads
}

// OwnedBy 记录是否属于 userID. 无主记录不属于任何人.
func (f *FileRecord) OwnedBy(userID uint) bool {
	return f.UserID != nil && *f.UserID == userID
}
