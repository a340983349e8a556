package types

import (
	"time"

	"github.com/yeisme/filedrop/pkg/internal/model"
)

// FileView 文件记录的客户端视图.
type FileView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	OriginalName  string     `json:"originalName"`
	Size          int64      `json:"size"`
	MimeType      string     `json:"mimeType"`
	HasPassword   bool       `json:"hasPassword"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	MaxDownloads  *int       `json:"maxDownloads"`
	DownloadCount int        `json:"downloadCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	UserID        *uint      `json:"userId"`
	ShareURL      string     `json:"shareUrl,omitempty"`
}

// NewFileView 构造视图，shareURL 为空时省略.
func NewFileView(rec *model.FileRecord, shareURL string) FileView {
	return FileView{
		ID:            rec.ID,
		Name:          rec.StorageKey,
		OriginalName:  rec.OriginalName,
		Size:          rec.Size,
		MimeType:      rec.MimeType,
		HasPassword:   rec.HasPassword(),
		ExpiresAt:     rec.ExpiresAt,
		MaxDownloads:  rec.MaxDownloads,
		DownloadCount: rec.DownloadCount,
		CreatedAt:     rec.CreatedAt,
		UserID:        rec.UserID,
		ShareURL:      shareURL,
	}
}

// UploadResponse 上传结果.
type UploadResponse struct {
	Success bool `json:"success"`
	FileView

	StoragePercent int `json:"storagePercent"`
}

// FilesResponse 文件列表.
type FilesResponse struct {
	Files []FileView `json:"files"`
}

// ShareInfoResponse 分享元数据，不含口令.
type ShareInfoResponse struct {
	ID            string     `json:"id"`
	OriginalName  string     `json:"originalName"`
	Size          int64      `json:"size"`
	MimeType      string     `json:"mimeType"`
	HasPassword   bool       `json:"hasPassword"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	MaxDownloads  *int       `json:"maxDownloads"`
	DownloadCount int        `json:"downloadCount"`
	Exhausted     bool       `json:"exhausted"` // 次数已用尽，不能再下载
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewShareInfo 构造分享元数据.
func NewShareInfo(rec *model.FileRecord) ShareInfoResponse {
	return ShareInfoResponse{
		ID:            rec.ID,
		OriginalName:  rec.OriginalName,
		Size:          rec.Size,
		MimeType:      rec.MimeType,
		HasPassword:   rec.HasPassword(),
		ExpiresAt:     rec.ExpiresAt,
		MaxDownloads:  rec.MaxDownloads,
		DownloadCount: rec.DownloadCount,
		Exhausted:     rec.Exhausted(),
		CreatedAt:     rec.CreatedAt,
	}
}

// ShareQuery GET /api/share/:id 的查询参数.
type ShareQuery struct {
	Download bool    `form:"download"`
	Password *string `form:"password"`
}

// VerifyRequest 校验分享口令.
type VerifyRequest struct {
	Password string `json:"password"`
}

// VerifyResponse 口令是否正确.
type VerifyResponse struct {
	Valid bool `json:"valid"`
}
