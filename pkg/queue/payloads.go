package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// ID 事件 ID（ULID），按时间有序，可用于消费端去重.
	ID string `json:"id"`
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪/关联 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// FileRef 标识一条文件记录.
type FileRef struct {
	ID           string `json:"id"`
	StorageKey   string `json:"storage_key"`
	OriginalName string `json:"original_name,omitempty"`
	Size         int64  `json:"size,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
	OwnerID      *uint  `json:"owner_id,omitempty"`
}

// FileUploadedPayload fd.file.uploaded.
type FileUploadedPayload struct {
	File         FileRef    `json:"file"`
	Checksum     string     `json:"checksum,omitempty"`
	HasPassword  bool       `json:"has_password"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	MaxDownloads *int       `json:"max_downloads,omitempty"`
}

// FileDownloadedPayload fd.file.downloaded.
type FileDownloadedPayload struct {
	File          FileRef `json:"file"`
	DownloadCount int     `json:"download_count"`
	Via           string  `json:"via"` // share 或 owner
}

// FileDeletedPayload fd.file.deleted.
type FileDeletedPayload struct {
	File      FileRef `json:"file"`
	DeletedBy uint    `json:"deleted_by,omitempty"`
}

// FileExpiredPayload fd.file.expired.
type FileExpiredPayload struct {
	File   FileRef `json:"file"`
	Reason string  `json:"reason"` // expired 或 exhausted
}

// StoragePurgedPayload fd.storage.purged.
type StoragePurgedPayload struct {
	Deleted int `json:"deleted"`
	Errors  int `json:"errors"`
}

// QuotaExceededPayload fd.storage.quota_exceeded.
type QuotaExceededPayload struct {
	Used    int64 `json:"used"`
	Max     int64 `json:"max"`
	Percent int   `json:"percent"`
}

// LoginFailedPayload fd.auth.login_failed.
type LoginFailedPayload struct {
	Username  string `json:"username"`
	IPAddress string `json:"ip_address"`
	Reason    string `json:"reason"`
}
