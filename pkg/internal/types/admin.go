package types

import "github.com/yeisme/filedrop/pkg/scheduler"

// CleanupResponse 一次过期清理的结果.
type CleanupResponse struct {
	Success bool     `json:"success"`
	Removed []string `json:"removed"`
	Count   int      `json:"count"`
	Errors  int      `json:"errors"`
}

// PurgeRequest 清空全部文件，ConfirmCode 必须等于配置的确认口令.
type PurgeRequest struct {
	ConfirmCode string `json:"confirmCode" rule:"required"`
}

// PurgeResponse 清空结果.
type PurgeResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
	Errors  int  `json:"errors"`
}

// JobsResponse 调度器任务列表. Enabled 为 false 时定时任务未启用.
type JobsResponse struct {
	Enabled bool                `json:"enabled"`
	Jobs    []scheduler.JobInfo `json:"jobs"`
}
