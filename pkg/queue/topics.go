// Package queue 定义消息主题常量，供发布/订阅使用.
package queue

// 主题命名规范：fd.<域>.<动作>，尽量稳定且向后兼容.
// 域：file(单个文件记录)、storage(存储整体)、auth(登录)

const (
	// 文件领域.
	TopicFileUploaded   = "fd.file.uploaded"   // 工件写入且记录插入成功
	TopicFileDownloaded = "fd.file.downloaded" // 一次成功计数的内容传输
	TopicFileDeleted    = "fd.file.deleted"    // 所有者或管理员删除
	TopicFileExpired    = "fd.file.expired"    // 过期或次数耗尽后被清理

	// 存储领域.
	TopicStoragePurged        = "fd.storage.purged"         // 管理员清空全部文件
	TopicStorageQuotaExceeded = "fd.storage.quota_exceeded" // 上传后已用空间超过配额（仅告警）

	// 认证领域.
	TopicAuthLoginFailed = "fd.auth.login_failed"
)

// AllTopics 返回全部已知主题，CLI `mq ls` 使用.
func AllTopics() []string {
	return []string{
		TopicFileUploaded,
		TopicFileDownloaded,
		TopicFileDeleted,
		TopicFileExpired,
		TopicStoragePurged,
		TopicStorageQuotaExceeded,
		TopicAuthLoginFailed,
	}
}
