package service

import (
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/yeisme/filedrop/pkg/configs"
	"github.com/yeisme/filedrop/pkg/internal/model"
	nlog "github.com/yeisme/filedrop/pkg/log"
	"github.com/yeisme/filedrop/pkg/queue"
)

// Emitter 按 events 配置发布生命周期事件. 发布失败只记日志，不影响业务结果.
// nil 的 Emitter 或未配置 Publisher 时所有方法都是空操作.
type Emitter struct {
	pub message.Publisher
	cfg configs.EventsConfig
}

// NewEmitter 创建事件发布器.
func NewEmitter(pub message.Publisher, cfg configs.EventsConfig) *Emitter {
	return &Emitter{pub: pub, cfg: cfg}
}

func (e *Emitter) on(flag bool) bool {
	return e != nil && e.pub != nil && e.cfg.Enabled && flag
}

func publish[T any](e *Emitter, topic string, payload T) {
	err := queue.Publish(e.pub, topic, payload, queue.WithProducer(configs.AppName))
	if err != nil {
		nlog.Logger().Warn().Err(err).Str("topic", topic).Msg("publish event failed")
	}
}

func fileRef(rec *model.FileRecord) queue.FileRef {
	return queue.FileRef{
		ID:           rec.ID,
		StorageKey:   rec.StorageKey,
		OriginalName: rec.OriginalName,
		Size:         rec.Size,
		MimeType:     rec.MimeType,
		OwnerID:      rec.UserID,
	}
}

func (e *Emitter) FileUploaded(rec *model.FileRecord, checksum string) {
	if !e.on(e.cfg.File.Uploaded) {
		return
	}

	publish(e, queue.TopicFileUploaded, queue.FileUploadedPayload{
		File:         fileRef(rec),
		Checksum:     checksum,
		HasPassword:  rec.HasPassword(),
		ExpiresAt:    rec.ExpiresAt,
		MaxDownloads: rec.MaxDownloads,
	})
}

func (e *Emitter) FileDownloaded(rec *model.FileRecord, via string) {
	if !e.on(e.cfg.File.Downloaded) {
		return
	}

	publish(e, queue.TopicFileDownloaded, queue.FileDownloadedPayload{
		File:          fileRef(rec),
		DownloadCount: rec.DownloadCount + 1,
		Via:           via,
	})
}

func (e *Emitter) FileDeleted(rec *model.FileRecord, by uint) {
	if !e.on(e.cfg.File.Deleted) {
		return
	}

	publish(e, queue.TopicFileDeleted, queue.FileDeletedPayload{File: fileRef(rec), DeletedBy: by})
}

func (e *Emitter) FileExpired(rec *model.FileRecord, reason Reason) {
	if !e.on(e.cfg.File.Expired) {
		return
	}

	publish(e, queue.TopicFileExpired, queue.FileExpiredPayload{File: fileRef(rec), Reason: reason.String()})
}

func (e *Emitter) StoragePurged(res PurgeResult) {
	if !e.on(e.cfg.Storage.Purged) {
		return
	}

	publish(e, queue.TopicStoragePurged, queue.StoragePurgedPayload{Deleted: res.Deleted, Errors: res.Errors})
}

func (e *Emitter) QuotaExceeded(s QuotaSnapshot) {
	if !e.on(e.cfg.Storage.QuotaExceeded) {
		return
	}

	publish(e, queue.TopicStorageQuotaExceeded, queue.QuotaExceededPayload{Used: s.Used, Max: s.Max, Percent: s.Percent})
}

func (e *Emitter) LoginFailed(username, ip, reason string) {
	if !e.on(e.cfg.Auth.LoginFailed) {
		return
	}

	publish(e, queue.TopicAuthLoginFailed, queue.LoginFailedPayload{Username: username, IPAddress: ip, Reason: reason})
}
