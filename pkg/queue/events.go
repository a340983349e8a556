package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

// Publish 构造信封并发布到 topic.
func Publish[T any](pub message.Publisher, topic string, payload T, opts ...HeaderOption) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// PublishFileUploaded 发布 fd.file.uploaded 事件.
func PublishFileUploaded(pub message.Publisher, payload FileUploadedPayload, opts ...HeaderOption) error {
	return Publish(pub, TopicFileUploaded, payload, opts...)
}

// PublishFileExpired 发布 fd.file.expired 事件，清理器对每条被删除的记录调用一次.
func PublishFileExpired(pub message.Publisher, payload FileExpiredPayload, opts ...HeaderOption) error {
	return Publish(pub, TopicFileExpired, payload, opts...)
}

// ParseFileUploaded 将 Watermill 消息解析为强类型信封.
func ParseFileUploaded(msg *message.Message) (Message[FileUploadedPayload], error) {
	return ParseWatermillMessage[FileUploadedPayload](msg)
}

// ParseFileExpired 将 Watermill 消息解析为强类型信封.
func ParseFileExpired(msg *message.Message) (Message[FileExpiredPayload], error) {
	return ParseWatermillMessage[FileExpiredPayload](msg)
}
