package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillLog 把 watermill 日志写入 zerolog. watermill 的 Info 多为订阅、关闭等例行信息，降为 Debug 输出.
type watermillLog struct {
	l zerolog.Logger
}

// NewLogger 返回带 component=mq 的 watermill 日志适配器.
func NewLogger(l *zerolog.Logger) watermill.LoggerAdapter {
	return watermillLog{l: l.With().Str("component", "mq").Logger()}
}

func (w watermillLog) emit(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	if ev == nil {
		return
	}

	ev.Fields(map[string]any(fields)).Msg(msg)
}

func (w watermillLog) Error(msg string, err error, fields watermill.LogFields) {
	w.emit(w.l.Error().Err(err), msg, fields)
}

func (w watermillLog) Info(msg string, fields watermill.LogFields) {
	w.emit(w.l.Debug(), msg, fields)
}

func (w watermillLog) Debug(msg string, fields watermill.LogFields) {
	w.emit(w.l.Debug(), msg, fields)
}

func (w watermillLog) Trace(msg string, fields watermill.LogFields) {
	w.emit(w.l.Trace(), msg, fields)
}

func (w watermillLog) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLog{l: w.l.With().Fields(map[string]any(fields)).Logger()}
}
