// Package event 实现行为事件日志 core.EventStore。
package event

import (
	"time"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pkg/conv"
)

// Validate 检查事件字段；时间戳为零值时填入 now（UTC）。
func Validate(ev core.BehaviorEvent, now func() time.Time) (core.BehaviorEvent, error) {
	if ev.UserID == "" {
		return ev, core.ErrInvalidInput(core.ModuleEvent, "event: empty user_id")
	}
	if ev.ProductID == "" {
		return ev, core.ErrInvalidInput(core.ModuleEvent, "event: empty product_id")
	}
	if !ev.EventType.Valid() {
		return ev, core.ErrInvalidInput(core.ModuleEvent, "event: unknown event_type "+string(ev.EventType))
	}
	if ev.Timestamp.IsZero() {
		if now == nil {
			now = time.Now
		}
		ev.Timestamp = now()
	}
	ev.Timestamp = ev.Timestamp.UTC()
	return ev, nil
}

// eventDoc 兼容原始日志文件中的整数 id 与不带时区的时间戳。
type eventDoc struct {
	UserID    conv.FlexString `json:"user_id"`
	ProductID conv.FlexString `json:"product_id"`
	EventType core.EventType  `json:"event_type"`
	Timestamp conv.FlexTime   `json:"timestamp"`
}

func (d eventDoc) event() core.BehaviorEvent {
	return core.BehaviorEvent{
		UserID:    string(d.UserID),
		ProductID: string(d.ProductID),
		EventType: d.EventType,
		Timestamp: d.Timestamp.Time,
	}
}
