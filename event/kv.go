package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rushteam/prodrec/core"
)

// KVLog 是基于 core.Store 的事件日志。
//
// 后端实现 core.KeyValueStore（memory / redis）时，每条事件是列表中的一个元素；
// 否则整个日志是 key 下的一个 JSON 数组（file / badger），追加为读-改-写，由进程内互斥锁串行化。
type KVLog struct {
	store core.Store
	key   string
	now   func() time.Time
	mu    sync.Mutex
}

// NewKVLog 创建事件日志。
func NewKVLog(store core.Store, key string) *KVLog {
	return &KVLog{store: store, key: key, now: time.Now}
}

// WithClock 替换时间源（测试用）。
func (l *KVLog) WithClock(now func() time.Time) *KVLog {
	l.now = now
	return l
}

func (l *KVLog) list() (core.KeyValueStore, bool) {
	kv, ok := l.store.(core.KeyValueStore)
	return kv, ok
}

func (l *KVLog) Append(ctx context.Context, ev core.BehaviorEvent) error {
	ev, err := Validate(ev, l.now)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event: encode: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if kv, ok := l.list(); ok {
		if err := kv.RPush(ctx, l.key, data); err != nil {
			return fmt.Errorf("event: append: %w", err)
		}
		return nil
	}

	raw, err := l.readArray(ctx)
	if err != nil {
		return err
	}
	raw = append(raw, data)
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("event: encode log: %w", err)
	}
	if err := l.store.Set(ctx, l.key, buf); err != nil {
		return fmt.Errorf("event: append: %w", err)
	}
	return nil
}

func (l *KVLog) ReadAll(ctx context.Context) ([]core.BehaviorEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var raw []json.RawMessage
	if kv, ok := l.list(); ok {
		items, err := kv.LRange(ctx, l.key, 0, -1)
		if err != nil {
			return nil, fmt.Errorf("event: read: %w", err)
		}
		raw = make([]json.RawMessage, len(items))
		for i, it := range items {
			raw[i] = it
		}
	} else {
		var err error
		if raw, err = l.readArray(ctx); err != nil {
			return nil, err
		}
	}

	events := make([]core.BehaviorEvent, 0, len(raw))
	for i, r := range raw {
		var doc eventDoc
		if err := json.Unmarshal(r, &doc); err != nil {
			return nil, core.WrapDomainError(core.ModuleEvent, core.ErrorCodeInvalidInput,
				fmt.Sprintf("event: decode entry %d", i), err)
		}
		events = append(events, doc.event())
	}
	return events, nil
}

func (l *KVLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.list(); ok {
		if err := l.store.Delete(ctx, l.key); err != nil {
			return fmt.Errorf("event: clear: %w", err)
		}
		return nil
	}
	if err := l.store.Set(ctx, l.key, []byte("[]")); err != nil {
		return fmt.Errorf("event: clear: %w", err)
	}
	return nil
}

// Trim 删除最早的 n 条事件。列表后端用 LTRIM，其后追加的元素不受影响。
func (l *KVLog) Trim(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if kv, ok := l.list(); ok {
		if err := kv.LTrim(ctx, l.key, int64(n), -1); err != nil {
			return fmt.Errorf("event: trim: %w", err)
		}
		return nil
	}

	raw, err := l.readArray(ctx)
	if err != nil {
		return err
	}
	if n > len(raw) {
		n = len(raw)
	}
	buf, err := json.Marshal(append([]json.RawMessage{}, raw[n:]...))
	if err != nil {
		return fmt.Errorf("event: encode log: %w", err)
	}
	if err := l.store.Set(ctx, l.key, buf); err != nil {
		return fmt.Errorf("event: trim: %w", err)
	}
	return nil
}

func (l *KVLog) readArray(ctx context.Context) ([]json.RawMessage, error) {
	data, err := l.store.Get(ctx, l.key)
	if core.IsStoreNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("event: read: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDomainError(core.ModuleEvent, core.ErrorCodeInvalidInput, "event: decode log", err)
	}
	return raw, nil
}

var _ core.EventStore = (*KVLog)(nil)
