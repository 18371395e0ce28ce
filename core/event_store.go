package core

import "context"

// EventStore 是行为事件日志的领域接口（追加 / 全量读取 / 清空）。
//
// 画像更新必须遵循“先更新、后清空”：只有用户 embedding 成功写回后才允许删除事件，
// 否则失败时事件会丢失。更新只删除它读到的那部分（Trim），期间其他进程追加的事件保留到下一轮。
//
// 实现：
//   - event.KVLog（基于 core.Store）
//   - event.SQLiteLog（基于 SQLite）
type EventStore interface {
	// Append 持久化追加一条事件，保持顺序
	Append(ctx context.Context, ev BehaviorEvent) error

	// ReadAll 按追加顺序返回全部事件
	ReadAll(ctx context.Context) ([]BehaviorEvent, error)

	// Clear 原子清空日志
	Clear(ctx context.Context) error

	// Trim 删除最早追加的 n 条事件，n 超过日志长度时等同 Clear，n <= 0 时不做任何事
	Trim(ctx context.Context, n int) error
}
