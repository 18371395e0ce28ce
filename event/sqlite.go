package event

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/rushteam/prodrec/core"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS behavior_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	product_id TEXT NOT NULL,
	event_type TEXT NOT NULL,
	ts TEXT NOT NULL
)`

// SQLiteLog 是基于 SQLite 的事件日志，自增主键保证追加顺序。
type SQLiteLog struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteLog 打开（必要时创建）dsn 指向的数据库与 behavior_events 表。
func OpenSQLiteLog(ctx context.Context, dsn string) (*SQLiteLog, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	// modernc.org/sqlite 的 pragma 需要以 _pragma= 作为前缀
	db, err := sql.Open("sqlite", dsn+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}
	// 单连接：追加与清空天然串行
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to create behavior_events table")
	}
	return &SQLiteLog{db: db, now: time.Now}, nil
}

// WithClock 替换时间源（测试用）。
func (l *SQLiteLog) WithClock(now func() time.Time) *SQLiteLog {
	l.now = now
	return l
}

func (l *SQLiteLog) Append(ctx context.Context, ev core.BehaviorEvent) error {
	ev, err := Validate(ev, l.now)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx,
		"INSERT INTO behavior_events (user_id, product_id, event_type, ts) VALUES (?, ?, ?, ?)",
		ev.UserID, ev.ProductID, string(ev.EventType), ev.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrap(err, "failed to append behavior event")
	}
	return nil
}

func (l *SQLiteLog) ReadAll(ctx context.Context) ([]core.BehaviorEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT user_id, product_id, event_type, ts FROM behavior_events ORDER BY id ASC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list behavior events")
	}
	defer rows.Close()

	events := []core.BehaviorEvent{}
	for rows.Next() {
		var (
			ev        core.BehaviorEvent
			eventType string
			ts        string
		)
		if err := rows.Scan(&ev.UserID, &ev.ProductID, &eventType, &ts); err != nil {
			return nil, errors.Wrap(err, "failed to scan behavior event")
		}
		ev.EventType = core.EventType(eventType)
		if ev.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, errors.Wrapf(err, "invalid timestamp %q", ts)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate behavior events")
	}
	return events, nil
}

func (l *SQLiteLog) Clear(ctx context.Context) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin clear")
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM behavior_events"); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "failed to clear behavior events")
	}
	return errors.Wrap(tx.Commit(), "failed to commit clear")
}

// Trim 按自增主键删除最早的 n 条事件。
func (l *SQLiteLog) Trim(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	_, err := l.db.ExecContext(ctx,
		"DELETE FROM behavior_events WHERE id IN (SELECT id FROM behavior_events ORDER BY id ASC LIMIT ?)", n)
	return errors.Wrap(err, "failed to trim behavior events")
}

func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

var _ core.EventStore = (*SQLiteLog)(nil)
