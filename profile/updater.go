package profile

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/metrics"
)

// Updater 周期性地把事件日志折叠进用户画像。
//
// 顺序固定为：读事件 -> 混合 -> 写回用户 -> 删除已读事件。写回失败时日志保持不变，
// 下次运行会重新消费同一批事件。
//
// 只删除本轮读到的前缀，ReadAll 之后追加的事件留给下一轮。同一进程内通过 mu 串行化更新，
// 跨进程需要外部调度保证同一时间只有一个 Updater 在运行。
type Updater struct {
	Events  core.EventStore
	Repo    *dataset.Repo
	Blender Blender
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	mu sync.Mutex
}

// RunReport 是一次运行的摘要。
type RunReport struct {
	Events  int
	Updated int
	Skipped []error
}

// Run 执行一次 update-then-clear。没有事件时不做任何写入。
func (u *Updater) Run(ctx context.Context) (RunReport, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	report, err := u.run(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	u.Metrics.ObserveProfileRun(status, report.Updated, report.Events)
	return report, err
}

func (u *Updater) run(ctx context.Context) (RunReport, error) {
	events, err := u.Events.ReadAll(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("profile: read events: %w", err)
	}
	if len(events) == 0 {
		u.Logger.Info().Msg("no behavior events, profiles unchanged")
		return RunReport{}, nil
	}

	users, err := u.Repo.Users(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("profile: load users: %w", err)
	}
	products, err := u.Repo.Products(ctx)
	if err != nil {
		return RunReport{}, fmt.Errorf("profile: load products: %w", err)
	}

	res, err := u.Blender.Blend(events, users, products)
	if err != nil {
		return RunReport{}, err
	}
	for _, skip := range res.Skipped {
		u.Logger.Warn().Err(skip).Str("code", core.ErrorCode(skip)).Msg("profile update skipped entity")
		u.Metrics.Skip(core.ModuleProfile, core.ErrorCode(skip))
	}

	if res.Updated > 0 {
		if err := u.Repo.SaveUsers(ctx, res.Users); err != nil {
			return RunReport{Skipped: res.Skipped}, fmt.Errorf("profile: save users: %w", err)
		}
	}

	// 只有写回成功后才能删除，否则事件丢失
	if err := u.Events.Trim(ctx, len(events)); err != nil {
		return RunReport{Updated: res.Updated, Skipped: res.Skipped}, fmt.Errorf("profile: clear events: %w", err)
	}

	u.Logger.Info().
		Int("events", len(events)).
		Int("updated", res.Updated).
		Int("skipped", len(res.Skipped)).
		Msg("profiles updated, behavior log cleared")
	return RunReport{Events: len(events), Updated: res.Updated, Skipped: res.Skipped}, nil
}
