package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/metrics"
)

// Job 读取目录、用户与购买记录，运行 Runner，并整体替换快照。
// 读写存储失败时本次运行失败并返回错误，旧快照保持不变。
type Job struct {
	Repo    *dataset.Repo
	Runner  *Runner
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Run 执行一次批量任务。
func (j *Job) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	report, err := j.run(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	j.Metrics.ObserveBatch(status, report.Succeeded, len(report.Failures), time.Since(start))
	return report, err
}

func (j *Job) run(ctx context.Context) (Report, error) {
	users, err := j.Repo.Users(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("batch: load users: %w", err)
	}
	products, err := j.Repo.Products(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("batch: load products: %w", err)
	}
	purchases, err := j.Repo.Purchases(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("batch: load purchases: %w", err)
	}

	snap, report, err := j.Runner.Run(ctx, users, products, purchases)
	if err != nil {
		return report, err
	}
	if err := j.Repo.SaveSnapshot(ctx, snap); err != nil {
		return report, fmt.Errorf("batch: save snapshot: %w", err)
	}

	j.Logger.Info().
		Str("run_id", report.RunID).
		Int("results", len(snap.Results)).
		Msg("recommendation snapshot saved")
	return report, nil
}
