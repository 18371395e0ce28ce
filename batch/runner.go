// Package batch 为全部用户生成推荐快照。
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/rank"
)

// Runner 对每个用户调用一次 Scorer。
//
// 单个用户失败（缺少 embedding、零向量等）只记录日志并从快照中省略，不会中断整批。
// 结果按槽位写回，无论 Workers 多少，输出顺序都与用户输入顺序一致。
type Runner struct {
	Scorer *rank.Scorer

	// TopN <= 0 时使用 core.DefaultBatchTopN
	TopN          int
	CategoryBoost float64

	// Workers 是并发打分的用户数，<= 0 时为 1
	Workers int

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Failure 是一个被省略的用户。
type Failure struct {
	UserID string
	Err    error
}

// Report 是一次批量运行的摘要。
type Report struct {
	RunID     string
	Users     int
	Succeeded int
	Failures  []Failure
	Duration  time.Duration
}

// Run 生成快照。只有 ctx 取消时返回错误。
func (r *Runner) Run(ctx context.Context, users []core.User, products []core.Product, purchases []core.PurchaseRecord) (core.Snapshot, Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.New().String(), Users: len(users)}
	log := r.Logger.With().Str("run_id", report.RunID).Logger()

	scorer := r.Scorer
	if scorer == nil {
		scorer = rank.NewScorer()
	}
	topN := r.TopN
	if topN <= 0 {
		topN = core.DefaultBatchTopN
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	productIdx := dataset.ProductIndex(products)
	purchaseIdx := dataset.PurchaseIndex(purchases)

	results := make([]*core.RecommendationResult, len(users))
	errs := make([]error, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range users {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.scoreUser(gctx, scorer, &users[i], products, productIdx, purchaseIdx[users[i].UserID], topN)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, report, err
	}
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, report, err
	}

	snap := core.Snapshot{Results: make([]core.RecommendationResult, 0, len(users))}
	for i := range users {
		if errs[i] != nil {
			report.Failures = append(report.Failures, Failure{UserID: users[i].UserID, Err: errs[i]})
			log.Warn().Err(errs[i]).Str("user", users[i].UserID).Str("code", core.ErrorCode(errs[i])).Msg("user skipped")
			r.Metrics.Skip("batch", core.ErrorCode(errs[i]))
			continue
		}
		snap.Results = append(snap.Results, *results[i])
	}
	report.Succeeded = len(snap.Results)
	report.Duration = time.Since(start)

	log.Info().
		Int("users", report.Users).
		Int("succeeded", report.Succeeded).
		Int("failed", len(report.Failures)).
		Dur("duration", report.Duration).
		Msg("batch recommendations computed")
	return snap, report, nil
}

func (r *Runner) scoreUser(
	ctx context.Context,
	scorer *rank.Scorer,
	u *core.User,
	products []core.Product,
	productIdx map[string]*core.Product,
	purchase *core.PurchaseRecord,
	topN int,
) (*core.RecommendationResult, error) {
	var (
		excluded []string
		past     []core.Product
	)
	if purchase != nil {
		excluded = purchase.PurchasedProductIDs
		for _, id := range purchase.PurchasedProductIDs {
			if p, ok := productIdx[id]; ok {
				past = append(past, *p)
			}
		}
	}

	if len(u.Embedding) == 0 {
		return nil, core.ErrMissingEmbedding("user:" + u.UserID)
	}
	recs, err := scorer.Score(ctx, rank.Request{
		UserID:        u.UserID,
		User:          u,
		Query:         u.Embedding,
		Candidates:    products,
		Excluded:      excluded,
		CategoryBoost: r.CategoryBoost,
		PastPurchases: past,
		TopN:          topN,
	})
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.UserID, err)
	}
	return &core.RecommendationResult{UserID: u.UserID, Name: u.Name, Recommendations: recs}, nil
}
