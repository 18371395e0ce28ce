// Package recommend 提供在线推荐入口：快照查询（带实时兜底）、语义搜索、模拟购买与购买历史。
package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/rank"
)

// Source 标记推荐结果的来源。
type Source string

const (
	SourceSnapshot Source = "snapshot" // 来自批量快照
	SourceLive     Source = "live"     // 快照缺失，实时打分
)

// Result 是一次在线推荐的结果。
type Result struct {
	UserID          string
	Name            string
	Source          Source
	Recommendations []core.ScoredProduct
}

// BuyOutcome 描述一次模拟购买的结果。
type BuyOutcome struct {
	Product core.Product
	// AlreadyPurchased 为 true 时购买记录未变化
	AlreadyPurchased bool
}

// Service 在 dataset 之上组合打分器、embedding 与行为日志。
//
// Events 与 Embedder 可以为空：为空时 Buy 不写行为事件，Search 返回 NOT_SUPPORTED。
type Service struct {
	Repo     *dataset.Repo
	Scorer   *rank.Scorer
	Embedder core.Embedder
	Events   core.EventStore

	// TopN 是在线推荐与搜索的返回数，<= 0 时为 core.DefaultTopN
	TopN int

	// CategoryBoost 只作用于用户推荐，搜索不加分
	CategoryBoost float64

	Logger zerolog.Logger

	// 购买记录是读-改-写，需串行
	mu  sync.Mutex
	now func() time.Time
}

// WithClock 替换购买事件的时间源（测试用）。
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) topN() int {
	if s.TopN <= 0 {
		return core.DefaultTopN
	}
	return s.TopN
}

func (s *Service) scorer() *rank.Scorer {
	if s.Scorer == nil {
		return rank.NewScorer()
	}
	return s.Scorer
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// ForUser 优先返回快照中的推荐，快照中没有该用户时实时打分。
// 快照生成之后才购买的商品会从结果中去掉。
func (s *Service) ForUser(ctx context.Context, userID string) (Result, error) {
	snap, err := s.Repo.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	entry, ok := snap.Find(userID)
	if !ok {
		return s.Live(ctx, userID)
	}
	purchases, err := s.Repo.Purchases(ctx)
	if err != nil {
		return Result{}, err
	}
	recs := entry.Recommendations
	if rec, ok := dataset.PurchaseIndex(purchases)[userID]; ok {
		recs = make([]core.ScoredProduct, 0, len(entry.Recommendations))
		for _, sp := range entry.Recommendations {
			if !rec.Has(sp.ID) {
				recs = append(recs, sp)
			}
		}
	}
	return Result{
		UserID:          entry.UserID,
		Name:            entry.Name,
		Source:          SourceSnapshot,
		Recommendations: recs,
	}, nil
}

// Live 忽略快照，直接用当前 embedding 与购买记录打分。
func (s *Service) Live(ctx context.Context, userID string) (Result, error) {
	users, err := s.Repo.Users(ctx)
	if err != nil {
		return Result{}, err
	}
	user, ok := dataset.FindUser(users, userID)
	if !ok {
		return Result{}, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound,
			fmt.Sprintf("recommend: user %q not found", userID))
	}
	if len(user.Embedding) == 0 {
		return Result{}, core.ErrMissingEmbedding("user:" + userID)
	}

	products, err := s.Repo.Products(ctx)
	if err != nil {
		return Result{}, err
	}
	purchases, err := s.Repo.Purchases(ctx)
	if err != nil {
		return Result{}, err
	}

	var bought []string
	if rec, ok := dataset.PurchaseIndex(purchases)[userID]; ok {
		bought = rec.PurchasedProductIDs
	}
	index := dataset.ProductIndex(products)
	past := make([]core.Product, 0, len(bought))
	for _, id := range bought {
		if p, ok := index[id]; ok {
			past = append(past, *p)
		}
	}

	recs, err := s.scorer().Score(ctx, rank.Request{
		UserID:        userID,
		User:          user,
		Query:         user.Embedding,
		Candidates:    products,
		Excluded:      bought,
		CategoryBoost: s.CategoryBoost,
		PastPurchases: past,
		TopN:          s.topN(),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{UserID: user.UserID, Name: user.Name, Source: SourceLive, Recommendations: recs}, nil
}

// Search 把自由文本转成 embedding 后对全目录打分，不排除、不加分。
func (s *Service) Search(ctx context.Context, text string) ([]core.ScoredProduct, error) {
	if text == "" {
		return nil, core.ErrInvalidInput(core.ModuleService, "recommend: empty search query")
	}
	if s.Embedder == nil {
		return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotSupported,
			"recommend: search requires an embedding service")
	}
	query, err := s.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	products, err := s.Repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	return s.scorer().Score(ctx, rank.Request{
		Query:      query,
		Candidates: products,
		TopN:       s.topN(),
	})
}

// Buy 记录一次购买。购买集合只增不减：重复购买返回 AlreadyPurchased 且不写任何数据。
// 新购买同时追加一条 buy 行为事件，供下一轮画像更新使用。
func (s *Service) Buy(ctx context.Context, userID, productID string) (BuyOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Repo.Users(ctx)
	if err != nil {
		return BuyOutcome{}, err
	}
	if _, ok := dataset.FindUser(users, userID); !ok {
		return BuyOutcome{}, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound,
			fmt.Sprintf("recommend: user %q not found", userID))
	}
	products, err := s.Repo.Products(ctx)
	if err != nil {
		return BuyOutcome{}, err
	}
	product, ok := dataset.ProductIndex(products)[productID]
	if !ok {
		return BuyOutcome{}, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound,
			fmt.Sprintf("recommend: product %q not found", productID))
	}
	out := BuyOutcome{Product: *product}

	records, err := s.Repo.Purchases(ctx)
	if err != nil {
		return BuyOutcome{}, err
	}
	rec, ok := dataset.PurchaseIndex(records)[userID]
	if !ok {
		records = append(records, core.PurchaseRecord{UserID: userID})
		rec = &records[len(records)-1]
	}
	if !rec.Add(productID) {
		out.AlreadyPurchased = true
		return out, nil
	}
	if err := s.Repo.SavePurchases(ctx, records); err != nil {
		return BuyOutcome{}, err
	}

	if s.Events != nil {
		ev := core.BehaviorEvent{UserID: userID, ProductID: productID, EventType: core.EventBuy, Timestamp: s.clock()}
		if err := s.Events.Append(ctx, ev); err != nil {
			// 购买已落盘，事件丢失只影响下一轮画像
			s.Logger.Warn().Err(err).Str("user_id", userID).Str("product_id", productID).
				Msg("failed to log buy event")
		}
	}
	s.Logger.Info().Str("user_id", userID).Str("product_id", productID).Msg("purchase recorded")
	return out, nil
}

// History 返回用户已购商品（按购买顺序），目录中已不存在的商品被忽略。
func (s *Service) History(ctx context.Context, userID string) ([]core.Product, error) {
	records, err := s.Repo.Purchases(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := dataset.PurchaseIndex(records)[userID]
	if !ok {
		return nil, nil
	}
	products, err := s.Repo.Products(ctx)
	if err != nil {
		return nil, err
	}
	index := dataset.ProductIndex(products)
	out := make([]core.Product, 0, len(rec.PurchasedProductIDs))
	for _, id := range rec.PurchasedProductIDs {
		if p, ok := index[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}
