package rank

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/filter"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/recall"
	"github.com/rushteam/prodrec/rerank"
	"github.com/rushteam/prodrec/vector"
)

// Request 是一次打分请求。
type Request struct {
	UserID string

	// User 非空时暴露给表达式过滤器；PreferredCategories 为空时取其偏好类目
	User *core.User

	// Query 是查询向量（用户 embedding 或搜索 query embedding）
	Query []float64

	// Candidates 是候选商品（目录顺序）；Source 非空时忽略
	Candidates []core.Product
	Source     recall.Source

	// Excluded 中的商品不会出现在结果中
	Excluded []string

	// PreferredCategories 命中时加 CategoryBoost
	PreferredCategories []string
	CategoryBoost       float64

	// PastPurchases 用于 "Similar to things you've bought" 解释信号
	PastPurchases []core.Product

	// TopN <= 0 时使用 core.DefaultTopN
	TopN int

	// Params 透传给表达式过滤器（rctx.params）
	Params map[string]any
}

// Scorer 是推荐打分器。一个 Scorer 服务批量快照、在线推荐与语义搜索，
// 三者只在 TopN / CategoryBoost 上不同。
//
// 链路：recall.Catalog -> filter(已购/embedding/扩展) -> rank.similarity -> rank.explain
// -> rerank.sort -> rerank 扩展 -> rerank.topn
//
// 保证：结果数 <= TopN，分数非递增，不含排除商品；相同输入输出相同（同分按目录顺序）。
type Scorer struct {
	// RelevanceThreshold 是解释信号的阈值（严格大于）
	RelevanceThreshold float64

	// Dimension > 0 时严格校验向量维度
	Dimension int

	// Filters 是内置过滤之后追加的过滤节点（来自 pipeline 配置）
	Filters []pipeline.Node

	// ReRanks 是排序之后、TopN 截断之前的重排节点（来自 pipeline 配置）
	ReRanks []pipeline.Node

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// NewScorer 返回使用默认阈值的 Scorer。
func NewScorer() *Scorer {
	return &Scorer{RelevanceThreshold: core.DefaultRelevanceThreshold}
}

// WithPipeline 按 Kind 把配置出的节点挂到过滤或重排位置。
func (s *Scorer) WithPipeline(nodes []pipeline.Node) (*Scorer, error) {
	for _, n := range nodes {
		switch n.Kind() {
		case pipeline.KindFilter:
			s.Filters = append(s.Filters, n)
		case pipeline.KindReRank:
			s.ReRanks = append(s.ReRanks, n)
		default:
			return nil, core.ErrInvalidInput(core.ModuleRank,
				fmt.Sprintf("rank: node %s of kind %s cannot extend the scorer", n.Name(), n.Kind()))
		}
	}
	return s, nil
}

// Score 对候选打分并返回排序后的 TopN。查询向量缺失、维度不符或为零向量时返回错误。
func (s *Scorer) Score(ctx context.Context, req Request) ([]core.ScoredProduct, error) {
	if err := vector.Validate(req.Query, s.Dimension); err != nil {
		return nil, fmt.Errorf("rank: query vector: %w", err)
	}
	if vector.Norm(req.Query) == 0 {
		return nil, fmt.Errorf("rank: query vector: %w", core.ErrDegenerateVector())
	}

	topN := req.TopN
	if topN <= 0 {
		topN = core.DefaultTopN
	}

	past := make([]*core.Product, len(req.PastPurchases))
	for i := range req.PastPurchases {
		past[i] = &req.PastPurchases[i]
	}
	preferred := core.ToSet(req.PreferredCategories)
	if len(preferred) == 0 && req.User != nil {
		preferred = req.User.PreferredSet()
	}
	rctx := &core.RecommendContext{
		UserID:        req.UserID,
		User:          req.User,
		Query:         req.Query,
		Excluded:      core.ToSet(req.Excluded),
		Preferred:     preferred,
		PastPurchases: past,
		CategoryBoost: req.CategoryBoost,
		Params:        req.Params,
	}

	source := req.Source
	if source == nil {
		source = &recall.Catalog{Products: req.Candidates}
	}

	nodes := make([]pipeline.Node, 0, 8+len(s.Filters)+len(s.ReRanks))
	nodes = append(nodes,
		&recall.Node{Source: source},
		&filter.FilterNode{
			Filters: []filter.Filter{
				&filter.PurchasedFilter{},
				&filter.EmbeddingFilter{Dimension: len(req.Query), Logger: s.Logger, Metrics: s.Metrics},
			},
			Logger: s.Logger,
		},
	)
	nodes = append(nodes, s.Filters...)
	nodes = append(nodes,
		&SimilarityNode{Logger: s.Logger},
		&ExplainNode{Threshold: s.RelevanceThreshold},
		&rerank.SortNode{},
	)
	nodes = append(nodes, s.ReRanks...)
	nodes = append(nodes, &rerank.TopNNode{N: topN})

	p := &pipeline.Pipeline{Nodes: nodes}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]core.ScoredProduct, 0, len(items))
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}
		out = append(out, core.NewScoredProduct(it.Product, it.Score, it.Label(LabelExplain)))
	}
	return out, nil
}
