// Package rank 实现基于 embedding 余弦相似度的推荐打分。
package rank

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/pkg/utils"
	"github.com/rushteam/prodrec/vector"
)

// Features 中的 key
const (
	FeatureSimilarity    = "similarity"     // 查询向量与商品的原始余弦相似度
	FeatureCategoryBoost = "category_boost" // 偏好类目加分
)

// SimilarityNode 计算 base = cos(query, product)，命中偏好类目时 Score = base + CategoryBoost。
// - 写入 features：similarity / category_boost
// - 写入 labels：rank_model
// 无法计算相似度的商品被跳过并记录日志。
type SimilarityNode struct {
	Logger zerolog.Logger
}

func (n *SimilarityNode) Name() string        { return "rank.similarity" }
func (n *SimilarityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *SimilarityNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if rctx == nil || len(items) == 0 {
		return items, nil
	}

	out := items[:0]
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}
		base, err := vector.Cosine(rctx.Query, it.Product.Embedding)
		if err != nil {
			n.Logger.Warn().Err(err).Str("product", it.ID).Msg("candidate skipped: similarity failed")
			continue
		}

		boost := 0.0
		if rctx.IsPreferred(it.Product.Category) {
			boost = rctx.CategoryBoost
		}
		it.Features[FeatureSimilarity] = base
		it.Features[FeatureCategoryBoost] = boost
		it.Score = base + boost
		it.PutLabel("rank_model", utils.Label{Value: "cosine", Source: "rank"})
		out = append(out, it)
	}
	return out, nil
}
