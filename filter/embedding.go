package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/vector"
)

// EmbeddingFilter 过滤 embedding 缺失、维度不符、含非有限分量或零范数的商品。
// 这些商品被跳过并记录日志，不会以零向量参与打分。
type EmbeddingFilter struct {
	// Dimension 为 0 时以查询向量的维度为准
	Dimension int
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
}

func (f *EmbeddingFilter) Name() string { return "filter.embedding" }

func (f *EmbeddingFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if item.Product == nil {
		f.skip(item.ID, core.ErrMissingEmbedding("product:"+item.ID))
		return true, nil
	}

	dim := f.Dimension
	if dim <= 0 && rctx != nil {
		dim = len(rctx.Query)
	}
	if err := vector.Validate(item.Product.Embedding, dim); err != nil {
		f.skip(item.ID, err)
		return true, nil
	}
	if vector.Norm(item.Product.Embedding) == 0 {
		f.skip(item.ID, core.ErrDegenerateVector())
		return true, nil
	}
	return false, nil
}

func (f *EmbeddingFilter) skip(id string, err error) {
	f.Logger.Warn().Err(err).Str("product", id).Str("code", core.ErrorCode(err)).Msg("candidate skipped: invalid embedding")
	f.Metrics.Skip(core.ModuleRank, core.ErrorCode(err))
}
