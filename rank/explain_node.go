package rank

import (
	"context"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/pkg/utils"
	"github.com/rushteam/prodrec/vector"
)

// 解释文本
const (
	ExplainInterests  = "Matches your interests"
	ExplainCategories = "From your preferred categories"
	ExplainPurchases  = "Similar to things you've bought"
	ExplainDefault    = "Matched your profile"

	// LabelExplain 是解释文本所在的 label key
	LabelExplain = "explain"

	explainSep = " & "
)

// ExplainNode 生成可读解释，信号按固定顺序拼接：
//  1. similarity > Threshold
//  2. 商品类目在偏好类目中
//  3. 与任一已购商品的原始相似度 > Threshold
//
// 第 3 项比较的是未加类目分的商品-已购商品相似度，与第 1 项使用的查询相似度口径不同。
// 没有任何信号时使用默认文本。
type ExplainNode struct {
	Threshold float64
}

func (n *ExplainNode) Name() string        { return "rank.explain" }
func (n *ExplainNode) Kind() pipeline.Kind { return pipeline.KindPostProcess }

func (n *ExplainNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	for _, it := range items {
		if it == nil || it.Product == nil {
			continue
		}

		lbl := utils.Label{}
		add := func(text string) {
			lbl = utils.MergeLabelWith(lbl, utils.Label{Value: text, Source: "explain"}, explainSep)
		}

		if it.Features[FeatureSimilarity] > n.Threshold {
			add(ExplainInterests)
		}
		if rctx.IsPreferred(it.Product.Category) {
			add(ExplainCategories)
		}
		if n.maxPurchaseSimilarity(rctx, it.Product) > n.Threshold {
			add(ExplainPurchases)
		}
		if lbl.Value == "" {
			lbl = utils.Label{Value: ExplainDefault, Source: "explain"}
		}
		if it.Labels == nil {
			it.Labels = make(map[string]utils.Label)
		}
		it.Labels[LabelExplain] = lbl
	}
	return items, nil
}

func (n *ExplainNode) maxPurchaseSimilarity(rctx *core.RecommendContext, p *core.Product) float64 {
	if rctx == nil {
		return -1
	}
	best := -1.0
	for _, past := range rctx.PastPurchases {
		if past == nil {
			continue
		}
		sim, err := vector.Cosine(p.Embedding, past.Embedding)
		if err != nil {
			continue
		}
		if sim > best {
			best = sim
		}
	}
	return best
}
