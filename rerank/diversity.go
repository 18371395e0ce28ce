package rerank

import (
	"context"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
)

// Diversity 是类目打散 ReRank：每个类目最多保留 MaxPerCategory 个商品（保持输入顺序）。
// 类目来源优先级：
// - item.Product.Category
// - meta["category"] (string)
type Diversity struct {
	MaxPerCategory int // 默认 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.MaxPerCategory
	if limit <= 0 {
		limit = 1
	}

	seen := make(map[string]int, 16)
	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}

		cate := ""
		if it.Product != nil {
			cate = it.Product.Category
		}
		if cate == "" && it.Meta != nil {
			if s, ok := it.Meta["category"].(string); ok {
				cate = s
			}
		}

		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= limit {
			continue
		}
		seen[cate]++
		out = append(out, it)
	}
	return out, nil
}
