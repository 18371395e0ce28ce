package rerank

import (
	"context"
	"sort"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
)

// SortNode 按 Score 降序稳定排序：分数相同的商品保持召回（目录）顺序，输出确定。
type SortNode struct{}

func (n *SortNode) Name() string        { return "rerank.sort" }
func (n *SortNode) Kind() pipeline.Kind { return pipeline.KindReRank }

func (n *SortNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}
