package rerank

import (
	"context"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
)

// TopNNode 是一个 Top-N 截断节点，在排序之后截取前 N 个商品。
//
//	&rerank.SortNode{},        // 排序
//	&rerank.Diversity{...},    // 类目打散（可选）
//	&rerank.TopNNode{N: 5},    // 截取 Top 5
type TopNNode struct {
	// N 要保留的商品数量
	// 如果 N <= 0，则返回所有商品（不截断）
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
