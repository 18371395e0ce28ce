// Package recall 生成候选集。当前只有商品目录的线性扫描；
// 需要替换为向量索引时实现 Source 即可，打分链路不变。
package recall

import (
	"context"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/pkg/utils"
)

// Source 表示一个可复用的候选来源（目录扫描 / 向量索引 / ...）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}

// Node 把 Source 适配为 pipeline.Node：忽略上游 items，输出 Source 的候选，
// 并记录 recall_source label。
type Node struct {
	Source Source
}

func (n *Node) Name() string        { return "recall.node" }
func (n *Node) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Node) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if n.Source == nil {
		return nil, nil
	}
	items, err := n.Source.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: n.Source.Name(), Source: "recall"})
	}
	return items, nil
}
