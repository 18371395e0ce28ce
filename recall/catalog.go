package recall

import (
	"context"

	"github.com/rushteam/prodrec/core"
)

// Catalog 是商品目录的全量线性扫描召回。候选保持目录顺序（稳定排序的 tie-break 依赖它）；
// 重复 ID 以首次出现为准。
type Catalog struct {
	Products []core.Product
}

func (c *Catalog) Name() string { return "recall.catalog" }

func (c *Catalog) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items := make([]*core.Item, 0, len(c.Products))
	seen := make(map[string]struct{}, len(c.Products))
	for i := range c.Products {
		p := &c.Products[i]
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		items = append(items, core.NewProductItem(p))
	}
	return items, nil
}

var _ Source = (*Catalog)(nil)
