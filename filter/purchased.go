package filter

import (
	"context"

	"github.com/rushteam/prodrec/core"
)

// PurchasedFilter 过滤 rctx.Excluded 中的商品（通常是用户已购商品）。
type PurchasedFilter struct{}

func (f *PurchasedFilter) Name() string { return "filter.purchased" }

func (f *PurchasedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	return rctx.IsExcluded(item.ID), nil
}
