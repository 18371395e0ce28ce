package filter

import (
	"context"

	"github.com/rushteam/prodrec/core"
)

// CategoryFilter 过滤指定类目的商品。
type CategoryFilter struct {
	Blocked []string
}

func (f *CategoryFilter) Name() string { return "filter.category" }

func (f *CategoryFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || item.Product == nil {
		return false, nil
	}
	for _, c := range f.Blocked {
		if item.Product.Category == c {
			return true, nil
		}
	}
	return false, nil
}
