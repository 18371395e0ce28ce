package filter

import (
	"context"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式筛选候选：表达式为 true 的商品保留，false 的被过滤。
//
//	product.price < 100.0
//	product.category != "Books"
type ExprFilter struct {
	eval *dsl.Eval
}

// NewExprFilter 编译表达式。
func NewExprFilter(expr string) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleRank, core.ErrorCodeInvalidInput, "filter: invalid expression", err)
	}
	return &ExprFilter{eval: e}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回原始表达式。
func (f *ExprFilter) Expr() string { return f.eval.String() }

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	keep, err := f.eval.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return !keep, nil
}
