// Package dsl 使用 CEL (Common Expression Language) 实现候选商品的表达式过滤。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/prodrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("product", cel.DynType),
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
			cel.Variable("user", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Eval 是编译后的布尔表达式，可并发复用。
//
// 表达式可访问的变量：
//   - product: id / name / category / description / price
//   - item:    id / score / features / labels
//   - label:   标签名 -> value，如 label.explain
//   - rctx:    user_id / params / preferred
//   - user:    id / name / interests / preferred_categories（语义搜索时字段为空）
//
// 示例：
//   - `product.price < 100.0`
//   - `product.category != "Books" && item.score > 0.5`
//   - `"Electronics" in rctx.preferred`
//   - `user.interests.exists(i, product.description.contains(i))`
type Eval struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。空表达式恒为 true。
func Compile(expr string) (*Eval, error) {
	if expr == "" {
		return &Eval{}, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("dsl: env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("dsl: compile %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("dsl: program %q: %w", expr, err)
	}
	return &Eval{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (e *Eval) String() string { return e.expr }

// Evaluate 对单个候选执行表达式，表达式必须返回 bool。
func (e *Eval) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if e == nil || e.prg == nil {
		return true, nil
	}
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("dsl: eval %q: %w", e.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("dsl: expression %q must return bool, got %T", e.expr, out.Value())
	}
	return result, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	product := map[string]any{}
	itemMap := map[string]any{}
	labelAccessor := map[string]any{}

	if item != nil {
		labels := make(map[string]any, len(item.Labels))
		for k, v := range item.Labels {
			labels[k] = map[string]any{"value": v.Value, "source": v.Source}
			labelAccessor[k] = v.Value
		}
		features := make(map[string]any, len(item.Features))
		for k, v := range item.Features {
			features[k] = v
		}
		itemMap = map[string]any{
			"id":       item.ID,
			"score":    item.Score,
			"features": features,
			"labels":   labels,
		}
		if p := item.Product; p != nil {
			product = map[string]any{
				"id":          p.ID,
				"name":        p.Name,
				"category":    p.Category,
				"description": p.Description,
				"price":       p.Price,
			}
		}
	}

	rctxMap := map[string]any{
		"user_id":   "",
		"params":    map[string]any{},
		"preferred": []string{},
	}
	if rctx != nil {
		rctxMap["user_id"] = rctx.UserID
		if rctx.Params != nil {
			rctxMap["params"] = rctx.Params
		}
		preferred := make([]string, 0, len(rctx.Preferred))
		for c := range rctx.Preferred {
			preferred = append(preferred, c)
		}
		rctxMap["preferred"] = preferred
	}

	userMap := map[string]any{
		"id":                   "",
		"name":                 "",
		"interests":            []string{},
		"preferred_categories": []string{},
	}
	if rctx != nil && rctx.User != nil {
		u := rctx.User
		userMap["id"] = u.UserID
		userMap["name"] = u.Name
		if u.Interests != nil {
			userMap["interests"] = u.Interests
		}
		if u.PreferredCategories != nil {
			userMap["preferred_categories"] = u.PreferredCategories
		}
	}

	return map[string]any{
		"product": product,
		"item":    itemMap,
		"label":   labelAccessor,
		"rctx":    rctxMap,
		"user":    userMap,
	}
}
