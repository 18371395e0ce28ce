// Package profile 把行为事件折叠进用户的长期 embedding。
//
// 更新规则：new = w*old + (1-w)*mean(被交互商品的 embedding)，w 默认 0.6。
package profile

import (
	"fmt"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/vector"
)

// Result 是一次混合的结果。
type Result struct {
	// Users 是完整的用户集合（输入顺序），未被触及的用户原样返回
	Users []core.User

	// Updated 是 embedding 被更新的用户数
	Updated int

	// Skipped 是被跳过的实体及原因，不会中断本次更新
	Skipped []error
}

// Blender 是画像混合器。
type Blender struct {
	// BlendWeight 是旧 embedding 的保留比例，必须在 (0,1)
	BlendWeight float64

	// Dimension > 0 时严格校验向量维度；为 0 时以用户旧 embedding 的维度为准
	Dimension int
}

// UpdateProfiles 使用 blendWeight 混合，不校验固定维度。
func UpdateProfiles(events []core.BehaviorEvent, users []core.User, products []core.Product, blendWeight float64) (Result, error) {
	return Blender{BlendWeight: blendWeight}.Blend(events, users, products)
}

// Blend 执行一次混合，不修改输入切片。
func (b Blender) Blend(events []core.BehaviorEvent, users []core.User, products []core.Product) (Result, error) {
	w := b.BlendWeight
	if !(w > 0 && w < 1) {
		return Result{}, core.ErrInvalidInput(core.ModuleProfile, fmt.Sprintf("profile: blend weight %v not in (0,1)", w))
	}

	out := make([]core.User, len(users))
	copy(out, users)
	res := Result{Users: out}
	if len(events) == 0 {
		return res, nil
	}

	userIdx := make(map[string]int, len(out))
	for i := range out {
		if _, ok := userIdx[out[i].UserID]; !ok {
			userIdx[out[i].UserID] = i
		}
	}
	productIdx := make(map[string]*core.Product, len(products))
	for i := range products {
		if _, ok := productIdx[products[i].ID]; !ok {
			productIdx[products[i].ID] = &products[i]
		}
	}

	// 按用户分组，保留事件顺序与重复（多次交互权重更高）
	groups := make(map[int][]*core.Product)
	for _, ev := range events {
		ui, ok := userIdx[ev.UserID]
		if !ok {
			res.Skipped = append(res.Skipped, core.ErrUnresolvedReference("user", ev.UserID))
			continue
		}
		p, ok := productIdx[ev.ProductID]
		if !ok {
			res.Skipped = append(res.Skipped, core.ErrUnresolvedReference("product", ev.ProductID))
			continue
		}
		groups[ui] = append(groups[ui], p)
	}

	for i := range out {
		group, ok := groups[i]
		if !ok {
			continue
		}
		u := &out[i]

		dim := b.Dimension
		if dim <= 0 {
			dim = len(u.Embedding)
		}
		if err := vector.Validate(u.Embedding, dim); err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("user %s: %w", u.UserID, err))
			continue
		}

		vecs := make([][]float64, 0, len(group))
		for _, p := range group {
			if err := vector.Validate(p.Embedding, dim); err != nil {
				res.Skipped = append(res.Skipped, fmt.Errorf("product %s: %w", p.ID, err))
				continue
			}
			vecs = append(vecs, p.Embedding)
		}
		if len(vecs) == 0 {
			continue
		}

		mean, err := vector.Mean(vecs)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("user %s: %w", u.UserID, err))
			continue
		}
		blended, err := vector.Blend(u.Embedding, mean, w)
		if err != nil {
			res.Skipped = append(res.Skipped, fmt.Errorf("user %s: %w", u.UserID, err))
			continue
		}
		u.Embedding = blended
		res.Updated++
	}
	return res, nil
}
