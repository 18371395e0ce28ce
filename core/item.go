package core

import "github.com/rushteam/prodrec/pkg/utils"

// Item 是打分链路中的统一承载结构：商品、特征、分数、标签。
// Labels 用于解释（explanation）；Score 用于排序决策。
type Item struct {
	ID       string
	Score    float64
	Product  *Product
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// NewProductItem 创建承载商品的 Item。
func NewProductItem(p *Product) *Item {
	it := NewItem(p.ID)
	it.Product = p
	it.Meta["category"] = p.Category
	it.Meta["price"] = p.Price
	return it
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Label 读取 Label 的值，不存在时返回空串。
func (it *Item) Label(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}
