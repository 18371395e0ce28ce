package core

// RecommendContext 承载一次打分请求的用户/查询信息，贯穿整个 Pipeline 透传。
// 每次请求新建，不在请求之间共享。
type RecommendContext struct {
	UserID string

	// User 是强类型用户画像（语义搜索时为空）
	User *User

	// Query 是查询向量：用户 embedding 或搜索 query 的 embedding
	Query []float64

	// Excluded 是需要排除的商品 ID（通常是已购商品）
	Excluded map[string]struct{}

	// Preferred 是偏好类目集合，命中时加 CategoryBoost
	Preferred map[string]struct{}

	// PastPurchases 是已购商品，用于 "similar to past purchase" 解释信号
	PastPurchases []*Product

	// CategoryBoost 是偏好类目的固定加分
	CategoryBoost float64

	// Params 请求级参数，供 CEL 表达式过滤使用
	Params map[string]any
}

// IsExcluded 检查商品是否被排除。
func (rctx *RecommendContext) IsExcluded(id string) bool {
	if rctx == nil || rctx.Excluded == nil {
		return false
	}
	_, ok := rctx.Excluded[id]
	return ok
}

// IsPreferred 检查类目是否为偏好类目。
func (rctx *RecommendContext) IsPreferred(category string) bool {
	if rctx == nil || rctx.Preferred == nil {
		return false
	}
	_, ok := rctx.Preferred[category]
	return ok
}
