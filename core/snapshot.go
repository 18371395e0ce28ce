package core

// ScoredProduct 是一条推荐结果：商品字段 + 分数 + 可读解释。
// 不携带 embedding，快照只服务于展示与评估。
type ScoredProduct struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// NewScoredProduct 从商品构造推荐结果。
func NewScoredProduct(p *Product, score float64, explanation string) ScoredProduct {
	return ScoredProduct{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Score:       score,
		Explanation: explanation,
	}
}

// RecommendationResult 是单个用户的推荐列表，长度 <= TopN。
type RecommendationResult struct {
	UserID          string          `json:"user_id"`
	Name            string          `json:"name"`
	Recommendations []ScoredProduct `json:"recommendations"`
}

// Snapshot 是一次批量运行的完整推荐结果，每次运行整体替换，不做增量合并。
type Snapshot struct {
	Results []RecommendationResult
}

// Find 按用户 ID 查找快照条目。
func (s *Snapshot) Find(userID string) (*RecommendationResult, bool) {
	for i := range s.Results {
		if s.Results[i].UserID == userID {
			return &s.Results[i], true
		}
	}
	return nil, false
}
