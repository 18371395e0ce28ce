package core

// 系统级默认值。
const (
	// DefaultDimension 是 embedding 维度 D（nomic-embed-text）
	DefaultDimension = 768

	// DefaultBlendWeight 是画像更新时保留旧 embedding 的比例
	DefaultBlendWeight = 0.6

	// DefaultCategoryBoost 是偏好类目的加分
	DefaultCategoryBoost = 0.1

	// DefaultRelevanceThreshold 是解释信号的相似度阈值
	DefaultRelevanceThreshold = 0.45

	// DefaultTopN 是在线推荐默认返回数
	DefaultTopN = 3

	// DefaultBatchTopN 是批量快照默认返回数
	DefaultBatchTopN = 5

	// DefaultEmbeddingAttempts 是 embedding 服务最大尝试次数
	DefaultEmbeddingAttempts = 3
)
