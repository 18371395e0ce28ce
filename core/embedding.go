package core

import "context"

// Embedder 是外部文本 embedding 服务的领域接口。
//
// 只在数据准备阶段（商品描述、用户兴趣、搜索 query）使用，打分阶段不调用。
// 失败时必须返回错误，不能返回退化的零向量。
type Embedder interface {
	// Embed 返回文本的 embedding，维度固定为 Dimension()
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension 返回向量维度 D
	Dimension() int
}
