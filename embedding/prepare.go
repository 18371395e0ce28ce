package embedding

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rushteam/prodrec/core"
)

// Preparer 为商品描述与用户兴趣生成 embedding。
// 重试耗尽的实体被丢弃（不写入零向量），并在返回的错误列表中说明。
type Preparer struct {
	Embedder core.Embedder
	Logger   zerolog.Logger
}

// Products 为每个商品的 Description 生成 embedding，返回成功的商品（保持顺序）。
func (p *Preparer) Products(ctx context.Context, products []core.Product) ([]core.Product, []error) {
	out := make([]core.Product, 0, len(products))
	var dropped []error
	for _, prod := range products {
		if err := ctx.Err(); err != nil {
			dropped = append(dropped, err)
			return out, dropped
		}
		vec, err := p.Embedder.Embed(ctx, prod.Description)
		if err != nil {
			err = fmt.Errorf("product %s: %w", prod.ID, err)
			p.Logger.Warn().Err(err).Str("product", prod.ID).Msg("product dropped: embedding failed")
			dropped = append(dropped, err)
			continue
		}
		prod.Embedding = vec
		out = append(out, prod)
	}
	p.Logger.Info().Int("embedded", len(out)).Int("dropped", len(dropped)).Msg("product embeddings prepared")
	return out, dropped
}

// Users 为每个用户的兴趣（", " 连接）生成 embedding，返回成功的用户（保持顺序）。
func (p *Preparer) Users(ctx context.Context, users []core.User) ([]core.User, []error) {
	out := make([]core.User, 0, len(users))
	var dropped []error
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			dropped = append(dropped, err)
			return out, dropped
		}
		vec, err := p.Embedder.Embed(ctx, u.InterestText())
		if err != nil {
			err = fmt.Errorf("user %s: %w", u.UserID, err)
			p.Logger.Warn().Err(err).Str("user", u.UserID).Msg("user dropped: embedding failed")
			dropped = append(dropped, err)
			continue
		}
		u.Embedding = vec
		out = append(out, u)
	}
	p.Logger.Info().Int("embedded", len(out)).Int("dropped", len(dropped)).Msg("user embeddings prepared")
	return out, dropped
}
