package recommend

import (
	"context"
	"fmt"

	"github.com/rushteam/prodrec/core"
)

// Session 是一次交互会话的显式状态：当前用户与最近一次展示的推荐。
// 不在进程级保存，调用方自行持有。
type Session struct {
	UserID          string
	LastRecommended []core.ScoredProduct
}

// NewSession 为已存在的用户开启会话。
func (s *Service) NewSession(ctx context.Context, userID string) (*Session, error) {
	users, err := s.Repo.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].UserID == userID {
			return &Session{UserID: userID}, nil
		}
	}
	return nil, core.NewDomainError(core.ModuleService, core.ErrorCodeNotFound,
		fmt.Sprintf("recommend: user %q not found", userID))
}

// Recommend 刷新会话中的推荐列表。会话内总是实时打分，刚买下的商品不会再出现。
func (sess *Session) Recommend(ctx context.Context, svc *Service) (Result, error) {
	res, err := svc.Live(ctx, sess.UserID)
	if err != nil {
		return Result{}, err
	}
	sess.LastRecommended = res.Recommendations
	return res, nil
}

// BuyRecommended 购买最近一次推荐中的第 n 个（从 1 开始）。
func (sess *Session) BuyRecommended(ctx context.Context, svc *Service, n int) (BuyOutcome, error) {
	if len(sess.LastRecommended) == 0 {
		return BuyOutcome{}, core.ErrInvalidInput(core.ModuleService, "recommend: no recommendations shown yet")
	}
	if n < 1 || n > len(sess.LastRecommended) {
		return BuyOutcome{}, core.ErrInvalidInput(core.ModuleService,
			fmt.Sprintf("recommend: choice %d out of range 1..%d", n, len(sess.LastRecommended)))
	}
	return svc.Buy(ctx, sess.UserID, sess.LastRecommended[n-1].ID)
}
