package filter

import (
	"context"
	"sync"

	"github.com/goccy/go-json"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pkg/conv"
)

// StoreAdapter 将 core.Store 适配为过滤器所需的存储接口。
// 黑名单在首次读取后缓存，一个 StoreAdapter 对应一次批量运行。
type StoreAdapter struct {
	store core.Store

	mu    sync.Mutex
	cache map[string][]string
}

// NewStoreAdapter 创建一个 core.Store 适配器。
func NewStoreAdapter(s core.Store) *StoreAdapter {
	return &StoreAdapter{store: s, cache: make(map[string][]string)}
}

// GetBlacklist 从 Store 读取黑名单（JSON 数组，id 可以是字符串或整数）。key 不存在时为空。
func (a *StoreAdapter) GetBlacklist(ctx context.Context, key string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ids, ok := a.cache[key]; ok {
		return ids, nil
	}

	data, err := a.store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		a.cache[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []conv.FlexString
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInvalidInput, "filter: decode blacklist "+key, err)
	}
	ids := conv.Strings(raw)
	a.cache[key] = ids
	return ids, nil
}
