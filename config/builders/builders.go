package builders

import (
	"fmt"
	"sync"

	"github.com/rushteam/prodrec/config"
	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/filter"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/pkg/conv"
	"github.com/rushteam/prodrec/rerank"
)

func init() {
	config.Register("filter", BuildFilterNode)
	config.Register("filter.expr", BuildExprNode)
	config.Register("filter.category", BuildCategoryNode)
	config.Register("filter.blacklist", BuildBlacklistNode)
	config.Register("rerank.diversity", BuildDiversityNode)
}

var (
	storeMu      sync.RWMutex
	storeAdapter *filter.StoreAdapter
)

// UseStore 设置黑名单过滤器读取 key 时使用的存储，需在构建 pipeline 之前调用。
func UseStore(s core.Store) {
	storeMu.Lock()
	defer storeMu.Unlock()
	if s == nil {
		storeAdapter = nil
		return
	}
	storeAdapter = filter.NewStoreAdapter(s)
}

func currentAdapter() *filter.StoreAdapter {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return storeAdapter
}

// BuildFilterNode 把多个过滤器组合进一个 FilterNode：
//
//	type: filter
//	config:
//	  filters:
//	    - {type: category, blocked: [books]}
//	    - {type: expr, expr: "product.price < 100.0"}
func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		f, err := buildFilter(conv.ConfigGet(filterMap, "type", ""), filterMap)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func BuildExprNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return single("expr", cfg)
}

func BuildCategoryNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return single("category", cfg)
}

func BuildBlacklistNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return single("blacklist", cfg)
}

func single(filterType string, cfg map[string]interface{}) (pipeline.Node, error) {
	f, err := buildFilter(filterType, cfg)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

func buildFilter(filterType string, cfg map[string]interface{}) (filter.Filter, error) {
	switch filterType {
	case "expr":
		expr := conv.ConfigGet(cfg, "expr", "")
		if expr == "" {
			return nil, fmt.Errorf("expr not found")
		}
		return filter.NewExprFilter(expr)
	case "category":
		blocked := conv.SliceAnyToString(cfg["blocked"])
		if len(blocked) == 0 {
			return nil, fmt.Errorf("blocked categories not found")
		}
		return &filter.CategoryFilter{Blocked: blocked}, nil
	case "blacklist":
		ids := conv.SliceAnyToString(cfg["item_ids"])
		if ids == nil {
			ids = []string{}
		}
		key := conv.ConfigGet(cfg, "key", "")
		adapter := currentAdapter()
		if key != "" && adapter == nil {
			return nil, fmt.Errorf("blacklist key %q requires a store (call builders.UseStore)", key)
		}
		return filter.NewBlacklistFilter(ids, adapter, key), nil
	default:
		return nil, fmt.Errorf("unknown filter type: %s", filterType)
	}
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	limit := conv.ConfigGetInt64(cfg, "max_per_category", 1)
	if limit <= 0 {
		limit = 1
	}
	return &rerank.Diversity{MaxPerCategory: int(limit)}, nil
}
