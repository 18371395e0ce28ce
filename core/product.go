package core

import (
	"strings"
	"time"
)

// Product 是商品目录中的一条记录。创建后除 Embedding 重新生成外不可变。
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Embedding   []float64 `json:"embedding,omitempty"`
}

// User 是用户画像：静态兴趣 + 长期 embedding。
// Embedding 会随着行为混合不断演进，用户本身不会被删除。
type User struct {
	UserID              string    `json:"user_id"`
	Name                string    `json:"name"`
	Interests           []string  `json:"interests"`
	PreferredCategories []string  `json:"preferred_categories"`
	Embedding           []float64 `json:"embedding,omitempty"`
}

// InterestText 返回用于生成用户 embedding 的兴趣文本。
func (u *User) InterestText() string {
	return strings.Join(u.Interests, ", ")
}

// PreferredSet 返回偏好类目集合。
func (u *User) PreferredSet() map[string]struct{} {
	return ToSet(u.PreferredCategories)
}

// EventType 是行为事件类型。
type EventType string

const (
	EventView  EventType = "view"
	EventClick EventType = "click"
	EventBuy   EventType = "buy"
)

// Valid 检查事件类型是否在枚举内。
func (t EventType) Valid() bool {
	switch t {
	case EventView, EventClick, EventBuy:
		return true
	default:
		return false
	}
}

// BehaviorEvent 是一条用户行为。创建后不可变；日志整体被折叠进画像后清空。
type BehaviorEvent struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseRecord 是用户的已购商品集合，只增不减。
type PurchaseRecord struct {
	UserID              string   `json:"user_id"`
	PurchasedProductIDs []string `json:"purchased_product_ids"`
}

// Has 检查是否已购买 productID。
func (r *PurchaseRecord) Has(productID string) bool {
	for _, id := range r.PurchasedProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// Add 追加一次购买，已存在时返回 false。
func (r *PurchaseRecord) Add(productID string) bool {
	if r.Has(productID) {
		return false
	}
	r.PurchasedProductIDs = append(r.PurchasedProductIDs, productID)
	return true
}

// ToSet 把字符串切片转为集合。
func ToSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
