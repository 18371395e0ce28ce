// Package dataset 在 core.Store 上读写商品目录、用户画像、购买记录与推荐快照。
//
// 每个集合以一个 JSON 文档存放在一个 key 下，写入是整体替换。
// key 不存在时视为空集合。
package dataset

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pkg/conv"
)

// Keys 是各集合在 Store 中的 key。
type Keys struct {
	Products  string `koanf:"products" validate:"required"`
	Users     string `koanf:"users" validate:"required"`
	Purchases string `koanf:"purchases" validate:"required"`
	Snapshot  string `koanf:"snapshot" validate:"required"`
	Events    string `koanf:"events" validate:"required"`
}

// DefaultKeys 与离线数据目录中的文件名一致。
func DefaultKeys() Keys {
	return Keys{
		Products:  "products",
		Users:     "users",
		Purchases: "past_purchases",
		Snapshot:  "recommendations",
		Events:    "behavior_log",
	}
}

// Repo 是所有集合的仓储。
type Repo struct {
	Store core.Store
	Keys  Keys
}

// New 创建 Repo，未设置的 key 使用默认值。
func New(store core.Store, keys Keys) *Repo {
	def := DefaultKeys()
	if keys.Products == "" {
		keys.Products = def.Products
	}
	if keys.Users == "" {
		keys.Users = def.Users
	}
	if keys.Purchases == "" {
		keys.Purchases = def.Purchases
	}
	if keys.Snapshot == "" {
		keys.Snapshot = def.Snapshot
	}
	if keys.Events == "" {
		keys.Events = def.Events
	}
	return &Repo{Store: store, Keys: keys}
}

type productDoc struct {
	ID          conv.FlexString `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	Embedding   []float64       `json:"embedding,omitempty"`
}

type userDoc struct {
	UserID              conv.FlexString `json:"user_id"`
	Name                string          `json:"name"`
	Interests           []string        `json:"interests"`
	PreferredCategories []string        `json:"preferred_categories"`
	Embedding           []float64       `json:"embedding,omitempty"`
}

type purchaseDoc struct {
	UserID              conv.FlexString   `json:"user_id"`
	PurchasedProductIDs []conv.FlexString `json:"purchased_product_ids"`
}

type scoredDoc struct {
	ID          conv.FlexString `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	Score       float64         `json:"score"`
	Explanation string          `json:"explanation"`
}

type resultDoc struct {
	UserID          conv.FlexString `json:"user_id"`
	Name            string          `json:"name"`
	Recommendations []scoredDoc     `json:"recommendations"`
}

func (r *Repo) load(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.Store.Get(ctx, key)
	if core.IsStoreNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dataset: load %s: %w", key, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, core.WrapDomainError(core.ModuleStore, core.ErrorCodeInvalidInput,
			fmt.Sprintf("dataset: decode %s", key), err)
	}
	return true, nil
}

func (r *Repo) save(ctx context.Context, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("dataset: encode %s: %w", key, err)
	}
	if err := r.Store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("dataset: save %s: %w", key, err)
	}
	return nil
}

// Products 读取商品目录（保持文档顺序）。
func (r *Repo) Products(ctx context.Context) ([]core.Product, error) {
	var docs []productDoc
	if _, err := r.load(ctx, r.Keys.Products, &docs); err != nil {
		return nil, err
	}
	out := make([]core.Product, len(docs))
	for i, d := range docs {
		out[i] = core.Product{
			ID:          string(d.ID),
			Name:        d.Name,
			Category:    d.Category,
			Description: d.Description,
			Price:       d.Price,
			Embedding:   d.Embedding,
		}
	}
	return out, nil
}

// SaveProducts 整体覆盖商品目录。
func (r *Repo) SaveProducts(ctx context.Context, products []core.Product) error {
	if products == nil {
		products = []core.Product{}
	}
	return r.save(ctx, r.Keys.Products, products)
}

// Users 读取用户画像（保持文档顺序）。
func (r *Repo) Users(ctx context.Context) ([]core.User, error) {
	var docs []userDoc
	if _, err := r.load(ctx, r.Keys.Users, &docs); err != nil {
		return nil, err
	}
	out := make([]core.User, len(docs))
	for i, d := range docs {
		out[i] = core.User{
			UserID:              string(d.UserID),
			Name:                d.Name,
			Interests:           d.Interests,
			PreferredCategories: d.PreferredCategories,
			Embedding:           d.Embedding,
		}
	}
	return out, nil
}

// SaveUsers 整体覆盖用户画像。
func (r *Repo) SaveUsers(ctx context.Context, users []core.User) error {
	if users == nil {
		users = []core.User{}
	}
	return r.save(ctx, r.Keys.Users, users)
}

// Purchases 读取购买记录。
func (r *Repo) Purchases(ctx context.Context) ([]core.PurchaseRecord, error) {
	var docs []purchaseDoc
	if _, err := r.load(ctx, r.Keys.Purchases, &docs); err != nil {
		return nil, err
	}
	out := make([]core.PurchaseRecord, len(docs))
	for i, d := range docs {
		ids := conv.Strings(d.PurchasedProductIDs)
		if ids == nil {
			ids = []string{}
		}
		out[i] = core.PurchaseRecord{UserID: string(d.UserID), PurchasedProductIDs: ids}
	}
	return out, nil
}

// SavePurchases 整体覆盖购买记录。
func (r *Repo) SavePurchases(ctx context.Context, records []core.PurchaseRecord) error {
	if records == nil {
		records = []core.PurchaseRecord{}
	}
	return r.save(ctx, r.Keys.Purchases, records)
}

// Snapshot 读取最近一次批量推荐快照。
func (r *Repo) Snapshot(ctx context.Context) (core.Snapshot, error) {
	var docs []resultDoc
	if _, err := r.load(ctx, r.Keys.Snapshot, &docs); err != nil {
		return core.Snapshot{}, err
	}
	snap := core.Snapshot{Results: make([]core.RecommendationResult, len(docs))}
	for i, d := range docs {
		recs := make([]core.ScoredProduct, len(d.Recommendations))
		for j, s := range d.Recommendations {
			recs[j] = core.ScoredProduct{
				ID:          string(s.ID),
				Name:        s.Name,
				Category:    s.Category,
				Description: s.Description,
				Price:       s.Price,
				Score:       s.Score,
				Explanation: s.Explanation,
			}
		}
		snap.Results[i] = core.RecommendationResult{UserID: string(d.UserID), Name: d.Name, Recommendations: recs}
	}
	return snap, nil
}

// SaveSnapshot 整体替换快照（单 key 写入）。
func (r *Repo) SaveSnapshot(ctx context.Context, snap core.Snapshot) error {
	results := snap.Results
	if results == nil {
		results = []core.RecommendationResult{}
	}
	return r.save(ctx, r.Keys.Snapshot, results)
}

// ProductIndex 按 ID 建立商品索引。重复 ID 以首次出现为准。
func ProductIndex(products []core.Product) map[string]*core.Product {
	idx := make(map[string]*core.Product, len(products))
	for i := range products {
		if _, ok := idx[products[i].ID]; !ok {
			idx[products[i].ID] = &products[i]
		}
	}
	return idx
}

// PurchaseIndex 按用户 ID 建立购买记录索引。
func PurchaseIndex(records []core.PurchaseRecord) map[string]*core.PurchaseRecord {
	idx := make(map[string]*core.PurchaseRecord, len(records))
	for i := range records {
		idx[records[i].UserID] = &records[i]
	}
	return idx
}

// FindUser 按 ID 查找用户。
func FindUser(users []core.User, userID string) (*core.User, bool) {
	for i := range users {
		if users[i].UserID == userID {
			return &users[i], true
		}
	}
	return nil, false
}
