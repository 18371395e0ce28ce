package filter

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/store"
)

func items(products ...core.Product) []*core.Item {
	out := make([]*core.Item, len(products))
	for i := range products {
		out[i] = core.NewProductItem(&products[i])
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestPurchasedFilter(t *testing.T) {
	rctx := &core.RecommendContext{Excluded: core.ToSet([]string{"b"})}
	node := &FilterNode{Filters: []Filter{&PurchasedFilter{}}}

	in := items(core.Product{ID: "a"}, core.Product{ID: "b"}, core.Product{ID: "c"})
	out, err := node.Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(out))
	assert.Equal(t, "true", in[1].Label("filtered"))
	assert.Equal(t, "filter.purchased", in[1].Labels["filtered"].Source)
}

func TestEmbeddingFilter(t *testing.T) {
	rctx := &core.RecommendContext{Query: []float64{1, 0}}
	node := &FilterNode{Filters: []Filter{&EmbeddingFilter{}}}

	in := items(
		core.Product{ID: "ok", Embedding: []float64{0.5, 0.5}},
		core.Product{ID: "missing"},
		core.Product{ID: "zero", Embedding: []float64{0, 0}},
		core.Product{ID: "short", Embedding: []float64{1}},
		core.Product{ID: "nan", Embedding: []float64{math.NaN(), 1}},
	)
	out, err := node.Process(context.Background(), rctx, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, ids(out))
}

func TestEmbeddingFilterFixedDimension(t *testing.T) {
	f := &EmbeddingFilter{Dimension: 3}
	drop, err := f.ShouldFilter(context.Background(), nil, core.NewProductItem(&core.Product{ID: "x", Embedding: []float64{1, 0}}))
	require.NoError(t, err)
	assert.True(t, drop)
}

func TestExprFilter(t *testing.T) {
	f, err := NewExprFilter(`product.price < 50.0 && product.category != "Books"`)
	require.NoError(t, err)
	node := &FilterNode{Filters: []Filter{f}}

	in := items(
		core.Product{ID: "cheap", Category: "Home", Price: 10},
		core.Product{ID: "pricey", Category: "Home", Price: 99},
		core.Product{ID: "book", Category: "Books", Price: 5},
	)
	out, err := node.Process(context.Background(), &core.RecommendContext{}, in)
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap"}, ids(out))

	_, err = NewExprFilter("product.price <")
	assert.True(t, core.IsInvalidInput(err))
}

func TestCategoryFilter(t *testing.T) {
	node := &FilterNode{Filters: []Filter{&CategoryFilter{Blocked: []string{"Toys"}}}}
	out, err := node.Process(context.Background(), nil, items(core.Product{ID: "a", Category: "Toys"}, core.Product{ID: "b", Category: "Home"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(out))
}

func TestBlacklistFilterFromStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	require.NoError(t, mem.Set(ctx, "blocklist", []byte(`[2, "c"]`)))

	f := NewBlacklistFilter([]string{"a"}, NewStoreAdapter(mem), "blocklist")
	node := &FilterNode{Filters: []Filter{f}}
	out, err := node.Process(ctx, nil, items(core.Product{ID: "a"}, core.Product{ID: "2"}, core.Product{ID: "c"}, core.Product{ID: "d"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids(out))
}

func TestBlacklistMissingKey(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	got, err := NewStoreAdapter(mem).GetBlacklist(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type brokenFilter struct{}

func (brokenFilter) Name() string { return "broken" }
func (brokenFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return false, errors.New("boom")
}

func TestFilterErrorKeepsItem(t *testing.T) {
	node := &FilterNode{Filters: []Filter{brokenFilter{}}}
	out, err := node.Process(context.Background(), nil, items(core.Product{ID: "a"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(out))
}
