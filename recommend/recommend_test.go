package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/event"
	"github.com/rushteam/prodrec/store"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixedEmbedder struct {
	vec []float64
	err error
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float64, error) { return f.vec, f.err }
func (f *fixedEmbedder) Dimension() int                                  { return len(f.vec) }

func newService(t *testing.T) (*Service, *event.KVLog) {
	t.Helper()
	mem := store.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	repo := dataset.New(mem, dataset.DefaultKeys())
	ctx := context.Background()
	require.NoError(t, repo.SaveUsers(ctx, []core.User{
		{UserID: "u1", Name: "Ann", PreferredCategories: []string{"x"}, Embedding: []float64{1, 0}},
		{UserID: "u2", Name: "Bob"},
	}))
	require.NoError(t, repo.SaveProducts(ctx, []core.Product{
		{ID: "A", Name: "Alpha", Category: "x", Embedding: []float64{1, 0}},
		{ID: "B", Name: "Beta", Category: "y", Embedding: []float64{0, 1}},
		{ID: "C", Name: "Gamma", Category: "z", Embedding: []float64{0.7071, 0.7071}},
	}))

	log := event.NewKVLog(mem, dataset.DefaultKeys().Events)
	svc := &Service{
		Repo:          repo,
		Events:        log,
		Embedder:      &fixedEmbedder{vec: []float64{0, 1}},
		CategoryBoost: core.DefaultCategoryBoost,
	}
	return svc.WithClock(func() time.Time { return fixedNow }), log
}

func ids(recs []core.ScoredProduct) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestForUserFallsBackToLive(t *testing.T) {
	svc, _ := newService(t)

	res, err := svc.ForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, "Ann", res.Name)
	assert.Equal(t, []string{"A", "C", "B"}, ids(res.Recommendations))
	assert.InDelta(t, 1.1, res.Recommendations[0].Score, 1e-9)
}

func TestForUserPrefersSnapshot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Repo.SaveSnapshot(ctx, core.Snapshot{Results: []core.RecommendationResult{
		{UserID: "u1", Name: "Ann", Recommendations: []core.ScoredProduct{{ID: "B", Score: 0.5}}},
	}}))

	res, err := svc.ForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, res.Source)
	assert.Equal(t, []string{"B"}, ids(res.Recommendations))
}

func TestLiveErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ForUser(ctx, "nobody")
	assert.True(t, core.IsNotFound(err))

	_, err = svc.ForUser(ctx, "u2")
	assert.True(t, core.IsMissingEmbedding(err))
}

func TestBuyIsMonotonic(t *testing.T) {
	svc, log := newService(t)
	ctx := context.Background()

	out, err := svc.Buy(ctx, "u1", "A")
	require.NoError(t, err)
	assert.False(t, out.AlreadyPurchased)
	assert.Equal(t, "Alpha", out.Product.Name)

	out, err = svc.Buy(ctx, "u1", "A")
	require.NoError(t, err)
	assert.True(t, out.AlreadyPurchased)

	records, err := svc.Repo.Purchases(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"A"}, records[0].PurchasedProductIDs)

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, core.EventBuy, events[0].EventType)
	assert.Equal(t, fixedNow, events[0].Timestamp)

	// 已购商品不再被推荐
	res, err := svc.Live(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, ids(res.Recommendations))

	history, err := svc.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "A", history[0].ID)
}

func TestBuyRejectsUnknown(t *testing.T) {
	svc, log := newService(t)
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "Z")
	assert.True(t, core.IsNotFound(err))
	_, err = svc.Buy(ctx, "ghost", "A")
	assert.True(t, core.IsNotFound(err))

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSearch(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	recs, err := svc.Search(ctx, "something beta-like")
	require.NoError(t, err)
	// 搜索不加类目分，也不排除已购
	assert.Equal(t, []string{"B", "C", "A"}, ids(recs))
	assert.InDelta(t, 1.0, recs[0].Score, 1e-9)

	_, err = svc.Search(ctx, "")
	assert.True(t, core.IsInvalidInput(err))

	svc.Embedder = &fixedEmbedder{err: errors.New("down")}
	_, err = svc.Search(ctx, "x")
	assert.Error(t, err)

	svc.Embedder = nil
	_, err = svc.Search(ctx, "x")
	assert.True(t, core.IsNotSupported(err))
}

func TestHistoryWithoutPurchases(t *testing.T) {
	svc, _ := newService(t)
	history, err := svc.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.NewSession(ctx, "ghost")
	assert.True(t, core.IsNotFound(err))

	sess, err := svc.NewSession(ctx, "u1")
	require.NoError(t, err)

	_, err = sess.BuyRecommended(ctx, svc, 1)
	assert.True(t, core.IsInvalidInput(err))

	_, err = sess.Recommend(ctx, svc)
	require.NoError(t, err)
	require.Len(t, sess.LastRecommended, 3)

	_, err = sess.BuyRecommended(ctx, svc, 4)
	assert.True(t, core.IsInvalidInput(err))

	out, err := sess.BuyRecommended(ctx, svc, 2)
	require.NoError(t, err)
	assert.Equal(t, "C", out.Product.ID)
}

func TestForUserDropsProductsBoughtAfterSnapshot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Repo.SaveSnapshot(ctx, core.Snapshot{Results: []core.RecommendationResult{
		{UserID: "u1", Name: "Ann", Recommendations: []core.ScoredProduct{{ID: "A", Score: 1.1}, {ID: "C", Score: 0.8}}},
	}}))

	_, err := svc.Buy(ctx, "u1", "A")
	require.NoError(t, err)

	res, err := svc.ForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, SourceSnapshot, res.Source)
	assert.Equal(t, []string{"C"}, ids(res.Recommendations))
}

func TestSessionScoresLiveAfterBuy(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Repo.SaveSnapshot(ctx, core.Snapshot{Results: []core.RecommendationResult{
		{UserID: "u1", Name: "Ann", Recommendations: []core.ScoredProduct{{ID: "A", Score: 1.1}, {ID: "C", Score: 0.8}}},
	}}))

	sess, err := svc.NewSession(ctx, "u1")
	require.NoError(t, err)

	res, err := sess.Recommend(ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	require.Equal(t, "A", res.Recommendations[0].ID)

	out, err := sess.BuyRecommended(ctx, svc, 1)
	require.NoError(t, err)
	assert.Equal(t, "A", out.Product.ID)

	res, err = sess.Recommend(ctx, svc)
	require.NoError(t, err)
	assert.NotContains(t, ids(res.Recommendations), "A")
	assert.Equal(t, []string{"C", "B"}, ids(sess.LastRecommended))
}
