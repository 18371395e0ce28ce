package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/metrics"
	"github.com/rushteam/prodrec/store"
)

func fixtures() ([]core.User, []core.Product, []core.PurchaseRecord) {
	users := []core.User{
		{UserID: "u1", Name: "Ann", Embedding: []float64{1, 0}},
		{UserID: "u2", Name: "Bob"},
		{UserID: "u3", Name: "Cid", Embedding: []float64{0, 1}, PreferredCategories: []string{"x"}},
		{UserID: "u4", Name: "Dee", Embedding: []float64{0, 0}},
	}
	products := []core.Product{
		{ID: "A", Category: "x", Embedding: []float64{1, 0}},
		{ID: "B", Category: "y", Embedding: []float64{0, 1}},
		{ID: "C", Category: "z", Embedding: []float64{0.7, 0.7}},
	}
	purchases := []core.PurchaseRecord{{UserID: "u1", PurchasedProductIDs: []string{"A"}}}
	return users, products, purchases
}

func ids(recs []core.ScoredProduct) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestRunnerSkipsBadUsers(t *testing.T) {
	users, products, purchases := fixtures()
	r := &Runner{CategoryBoost: core.DefaultCategoryBoost}

	snap, report, err := r.Run(context.Background(), users, products, purchases)
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 4, report.Users)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "u2", report.Failures[0].UserID)
	assert.True(t, core.IsMissingEmbedding(report.Failures[0].Err))
	assert.Equal(t, "u4", report.Failures[1].UserID)
	assert.True(t, core.IsDegenerateVector(report.Failures[1].Err))

	require.Len(t, snap.Results, 2)
	assert.Equal(t, "u1", snap.Results[0].UserID)
	assert.Equal(t, "Ann", snap.Results[0].Name)
	// A 已购，被排除
	assert.Equal(t, []string{"C", "B"}, ids(snap.Results[0].Recommendations))
	// u3 偏好 x：A 得分 0 + 0.1
	assert.Equal(t, []string{"B", "C", "A"}, ids(snap.Results[1].Recommendations))
}

func TestRunnerPastPurchaseExplanation(t *testing.T) {
	users, products, purchases := fixtures()
	snap, _, err := (&Runner{}).Run(context.Background(), users[:1], products, purchases)
	require.NoError(t, err)
	// C 与已购的 A 相似度 0.707
	assert.Contains(t, snap.Results[0].Recommendations[0].Explanation, "Similar to things you've bought")
}

func TestRunnerDeterministicAcrossWorkers(t *testing.T) {
	users, products, purchases := fixtures()
	for i := 0; i < 20; i++ {
		users = append(users, core.User{UserID: string(rune('a' + i)), Embedding: []float64{float64(i), 1}})
	}

	serial, _, err := (&Runner{Workers: 1}).Run(context.Background(), users, products, purchases)
	require.NoError(t, err)
	parallel, _, err := (&Runner{Workers: 8}).Run(context.Background(), users, products, purchases)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestRunnerTopN(t *testing.T) {
	users, products, purchases := fixtures()
	snap, _, err := (&Runner{TopN: 1}).Run(context.Background(), users, products, purchases)
	require.NoError(t, err)
	for _, res := range snap.Results {
		assert.Len(t, res.Recommendations, 1)
	}
}

func TestRunnerCancelled(t *testing.T) {
	users, products, purchases := fixtures()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := (&Runner{}).Run(ctx, users, products, purchases)
	assert.ErrorIs(t, err, context.Canceled)
}

type failingStore struct {
	*store.MemoryStore
}

func (f *failingStore) Set(context.Context, string, []byte, ...int) error {
	return errors.New("read-only")
}

func seedRepo(t *testing.T, s core.Store) *dataset.Repo {
	t.Helper()
	users, products, purchases := fixtures()
	repo := dataset.New(s, dataset.Keys{})
	ctx := context.Background()
	require.NoError(t, repo.SaveUsers(ctx, users))
	require.NoError(t, repo.SaveProducts(ctx, products))
	require.NoError(t, repo.SavePurchases(ctx, purchases))
	return repo
}

func TestJobReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	repo := seedRepo(t, mem)
	require.NoError(t, repo.SaveSnapshot(ctx, core.Snapshot{Results: []core.RecommendationResult{{UserID: "stale"}}}))

	job := &Job{Repo: repo, Runner: &Runner{CategoryBoost: 0.1}, Metrics: metrics.New()}
	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)

	snap, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Results, 2)
	_, stale := snap.Find("stale")
	assert.False(t, stale)
}

func TestJobSurfacesStoreFailure(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	repo := seedRepo(t, mem)
	repo.Store = &failingStore{MemoryStore: mem}

	_, err := (&Job{Repo: repo, Runner: &Runner{}}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")
}
