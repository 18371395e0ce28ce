package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rushteam/prodrec/core"
)

func TestPrecisionAtK(t *testing.T) {
	rel := core.ToSet([]string{"a", "c"})

	tests := []struct {
		name string
		recs []string
		k    int
		want float64
	}{
		{"fixed denominator", []string{"a", "b"}, 10, 0.1},
		{"truncated", []string{"b", "a", "c"}, 1, 0},
		{"all hits", []string{"a", "c"}, 2, 1},
		{"zero k", []string{"a"}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, PrecisionAtK(tt.recs, rel, tt.k), 1e-12)
		})
	}
}

func TestEvaluate(t *testing.T) {
	snap := core.Snapshot{Results: []core.RecommendationResult{
		{UserID: "u1", Recommendations: []core.ScoredProduct{{ID: "a"}, {ID: "b"}}},
		{UserID: "u2", Recommendations: []core.ScoredProduct{{ID: "x"}}},
		{UserID: "u3", Recommendations: []core.ScoredProduct{{ID: "a"}}},
		{UserID: "u4", Recommendations: []core.ScoredProduct{{ID: "a"}}},
	}}
	purchases := []core.PurchaseRecord{
		{UserID: "u1", PurchasedProductIDs: []string{"b"}},
		{UserID: "u2", PurchasedProductIDs: []string{"y"}},
		{UserID: "u4", PurchasedProductIDs: []string{}},
	}

	r := Evaluate(snap, purchases, 0)
	assert.Equal(t, DefaultK, r.K)
	assert.Equal(t, 2, r.Users)
	assert.Equal(t, []string{"u3", "u4"}, r.Skipped)
	assert.InDelta(t, 0.05, r.AvgPrecision, 1e-12)
	assert.InDelta(t, 0.5, r.HitRate, 1e-12)
}

func TestEvaluateEmpty(t *testing.T) {
	r := Evaluate(core.Snapshot{}, nil, 5)
	assert.Zero(t, r.Users)
	assert.Zero(t, r.HitRate)
}
