package recall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
)

func TestCatalogKeepsOrderAndDedups(t *testing.T) {
	c := &Catalog{Products: []core.Product{{ID: "b"}, {ID: "a"}, {ID: "b", Name: "dup"}, {ID: "c"}}}
	n := &Node{Source: c}

	items, err := n.Process(context.Background(), &core.RecommendContext{}, nil)
	require.NoError(t, err)

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
		assert.Equal(t, "recall.catalog", it.Label("recall_source"))
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Empty(t, items[0].Product.Name)
}

func TestCatalogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Catalog{}).Recall(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
