package builders_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/config"
	"github.com/rushteam/prodrec/config/builders"
	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/pipeline"
	"github.com/rushteam/prodrec/store"
)

func items(products ...core.Product) []*core.Item {
	out := make([]*core.Item, len(products))
	for i := range products {
		out[i] = core.NewProductItem(&products[i])
	}
	return out
}

func run(t *testing.T, nodes []pipeline.Node, in []*core.Item) []string {
	t.Helper()
	p := &pipeline.Pipeline{Nodes: nodes}
	out, err := p.Run(context.Background(), &core.RecommendContext{}, in)
	require.NoError(t, err)
	ids := make([]string, len(out))
	for i, it := range out {
		ids[i] = it.ID
	}
	return ids
}

func TestSupportedTypes(t *testing.T) {
	assert.Subset(t, config.SupportedTypes(),
		[]string{"filter", "filter.expr", "filter.category", "filter.blacklist", "rerank.diversity"})
}

func TestLoadPipelineYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pipeline:
  name: extras
  nodes:
    - type: filter.category
      config:
        blocked: [books]
    - type: filter.expr
      config:
        expr: "product.price < 50.0"
    - type: rerank.diversity
      config:
        max_per_category: 1
`), 0o644))

	nodes, err := config.LoadPipeline(path)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	got := run(t, nodes, items(
		core.Product{ID: "1", Category: "books", Price: 10},
		core.Product{ID: "2", Category: "toys", Price: 99},
		core.Product{ID: "3", Category: "toys", Price: 20},
		core.Product{ID: "4", Category: "toys", Price: 30},
		core.Product{ID: "5", Category: "garden", Price: 5},
	))
	assert.Equal(t, []string{"3", "5"}, got)
}

func TestLoadPipelineUnknownType(t *testing.T) {
	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "rank.lr"}}
	_, err := config.BuildPipeline(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filter.expr")
}

func TestLoadPipelineEmptyPath(t *testing.T) {
	nodes, err := config.LoadPipeline("")
	require.NoError(t, err)
	assert.Nil(t, nodes)
}

func TestBlacklistFromStore(t *testing.T) {
	mem := store.NewMemoryStore()
	defer mem.Close()
	require.NoError(t, mem.Set(context.Background(), "blocklist", []byte(`[2, "3"]`)))

	builders.UseStore(nil)
	_, err := builders.BuildBlacklistNode(map[string]interface{}{"key": "blocklist"})
	require.Error(t, err)

	builders.UseStore(mem)
	defer builders.UseStore(nil)
	node, err := builders.BuildBlacklistNode(map[string]interface{}{
		"key":      "blocklist",
		"item_ids": []interface{}{"1"},
	})
	require.NoError(t, err)

	got := run(t, []pipeline.Node{node}, items(
		core.Product{ID: "1"}, core.Product{ID: "2"}, core.Product{ID: "3"}, core.Product{ID: "4"},
	))
	assert.Equal(t, []string{"4"}, got)
}

func TestFilterNodeComposite(t *testing.T) {
	node, err := builders.BuildFilterNode(map[string]interface{}{
		"filters": []interface{}{
			map[string]interface{}{"type": "category", "blocked": []interface{}{"x"}},
			map[string]interface{}{"type": "expr", "expr": `product.name != "skip"`},
		},
	})
	require.NoError(t, err)
	got := run(t, []pipeline.Node{node}, items(
		core.Product{ID: "1", Category: "x"},
		core.Product{ID: "2", Name: "skip"},
		core.Product{ID: "3", Name: "keep"},
	))
	assert.Equal(t, []string{"3"}, got)

	_, err = builders.BuildFilterNode(map[string]interface{}{
		"filters": []interface{}{map[string]interface{}{"type": "exposed"}},
	})
	assert.Error(t, err)
}
