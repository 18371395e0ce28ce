package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, store.BackendFile, s.Store.Backend)
	assert.Equal(t, "data", s.Store.Dir)
	assert.Equal(t, "past_purchases", s.Keys.Purchases)
	assert.Equal(t, EventBackendKV, s.Events.Backend)
	assert.Equal(t, core.DefaultTopN, s.Scoring.TopN)
	assert.Equal(t, core.DefaultBatchTopN, s.Scoring.BatchTopN)
	assert.InDelta(t, core.DefaultBlendWeight, s.Scoring.BlendWeight, 1e-12)
	assert.InDelta(t, core.DefaultRelevanceThreshold, s.Scoring.RelevanceThreshold, 1e-12)
	assert.Equal(t, "nomic-embed-text", s.Embedding.Model)
	assert.Equal(t, time.Second, s.Embedding.Backoff)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, "prodrec.yaml", `
store:
  backend: badger
  dir: /tmp/prodrec
scoring:
  top_n: 4
  category_boost: 0.2
embedding:
  provider: openai
  model: text-embedding-3-small
  dimension: 1536
  backoff: 250ms
events:
  backend: sqlite
  dsn: events.db
`)
	t.Setenv("PRODREC_SCORING__TOP_N", "7")
	t.Setenv("PRODREC_LOGGING__LEVEL", "debug")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, store.BackendBadger, s.Store.Backend)
	assert.Equal(t, 7, s.Scoring.TopN)
	assert.InDelta(t, 0.2, s.Scoring.CategoryBoost, 1e-12)
	assert.Equal(t, "openai", s.Embedding.Provider)
	assert.Equal(t, 1536, s.Embedding.Dimension)
	assert.Equal(t, 250*time.Millisecond, s.Embedding.Backoff)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, EventBackendSQLite, s.Events.Backend)
	assert.Equal(t, "events.db", s.Events.DSN)
	// 文件中未出现的字段保留默认值
	assert.Equal(t, core.DefaultBatchTopN, s.Scoring.BatchTopN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"blend weight of one", func(s *Settings) { s.Scoring.BlendWeight = 1 }},
		{"zero top n", func(s *Settings) { s.Scoring.TopN = 0 }},
		{"unknown backend", func(s *Settings) { s.Store.Backend = "etcd" }},
		{"sqlite without dsn", func(s *Settings) { s.Events.Backend = EventBackendSQLite }},
		{"file without dir", func(s *Settings) { s.Store.Dir = "" }},
		{"redis without addr", func(s *Settings) { s.Store.Backend = store.BackendRedis }},
		{"unknown provider", func(s *Settings) { s.Embedding.Provider = "bert" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, core.IsInvalidInput(err))
		})
	}

	s := DefaultSettings()
	assert.NoError(t, s.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
