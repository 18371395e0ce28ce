package store

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
)

// exerciseStore 对任意 core.Store 实现跑同一组行为用例。
func exerciseStore(t *testing.T, s core.Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, core.IsStoreNotFound(err), "missing key should be not found, got %v", err)

	require.NoError(t, s.Set(ctx, "products", []byte(`[{"id":"1"}]`)))
	got, err := s.Get(ctx, "products")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	require.NoError(t, s.Set(ctx, "products", []byte(`[]`)))
	got, err = s.Get(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	require.NoError(t, s.BatchSet(ctx, map[string][]byte{"users": []byte("u"), "past_purchases": []byte("p")}))
	batch, err := s.BatchGet(ctx, []string{"users", "past_purchases", "nope"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"users": []byte("u"), "past_purchases": []byte("p")}, batch)

	require.NoError(t, s.Delete(ctx, "users"))
	_, err = s.Get(ctx, "users")
	assert.True(t, core.IsStoreNotFound(err))
	require.NoError(t, s.Delete(ctx, "users"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	require.NoError(t, s.RPush(ctx, "behavior_log", []byte("a"), []byte("b")))
	require.NoError(t, s.RPush(ctx, "behavior_log", []byte("c")))

	all, err := s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, all)

	tail, err := s.LRange(ctx, "behavior_log", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c")}, tail)

	require.NoError(t, s.LTrim(ctx, "behavior_log", 1, -1))
	require.NoError(t, s.RPush(ctx, "behavior_log", []byte("d")))
	all, err = s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b"), []byte("c"), []byte("d")}, all)

	// 保留区间为空时列表被删除
	require.NoError(t, s.LTrim(ctx, "behavior_log", 5, -1))
	all, err = s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, all)
	require.NoError(t, s.RPush(ctx, "behavior_log", []byte("a"), []byte("b"), []byte("c")))

	require.NoError(t, s.Delete(ctx, "behavior_log"))
	all, err = s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	defer s.Close()

	v := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", v))
	v[0] = 'x'
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	require.NoError(t, err)
	exerciseStore(t, s)

	// 与离线数据文件布局一致：<dir>/<key>.json
	data, err := os.ReadFile(dir + "/products.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp", "temp file left behind")
	}
}

func TestFileStoreRejects(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	assert.True(t, core.IsInvalidInput(s.Set(ctx, "../escape", []byte("x"))))
	assert.True(t, core.IsStoreNotSupported(s.Set(ctx, "k", []byte("x"), 10)))

	_, err = NewFileStore("")
	assert.True(t, core.IsInvalidInput(err))
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadgerStore("")
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := OpenBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "recommendations", []byte(`[]`)))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "recommendations")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("PRODREC_TEST_REDIS")
	if addr == "" {
		t.Skip("PRODREC_TEST_REDIS not set")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, RedisConfig{Addr: addr, Prefix: "prodrec_test:" + strconv.Itoa(os.Getpid()) + ":"})
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)

	require.NoError(t, s.RPush(ctx, "behavior_log", []byte("a"), []byte("b")))
	all, err := s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, all)
	require.NoError(t, s.LTrim(ctx, "behavior_log", 1, -1))
	all, err = s.LRange(ctx, "behavior_log", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("b")}, all)
	require.NoError(t, s.Delete(ctx, "behavior_log"))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	require.NoError(t, s.Close())

	s, err = Open(ctx, Options{Backend: BackendFile, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name())

	_, err = Open(ctx, Options{Backend: "cassandra"})
	assert.True(t, core.IsInvalidInput(err))
}
