package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/prodrec/core"
	"github.com/rushteam/prodrec/dataset"
	"github.com/rushteam/prodrec/event"
	"github.com/rushteam/prodrec/store"
)

func ev(user, product string) core.BehaviorEvent {
	return core.BehaviorEvent{UserID: user, ProductID: product, EventType: core.EventClick}
}

func TestUpdateProfilesBlend(t *testing.T) {
	users := []core.User{{UserID: "u1", Embedding: []float64{1, 0}}, {UserID: "u2", Embedding: []float64{0, 1}}}
	products := []core.Product{{ID: "p1", Embedding: []float64{0, 1}}}

	res, err := UpdateProfiles([]core.BehaviorEvent{ev("u1", "p1")}, users, products, core.DefaultBlendWeight)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Skipped)
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, res.Users[0].Embedding, 1e-12)
	// 未被触及的用户原样返回
	assert.Equal(t, []float64{0, 1}, res.Users[1].Embedding)
	// 输入不被修改
	assert.Equal(t, []float64{1, 0}, users[0].Embedding)
}

func TestUpdateProfilesMean(t *testing.T) {
	users := []core.User{{UserID: "u1", Embedding: []float64{0, 0, 1}}}
	products := []core.Product{
		{ID: "a", Embedding: []float64{1, 0, 0}},
		{ID: "b", Embedding: []float64{0, 1, 0}},
	}
	forward, err := UpdateProfiles([]core.BehaviorEvent{ev("u1", "a"), ev("u1", "b")}, users, products, 0.5)
	require.NoError(t, err)
	backward, err := UpdateProfiles([]core.BehaviorEvent{ev("u1", "b"), ev("u1", "a")}, users, products, 0.5)
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{0.25, 0.25, 0.5}, forward.Users[0].Embedding, 1e-12)
	assert.InDeltaSlice(t, forward.Users[0].Embedding, backward.Users[0].Embedding, 1e-12)
}

func TestUpdateProfilesEmptyLogIsIdentity(t *testing.T) {
	users := []core.User{{UserID: "u1", Embedding: []float64{1, 0}}}
	res, err := UpdateProfiles(nil, users, nil, core.DefaultBlendWeight)
	require.NoError(t, err)
	assert.Equal(t, users, res.Users)
	assert.Zero(t, res.Updated)
}

func TestUpdateProfilesSkips(t *testing.T) {
	users := []core.User{
		{UserID: "u1", Embedding: []float64{1, 0}},
		{UserID: "u2"},
		{UserID: "u3", Embedding: []float64{1, 0}},
	}
	products := []core.Product{
		{ID: "p1", Embedding: []float64{0, 1}},
		{ID: "bad", Embedding: []float64{0, 1, 0}},
	}
	events := []core.BehaviorEvent{
		ev("ghost", "p1"),
		ev("u1", "missing"),
		ev("u2", "p1"),
		ev("u3", "bad"),
	}

	res, err := UpdateProfiles(events, users, products, core.DefaultBlendWeight)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	require.Len(t, res.Skipped, 4)
	assert.True(t, core.IsUnresolvedReference(res.Skipped[0]))
	assert.True(t, core.IsUnresolvedReference(res.Skipped[1]))
	assert.True(t, core.IsMissingEmbedding(res.Skipped[2]))
	assert.True(t, core.IsDimensionMismatch(res.Skipped[3]))
	assert.Equal(t, users, res.Users)
}

func TestUpdateProfilesInvalidWeight(t *testing.T) {
	for _, w := range []float64{0, 1, -1, 2} {
		_, err := UpdateProfiles(nil, nil, nil, w)
		assert.True(t, core.IsInvalidInput(err), "weight %v", w)
	}
}

func TestBlenderStrictDimension(t *testing.T) {
	users := []core.User{{UserID: "u1", Embedding: []float64{1, 0}}}
	products := []core.Product{{ID: "p1", Embedding: []float64{0, 1}}}
	res, err := Blender{BlendWeight: 0.6, Dimension: 3}.Blend([]core.BehaviorEvent{ev("u1", "p1")}, users, products)
	require.NoError(t, err)
	assert.Zero(t, res.Updated)
	require.Len(t, res.Skipped, 1)
	assert.True(t, core.IsDimensionMismatch(res.Skipped[0]))
}

// failingStore 在写入 users key 时失败，用于验证“先更新、后清空”。
type failingStore struct {
	*store.MemoryStore
	failKey string
}

func (f *failingStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	if key == f.failKey {
		return errors.New("disk full")
	}
	return f.MemoryStore.Set(ctx, key, value, ttl...)
}

func seed(t *testing.T, s core.Store) *dataset.Repo {
	t.Helper()
	ctx := context.Background()
	repo := dataset.New(s, dataset.Keys{})
	require.NoError(t, s.Set(ctx, "users", []byte(`[{"user_id":"u1","name":"Ann","embedding":[1,0]}]`)))
	require.NoError(t, s.Set(ctx, "products", []byte(`[{"id":"p1","name":"Lamp","embedding":[0,1]}]`)))
	return repo
}

func TestUpdaterRun(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	repo := seed(t, mem)
	log := event.NewKVLog(mem, "behavior_log")
	require.NoError(t, log.Append(ctx, ev("u1", "p1")))

	u := &Updater{Events: log, Repo: repo, Blender: Blender{BlendWeight: 0.6}}
	report, err := u.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Events)
	assert.Equal(t, 1, report.Updated)

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, users[0].Embedding, 1e-12)

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)

	// 空日志再次运行：画像不变
	report, err = u.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Events)
	again, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, users, again)
}

func TestUpdaterKeepsEventsWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	fs := &failingStore{MemoryStore: mem, failKey: "users"}
	repo := seed(t, mem)
	repo.Store = fs
	log := event.NewKVLog(mem, "behavior_log")
	require.NoError(t, log.Append(ctx, ev("u1", "p1")))

	u := &Updater{Events: log, Repo: repo, Blender: Blender{BlendWeight: 0.6}}
	_, err := u.Run(ctx)
	require.Error(t, err)

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1, "events must survive a failed save")

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, users[0].Embedding)
}

func TestUpdaterClearsUnresolvedOnlyLog(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	repo := seed(t, mem)
	log := event.NewKVLog(mem, "behavior_log")
	require.NoError(t, log.Append(ctx, ev("ghost", "p1")))

	u := &Updater{Events: log, Repo: repo, Blender: Blender{BlendWeight: 0.6}}
	report, err := u.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Updated)
	assert.Len(t, report.Skipped, 1)

	events, err := log.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// lateWriterLog 在每次 ReadAll 返回前追加一条事件，模拟另一个进程在读取之后写入。
type lateWriterLog struct {
	*event.KVLog
	late []core.BehaviorEvent
}

func (l *lateWriterLog) ReadAll(ctx context.Context) ([]core.BehaviorEvent, error) {
	events, err := l.KVLog.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, ev := range l.late {
		if err := l.KVLog.Append(ctx, ev); err != nil {
			return nil, err
		}
	}
	l.late = nil
	return events, nil
}

func TestUpdaterKeepsEventsAppendedDuringRun(t *testing.T) {
	for name, mk := range map[string]func(t *testing.T) core.Store{
		"list": func(t *testing.T) core.Store {
			mem := store.NewMemoryStore()
			t.Cleanup(func() { _ = mem.Close() })
			return mem
		},
		"array": func(t *testing.T) core.Store {
			fs, err := store.NewFileStore(t.TempDir())
			require.NoError(t, err)
			return fs
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk(t)
			repo := seed(t, s)
			log := &lateWriterLog{KVLog: event.NewKVLog(s, "behavior_log"), late: []core.BehaviorEvent{ev("u1", "p2")}}
			require.NoError(t, log.Append(ctx, ev("u1", "p1")))

			u := &Updater{Events: log, Repo: repo, Blender: Blender{BlendWeight: 0.6}}
			report, err := u.Run(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Events)

			events, err := log.KVLog.ReadAll(ctx)
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, "p2", events[0].ProductID)
		})
	}
}
