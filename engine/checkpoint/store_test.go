package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/types"
)

func sampleCheckpoint(id string, savedAt time.Time) *Checkpoint {
	s := types.Session{
		ID:        id,
		Platform:  "instagram",
		StartedAt: savedAt.Add(-time.Hour),
		UpdatedAt: savedAt,
		Cursor:    7,
		Total:     50,
		Status:    types.SessionPaused,
		Succeeded: 5,
		Failed:    1,
		Skipped:   1,
	}
	return &Checkpoint{
		Session: s,
		Counters: []types.ActionCounter{{
			Action:      types.ActionFollow,
			Window:      types.WindowDaily,
			WindowStart: types.WindowDaily.Truncate(savedAt),
			Count:       5,
		}},
		Mode:    "conservative",
		SavedAt: savedAt,
	}
}

// 对每个后端跑同一组契约测试
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("SaveLoadRoundTrip", func(t *testing.T) {
		store := newStore(t)
		cp := sampleCheckpoint("s_a", base)
		require.NoError(t, store.Save(ctx, cp))

		got, err := store.Load(ctx, "s_a")
		require.NoError(t, err)
		assert.Equal(t, cp.Session.ID, got.Session.ID)
		assert.Equal(t, cp.Session.Cursor, got.Session.Cursor)
		assert.Equal(t, cp.Session.Status, got.Session.Status)
		require.Len(t, got.Counters, 1)
		assert.Equal(t, 5, got.Counters[0].Count)
	})

	t.Run("LoadMissing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Load(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		store := newStore(t)
		cp := sampleCheckpoint("s_b", base)
		require.NoError(t, store.Save(ctx, cp))

		cp.Session.Cursor = 20
		cp.SavedAt = base.Add(time.Minute)
		require.NoError(t, store.Save(ctx, cp))

		got, err := store.Load(ctx, "s_b")
		require.NoError(t, err)
		assert.Equal(t, 20, got.Session.Cursor, "同会话快照应覆盖")

		all, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, sampleCheckpoint("s_old", base)))
		require.NoError(t, store.Save(ctx, sampleCheckpoint("s_new", base.Add(time.Hour))))
		require.NoError(t, store.Save(ctx, sampleCheckpoint("s_mid", base.Add(time.Minute))))

		all, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "s_new", all[0].Session.ID)
		assert.Equal(t, "s_mid", all[1].Session.ID)
		assert.Equal(t, "s_old", all[2].Session.ID)
	})

	t.Run("Delete", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Save(ctx, sampleCheckpoint("s_c", base)))
		require.NoError(t, store.Delete(ctx, "s_c"))

		_, err := store.Load(ctx, "s_c")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "s_c"), ErrNotFound)
	})
}

func TestFileStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		store, err := NewFileStore(t.TempDir(), zap.NewNop())
		require.NoError(t, err)
		return store
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

// 模拟写到一半崩溃：残留的临时文件不得污染读取与列表
func TestFileStoreIgnoresPartialWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleCheckpoint("s_ok", base)))

	// 残留的半截临时文件
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s_crash.tmp-123"), []byte(`{"ses`), 0644))
	// 损坏的正式文件
	require.NoError(t, os.WriteFile(filepath.Join(dir, "s_bad.json"), []byte(`{"session":`), 0644))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1, "半截与损坏文件都应被跳过")
	assert.Equal(t, "s_ok", all[0].Session.ID)

	got, err := store.Load(ctx, "s_ok")
	require.NoError(t, err)
	assert.Equal(t, 7, got.Session.Cursor)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	store, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleCheckpoint("s_persist", base)))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	got, err := reopened.Load(ctx, "s_persist")
	require.NoError(t, err)
	assert.Equal(t, types.SessionPaused, got.Session.Status)
}

func TestFileStoreClosed(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	assert.ErrorIs(t, store.Save(ctx, sampleCheckpoint("s_x", time.Now())), ErrStoreClosed)
	_, err = store.List(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, configFileBackend(t.TempDir()), redisCfgUnused(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(ctx, configMemoryBackend(), redisCfgUnused(), zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(ctx, configBadBackend(), redisCfgUnused(), zap.NewNop())
	assert.Error(t, err)
}
