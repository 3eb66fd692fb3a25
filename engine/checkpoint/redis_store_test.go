package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/outreachflow/config"
)

func newMiniredisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStoreWithClient(client, "outreachflow:")
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		return newMiniredisStore(t)
	})
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStoreWithClient(client, "outreachflow:")

	ctx := context.Background()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, sampleCheckpoint("s_prefixed", base)))

	assert.True(t, mr.Exists("outreachflow:checkpoint:s_prefixed"))
	assert.True(t, mr.Exists("outreachflow:checkpoint:index"))
}

func TestRedisStoreDeleteCleansIndex(t *testing.T) {
	store := newMiniredisStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleCheckpoint("s_gone", base)))
	require.NoError(t, store.Delete(ctx, "s_gone"))

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "删除后索引里不应有残留")
}

// Open 后端选择用的配置构造辅助
func configFileBackend(dir string) config.CheckpointConfig {
	return config.CheckpointConfig{Backend: config.CheckpointFile, Dir: dir}
}

func configMemoryBackend() config.CheckpointConfig {
	return config.CheckpointConfig{Backend: config.CheckpointMemory}
}

func configBadBackend() config.CheckpointConfig {
	return config.CheckpointConfig{Backend: "etcd"}
}

func redisCfgUnused() config.RedisConfig {
	return config.RedisConfig{}
}
