package checkpoint

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
)

// Open 按配置选择检查点后端
func Open(ctx context.Context, cfg config.CheckpointConfig, redisCfg config.RedisConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case config.CheckpointFile:
		return NewFileStore(cfg.Dir, logger)
	case config.CheckpointMemory:
		return NewMemoryStore(), nil
	case config.CheckpointRedis:
		return NewRedisStore(ctx, redisCfg)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
