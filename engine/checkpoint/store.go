package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/BaSui01/outreachflow/types"
)

var (
	// ErrNotFound 检查点不存在
	ErrNotFound = errors.New("checkpoint: not found")
	// ErrStoreClosed 存储已关闭
	ErrStoreClosed = errors.New("checkpoint: store is closed")
)

// Checkpoint 一次会话的完整恢复快照。
// 保存是全量覆盖式的：任意一份快照都足以单独恢复会话。
type Checkpoint struct {
	Session  types.Session         `json:"session"`
	Counters []types.ActionCounter `json:"counters,omitempty"`
	Mode     string                `json:"mode"`
	SavedAt  time.Time             `json:"saved_at"`
}

// Store 检查点持久化接口
type Store interface {
	// Save 原子写入快照（覆盖同会话的旧快照）
	Save(ctx context.Context, cp *Checkpoint) error

	// Load 按会话 ID 读取快照，不存在返回 ErrNotFound
	Load(ctx context.Context, sessionID string) (*Checkpoint, error)

	// List 返回全部快照，按保存时间从新到旧
	List(ctx context.Context) ([]*Checkpoint, error)

	// Delete 删除快照，不存在返回 ErrNotFound
	Delete(ctx context.Context, sessionID string) error

	// Close 关闭存储
	Close() error
}
