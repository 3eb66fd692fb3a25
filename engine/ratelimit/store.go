package ratelimit

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BaSui01/outreachflow/types"
)

// ErrStoreClosed 存储已关闭
var ErrStoreClosed = errors.New("ratelimit: store is closed")

// Store 持久化动作计数器。
// 实现必须并发安全；Get 未命中返回 found=false 而非错误。
type Store interface {
	// Get 读取指定平台/动作/窗口的计数器
	Get(platform string, action types.ActionType, window types.WindowKind) (types.ActionCounter, bool, error)

	// Put 写入（覆盖）计数器
	Put(platform string, c types.ActionCounter) error

	// PutAll 原子写入同一平台的一批计数器：要么全部生效要么全不生效
	PutAll(platform string, counters []types.ActionCounter) error

	// All 返回平台下的全部计数器
	All(platform string) ([]types.ActionCounter, error)

	// Close 关闭存储
	Close() error
}

func counterKey(platform string, action types.ActionType, window types.WindowKind) string {
	return fmt.Sprintf("%s|%s|%s", platform, action, window)
}

// =============================================================================
// 内存实现（测试与一次性运行用）
// =============================================================================

// MemoryStore 进程内计数器存储
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]types.ActionCounter
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]types.ActionCounter)}
}

func (s *MemoryStore) Get(platform string, action types.ActionType, window types.WindowKind) (types.ActionCounter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.ActionCounter{}, false, ErrStoreClosed
	}
	c, ok := s.counters[counterKey(platform, action, window)]
	return c, ok, nil
}

func (s *MemoryStore) Put(platform string, c types.ActionCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.counters[counterKey(platform, c.Action, c.Window)] = c
	return nil
}

func (s *MemoryStore) PutAll(platform string, counters []types.ActionCounter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for _, c := range counters {
		s.counters[counterKey(platform, c.Action, c.Window)] = c
	}
	return nil
}

func (s *MemoryStore) All(platform string) ([]types.ActionCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	prefix := platform + "|"
	out := make([]types.ActionCounter, 0, len(s.counters))
	for key, c := range s.counters {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
