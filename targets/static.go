package targets

import (
	"context"
	"sync"

	"github.com/BaSui01/outreachflow/types"
)

// StaticSource 内存目标列表，库内嵌调用方直接传切片用
type StaticSource struct {
	mu      sync.Mutex
	records []types.TargetRecord
}

// NewStaticSource 创建内存目标源
func NewStaticSource(records []types.TargetRecord) *StaticSource {
	out := make([]types.TargetRecord, len(records))
	copy(out, records)
	return &StaticSource{records: out}
}

func (s *StaticSource) Targets(ctx context.Context) ([]types.TargetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.TargetRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *StaticSource) UpdateStatus(ctx context.Context, target types.TargetRecord, status types.TargetStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].Key() == target.Key() {
			s.records[i].Status = status
			return nil
		}
	}
	return nil
}
