package targets

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/types"
)

// csv 列布局
var csvHeader = []string{"username", "url", "niche", "status"}

// CSVSource 从 CSV 文件读目标列表并把状态写回去。
// 文件布局: username,url,niche,status（带表头）。
// 写回是整文件重写，走临时文件加 rename，崩溃不丢行。
type CSVSource struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger

	records []types.TargetRecord
	loaded  bool
}

// NewCSVSource 创建 CSV 目标源
func NewCSVSource(path string, logger *zap.Logger) *CSVSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSource{
		path:   path,
		logger: logger.With(zap.String("component", "targets"), zap.String("path", path)),
	}
}

// Targets 返回文件里的全部有效目标，保持文件顺序。
// 无标识的行跳过并告警；已有终态的行保留在列表里，
// 由编排器负责跳过（游标语义需要完整的下标空间）。
func (s *CSVSource) Targets(ctx context.Context) ([]types.TargetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]types.TargetRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

// UpdateStatus 更新一个目标的状态并整体写回文件
func (s *CSVSource) UpdateStatus(ctx context.Context, target types.TargetRecord, status types.TargetStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.loadLocked(); err != nil {
		return err
	}

	found := false
	for i := range s.records {
		if s.records[i].Key() == target.Key() {
			s.records[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("target %q not in %s", target.Key(), s.path)
	}
	return s.flushLocked()
}

func (s *CSVSource) loadLocked() error {
	if s.loaded {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open target list: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("parse target list %s: %w", s.path, err)
	}

	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		rec := rowToRecord(row)
		if !rec.Valid() {
			s.logger.Warn("skipping target row without identifier", zap.Int("row", i+1))
			continue
		}
		s.records = append(s.records, rec)
	}
	s.loaded = true
	s.logger.Info("target list loaded", zap.Int("targets", len(s.records)))
	return nil
}

// flushLocked 整文件原子重写。调用方须持锁。
func (s *CSVSource) flushLocked() error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp target list: %w", err)
	}
	tmpName := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	for _, rec := range s.records {
		row := []string{rec.Username, rec.URL, rec.Niche, string(rec.Status)}
		if err := w.Write(row); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write target list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("commit target list: %w", err)
	}
	return nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "username")
}

func rowToRecord(row []string) types.TargetRecord {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return types.TargetRecord{
		Username: get(0),
		URL:      get(1),
		Niche:    get(2),
		Status:   types.TargetStatus(strings.ToLower(get(3))),
	}
}
