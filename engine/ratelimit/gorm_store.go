package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/outreachflow/internal/database"
	"github.com/BaSui01/outreachflow/types"
)

// CounterRecord 计数器的数据库行。
// (platform, action, window) 唯一，一行对应一个滚动窗口。
type CounterRecord struct {
	ID          uint      `gorm:"primaryKey"`
	Platform    string    `gorm:"size:32;uniqueIndex:idx_counter_key"`
	Action      string    `gorm:"size:16;uniqueIndex:idx_counter_key"`
	Window      string    `gorm:"size:16;uniqueIndex:idx_counter_key"`
	WindowStart time.Time `gorm:"not null"`
	Count       int       `gorm:"not null;default:0"`
	UpdatedAt   time.Time
}

// TableName 表名
func (CounterRecord) TableName() string { return "action_counters" }

// GormStore 把计数器存进 SQLite（经 GORM）
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore 创建数据库存储并确保表结构
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := database.Migrate(db, &CounterRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Get(platform string, action types.ActionType, window types.WindowKind) (types.ActionCounter, bool, error) {
	var rec CounterRecord
	err := s.db.
		Where("platform = ? AND action = ? AND window = ?", platform, string(action), string(window)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ActionCounter{}, false, nil
	}
	if err != nil {
		return types.ActionCounter{}, false, fmt.Errorf("load counter: %w", err)
	}
	return recordToCounter(rec), true, nil
}

func (s *GormStore) Put(platform string, c types.ActionCounter) error {
	if err := putCounter(s.db, platform, c); err != nil {
		return fmt.Errorf("save counter: %w", err)
	}
	return nil
}

// PutAll 在一个事务里写入全部计数器：部分写入会整体回滚
func (s *GormStore) PutAll(platform string, counters []types.ActionCounter) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, c := range counters {
			if err := putCounter(tx, platform, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	return nil
}

func putCounter(db *gorm.DB, platform string, c types.ActionCounter) error {
	rec := CounterRecord{
		Platform:    platform,
		Action:      string(c.Action),
		Window:      string(c.Window),
		WindowStart: c.WindowStart,
		Count:       c.Count,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "action"}, {Name: "window"}},
		DoUpdates: clause.AssignmentColumns([]string{"window_start", "count", "updated_at"}),
	}).Create(&rec).Error
}

func (s *GormStore) All(platform string) ([]types.ActionCounter, error) {
	var recs []CounterRecord
	if err := s.db.Where("platform = ?", platform).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	out := make([]types.ActionCounter, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordToCounter(rec))
	}
	return out, nil
}

// Close 关闭底层连接
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func recordToCounter(rec CounterRecord) types.ActionCounter {
	return types.ActionCounter{
		Action:      types.ActionType(rec.Action),
		Window:      types.WindowKind(rec.Window),
		WindowStart: rec.WindowStart,
		Count:       rec.Count,
	}
}
