package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/types"
)

// Decision 一次配额检查的结果。
// Allowed 为 false 时 RetryAfter 给出最早可能放行的等待时间；
// 若动作被预热上限整体禁止，RetryAfter 为 0 且 Forbidden 为 true。
type Decision struct {
	Allowed    bool
	Action     types.ActionType
	Window     types.WindowKind // 拒绝来自哪个窗口（仅拒绝时有意义）
	RetryAfter time.Duration
	Forbidden  bool
	Reason     string
}

// Limiter 双窗口限流器。
//
// 检查与占用是一步原子操作：CheckAndReserve 通过即同时递增小时与
// 天计数并落盘，不存在"检查通过但名额被别人拿走"的窗口期。
// 上限取配置值与预热顶值（若设置）中的较小者。
type Limiter struct {
	mu       sync.Mutex
	platform string
	profile  config.LimitProfile
	store    Store
	ceilings map[types.ActionType]int
	logger   *zap.Logger

	// now 可在测试中替换
	now func() time.Time
}

// NewLimiter 创建限流器
func NewLimiter(platform string, profile config.LimitProfile, store Store, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{
		platform: platform,
		profile:  profile,
		store:    store,
		logger:   logger.With(zap.String("component", "ratelimit"), zap.String("platform", platform)),
		now:      time.Now,
	}
}

// SetCeilings 设置预热期的每日顶值（0 表示该动作完全禁止）。
// 传 nil 清除全部顶值。
func (l *Limiter) SetCeilings(ceilings map[types.ActionType]int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ceilings == nil {
		l.ceilings = nil
		return
	}
	l.ceilings = make(map[types.ActionType]int, len(ceilings))
	for action, v := range ceilings {
		l.ceilings[action] = v
	}
}

// CheckAndReserve 检查 action 是否还有配额，有则占用一个名额。
// 小时窗和天窗都必须放行；任一拒绝则整体拒绝且不消耗名额。
func (l *Limiter) CheckAndReserve(action types.ActionType) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	// 预热顶值为 0：动作整体禁止，没有等待能解决
	if ceiling, ok := l.ceilingFor(action); ok && ceiling == 0 {
		return Decision{
			Action:    action,
			Forbidden: true,
			Reason:    "action forbidden during warmup",
		}, nil
	}

	windows := []types.WindowKind{types.WindowHourly, types.WindowDaily}
	counters := make([]types.ActionCounter, len(windows))

	denied := Decision{Allowed: true, Action: action}
	for i, window := range windows {
		c, err := l.currentCounter(action, window, now)
		if err != nil {
			return Decision{Action: action}, err
		}
		counters[i] = c

		limit := l.effectiveLimit(action, window)
		if c.Count >= limit {
			retryAfter := c.ResetsAt().Sub(now)
			// 多个窗口同时拒绝时，取等待更久的那个才真正可行
			if !denied.Allowed && retryAfter <= denied.RetryAfter {
				continue
			}
			denied = Decision{
				Action:     action,
				Window:     window,
				RetryAfter: retryAfter,
				Reason:     fmt.Sprintf("%s %s limit reached (%d/%d)", window, action, c.Count, limit),
			}
		}
	}
	if !denied.Allowed {
		l.logger.Debug("quota denied",
			zap.String("action", string(action)),
			zap.String("window", string(denied.Window)),
			zap.Duration("retry_after", denied.RetryAfter),
		)
		return denied, nil
	}

	// 放行：两个窗口在同一次原子写入里占用名额，
	// 写入失败时小时窗不会留下半个名额
	for i := range counters {
		counters[i].Count++
	}
	if err := l.store.PutAll(l.platform, counters); err != nil {
		return Decision{Action: action}, fmt.Errorf("reserve %s: %w", action, err)
	}

	return Decision{Allowed: true, Action: action}, nil
}

// Counters 返回当前全部计数器快照（过期窗口已滚动归零）
func (l *Limiter) Counters() ([]types.ActionCounter, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	out := make([]types.ActionCounter, 0, len(types.AllActions)*2)
	for _, action := range types.AllActions {
		for _, window := range []types.WindowKind{types.WindowHourly, types.WindowDaily} {
			c, err := l.currentCounter(action, window, now)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// Seed 用检查点里的计数器预填存储。存储为准：已有记录的键不覆盖，
// 过期的检查点计数直接丢弃。
func (l *Limiter) Seed(counters []types.ActionCounter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, c := range counters {
		if c.Expired(now) {
			continue
		}
		if _, found, err := l.store.Get(l.platform, c.Action, c.Window); err != nil {
			return err
		} else if found {
			continue
		}
		if err := l.store.Put(l.platform, c); err != nil {
			return fmt.Errorf("seed counter %s/%s: %w", c.Action, c.Window, err)
		}
		l.logger.Debug("seeded counter from checkpoint",
			zap.String("action", string(c.Action)),
			zap.String("window", string(c.Window)),
			zap.Int("count", c.Count),
		)
	}
	return nil
}

// currentCounter 读取计数器并在窗口过期时滚动到当前窗口。
// 调用方须持锁。
func (l *Limiter) currentCounter(action types.ActionType, window types.WindowKind, now time.Time) (types.ActionCounter, error) {
	c, found, err := l.store.Get(l.platform, action, window)
	if err != nil {
		return types.ActionCounter{}, err
	}
	if !found || c.Expired(now) {
		c = types.ActionCounter{
			Action:      action,
			Window:      window,
			WindowStart: window.Truncate(now),
			Count:       0,
		}
	}
	return c, nil
}

// effectiveLimit 配置限额与预热顶值取小。顶值只压天窗；
// 小时窗本就远小于天限，预热期不再单独收紧。
func (l *Limiter) effectiveLimit(action types.ActionType, window types.WindowKind) int {
	limit := l.profile.LimitFor(action, window)
	if window == types.WindowDaily {
		if ceiling, ok := l.ceilingFor(action); ok && ceiling < limit {
			limit = ceiling
		}
	}
	return limit
}

func (l *Limiter) ceilingFor(action types.ActionType) (int, bool) {
	if l.ceilings == nil {
		return 0, false
	}
	v, ok := l.ceilings[action]
	return v, ok
}
