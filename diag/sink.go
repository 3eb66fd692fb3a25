package diag

import (
	"time"

	"go.uber.org/zap"
)

// EventKind 诊断事件类别
type EventKind string

const (
	EventSelectorAttempt EventKind = "selector_attempt"  // 一次选择器策略尝试
	EventSelectorMiss    EventKind = "selector_miss"     // 全部策略失败
	EventActionResult    EventKind = "action_result"     // 一个目标上的动作结束
	EventRetry           EventKind = "retry"             // 一次退避重试
	EventRateLimited     EventKind = "rate_limited"      // 配额拒绝
	EventChallenge       EventKind = "challenge"         // 检出验证/封锁
	EventSessionState    EventKind = "session_state"     // 会话状态迁移
)

// Event 一条诊断事件。字段按需填写，消费端容忍缺省。
type Event struct {
	Time      time.Time
	Kind      EventKind
	SessionID string
	Platform  string
	Target    string
	Action    string
	Detail    string
	Err       error
}

// Sink 诊断事件的消费端。Emit 必须快速返回且不可失败，
// 慢消费端自行缓冲。
type Sink interface {
	Emit(ev Event)
}

// =============================================================================
// 内置实现
// =============================================================================

// NopSink 丢弃全部事件
type NopSink struct{}

func (NopSink) Emit(Event) {}

// ZapSink 把事件写进结构化日志
type ZapSink struct {
	logger *zap.Logger
}

var _ Sink = (*ZapSink)(nil)

// NewZapSink 创建日志 sink
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger.With(zap.String("component", "diag"))}
}

func (s *ZapSink) Emit(ev Event) {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
	}
	if ev.SessionID != "" {
		fields = append(fields, zap.String("session_id", ev.SessionID))
	}
	if ev.Platform != "" {
		fields = append(fields, zap.String("platform", ev.Platform))
	}
	if ev.Target != "" {
		fields = append(fields, zap.String("target", ev.Target))
	}
	if ev.Action != "" {
		fields = append(fields, zap.String("action", ev.Action))
	}
	if ev.Detail != "" {
		fields = append(fields, zap.String("detail", ev.Detail))
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}

	switch ev.Kind {
	case EventChallenge, EventSelectorMiss:
		s.logger.Warn("diagnostic event", fields...)
	default:
		s.logger.Debug("diagnostic event", fields...)
	}
}

// MultiSink 扇出到多个 sink
type MultiSink struct {
	sinks []Sink
}

var _ Sink = (*MultiSink)(nil)

// NewMultiSink 组合多个 sink，nil 项被忽略
func NewMultiSink(sinks ...Sink) *MultiSink {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiSink{sinks: out}
}

func (m *MultiSink) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}
