package protector

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/types"
)

// Stage 账号预热阶段
type Stage string

const (
	StageNew         Stage = "new"         // 注册不满一周
	StageRamping     Stage = "ramping"     // 一周到一个月
	StageEstablished Stage = "established" // 满月，不再额外压限
)

// 各阶段相对配置限额的比例
const (
	fractionNew     = 0.25
	fractionRamping = 0.5
)

const (
	newAccountMaxAge     = 7 * 24 * time.Hour
	rampingAccountMaxAge = 30 * 24 * time.Hour
)

// TrustState 保护器对当前账号的评估结果。
// 派生值，不单独持久化；每个目标处理前重新计算。
type TrustState struct {
	Stage     Stage
	AutoPause bool
	// Ceilings 叠加在限流器之上的每日顶值（更紧者生效）。
	// 空 map 表示不压限。
	Ceilings map[types.ActionType]int
}

// Protector 账号保护器：预热压限 + 连续封锁熔断。
//
// 新账号按阶段只拿到配置限额的一个比例；滚动窗口内
// Blocked/Fatal 次数越过阈值即置 AutoPause，由编排器暂停会话。
type Protector struct {
	mu       sync.Mutex
	cfg      config.ProtectionConfig
	profile  config.LimitProfile
	logger   *zap.Logger
	failures []time.Time

	// now 可在测试中替换
	now func() time.Time
}

// New 创建保护器
func New(cfg config.ProtectionConfig, profile config.LimitProfile, logger *zap.Logger) *Protector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protector{
		cfg:     cfg,
		profile: profile,
		logger:  logger.With(zap.String("component", "protector")),
		now:     time.Now,
	}
}

// Assess 计算当前信任状态。编排器在每个目标前调用。
func (p *Protector) Assess() TrustState {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.cfg.Enabled {
		return TrustState{Stage: StageEstablished}
	}

	state := TrustState{
		Stage:     p.stage(),
		AutoPause: p.autoPauseLocked(),
	}
	if p.cfg.EnforceWarmup {
		state.Ceilings = p.ceilingsFor(state.Stage)
	}
	return state
}

// RecordOutcome 喂入一次动作结果。只有 Blocked/Fatal 计入熔断窗口。
func (p *Protector) RecordOutcome(kind types.FailureKind) {
	if kind != types.FailureBlocked && kind != types.FailureFatal {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	p.failures = append(p.failures, now)
	p.pruneLocked(now)

	if p.cfg.Enabled && len(p.failures) >= p.cfg.AutoPauseThreshold {
		p.logger.Warn("failure threshold crossed, requesting auto-pause",
			zap.Int("failures", len(p.failures)),
			zap.Int("threshold", p.cfg.AutoPauseThreshold),
			zap.Duration("window", p.cfg.AutoPauseWindow),
		)
	}
}

// ClearPause 清空熔断窗口。人工恢复会话时调用，
// 否则刚恢复就会再次触发暂停。
func (p *Protector) ClearPause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = nil
}

func (p *Protector) stage() Stage {
	age := time.Duration(p.cfg.AccountAgeDays) * 24 * time.Hour
	switch {
	case age < newAccountMaxAge:
		return StageNew
	case age < rampingAccountMaxAge:
		return StageRamping
	default:
		return StageEstablished
	}
}

// ceilingsFor 预热阶段的每日顶值。私信对新账号直接禁止：
// 没有历史的账号一上来就发 DM 是最快的封号路径。
func (p *Protector) ceilingsFor(stage Stage) map[types.ActionType]int {
	var fraction float64
	switch stage {
	case StageNew:
		fraction = fractionNew
	case StageRamping:
		fraction = fractionRamping
	default:
		return nil
	}

	ceilings := make(map[types.ActionType]int, len(types.AllActions))
	for _, action := range types.AllActions {
		limit := p.profile.LimitFor(action, types.WindowDaily)
		ceilings[action] = int(math.Floor(float64(limit) * fraction))
	}
	if stage == StageNew {
		ceilings[types.ActionMessage] = 0
	}
	return ceilings
}

func (p *Protector) autoPauseLocked() bool {
	p.pruneLocked(p.now())
	return p.cfg.AutoPauseThreshold > 0 && len(p.failures) >= p.cfg.AutoPauseThreshold
}

// pruneLocked 丢掉滚动窗口外的失败记录。调用方须持锁。
func (p *Protector) pruneLocked(now time.Time) {
	cutoff := now.Add(-p.cfg.AutoPauseWindow)
	kept := p.failures[:0]
	for _, t := range p.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.failures = kept
}
