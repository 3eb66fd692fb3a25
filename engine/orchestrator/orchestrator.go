package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/diag"
	"github.com/BaSui01/outreachflow/engine/checkpoint"
	"github.com/BaSui01/outreachflow/engine/detector"
	"github.com/BaSui01/outreachflow/engine/protector"
	"github.com/BaSui01/outreachflow/engine/ratelimit"
	"github.com/BaSui01/outreachflow/engine/retry"
	"github.com/BaSui01/outreachflow/types"
)

// ActionExecutor 实际的浏览器动作，由外部提供
type ActionExecutor interface {
	Perform(ctx context.Context, target types.TargetRecord, action types.ActionType) error
}

// SignalSource 动作层采集页面信号，喂给检测器
type SignalSource interface {
	Signals(ctx context.Context) (detector.PageSignals, error)
}

// TargetSource 目标列表的来源与状态回写
type TargetSource interface {
	Targets(ctx context.Context) ([]types.TargetRecord, error)
	UpdateStatus(ctx context.Context, target types.TargetRecord, status types.TargetStatus) error
}

// ArtifactCollector 挑战与失败时采集现场（截图等）。
// 尽力而为，失败只记日志。
type ArtifactCollector interface {
	Capture(ctx context.Context, sessionID, label string)
}

// Deps 编排器的全部依赖
type Deps struct {
	Config      *config.Config
	Session     *types.Session // nil 表示开新会话
	Limiter     *ratelimit.Limiter
	Retry       *retry.Executor
	Protector   *protector.Protector
	Detector    *detector.Detector
	Checkpoints checkpoint.Store
	Targets     TargetSource
	Executor    ActionExecutor
	Signals     SignalSource // 可空：不做封锁检测
	Artifacts   ArtifactCollector
	Sink        diag.Sink
	Logger      *zap.Logger
}

// Orchestrator 会话编排器：单控制环，一次一个目标一个动作。
//
// 状态机: Starting → Running → {Paused ⇄ Running} → {Completed | Aborted}。
// 每处理完一个目标都落检查点；所有等待都可被取消或恢复信号打断。
type Orchestrator struct {
	cfg       *config.Config
	session   *types.Session
	limiter   *ratelimit.Limiter
	retry     *retry.Executor
	protector *protector.Protector
	detector  *detector.Detector
	store     checkpoint.Store
	targets   TargetSource
	executor  ActionExecutor
	signals   SignalSource
	artifacts ArtifactCollector
	sink      diag.Sink
	logger    *zap.Logger

	profile config.LimitProfile
	pacer   *rate.Limiter
	resume  chan struct{}
}

// New 创建编排器
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("orchestrator: config is required")
	case deps.Limiter == nil:
		return nil, errors.New("orchestrator: limiter is required")
	case deps.Retry == nil:
		return nil, errors.New("orchestrator: retry executor is required")
	case deps.Checkpoints == nil:
		return nil, errors.New("orchestrator: checkpoint store is required")
	case deps.Targets == nil:
		return nil, errors.New("orchestrator: target source is required")
	case deps.Executor == nil:
		return nil, errors.New("orchestrator: action executor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Sink == nil {
		deps.Sink = diag.NopSink{}
	}
	if deps.Protector == nil {
		deps.Protector = protector.New(config.ProtectionConfig{}, deps.Config.Limits.Profile(deps.Config.Mode), deps.Logger)
	}
	if deps.Detector == nil {
		deps.Detector = detector.New(config.DetectorConfig{}, deps.Logger)
	}

	session := deps.Session
	if session == nil {
		session = types.NewSession(deps.Config.Platform)
	}

	profile := deps.Config.Limits.Profile(deps.Config.Mode)
	between := profile.CooldownBetweenTargets
	if between <= 0 {
		between = time.Second
	}

	return &Orchestrator{
		cfg:       deps.Config,
		session:   session,
		limiter:   deps.Limiter,
		retry:     deps.Retry,
		protector: deps.Protector,
		detector:  deps.Detector,
		store:     deps.Checkpoints,
		targets:   deps.Targets,
		executor:  deps.Executor,
		signals:   deps.Signals,
		artifacts: deps.Artifacts,
		sink:      deps.Sink,
		logger: deps.Logger.With(
			zap.String("component", "orchestrator"),
			zap.String("session_id", session.ID),
			zap.String("platform", deps.Config.Platform),
		),
		profile: profile,
		// 目标之间的节流：令牌桶，起步即有一个令牌
		pacer:  rate.NewLimiter(rate.Every(between), 1),
		resume: make(chan struct{}, 1),
	}, nil
}

// SessionID 会话 ID
func (o *Orchestrator) SessionID() string { return o.session.ID }

// Session 当前会话工作副本的快照
func (o *Orchestrator) Session() types.Session { return *o.session }

// Resume 外部恢复信号。会话未暂停时信号被缓存，
// 下一次暂停立即放行，调用永不阻塞。
func (o *Orchestrator) Resume() {
	select {
	case o.resume <- struct{}{}:
	default:
	}
}

// Run 执行会话直到目标耗尽、取消或不可恢复失败。
// 返回 nil 表示 Completed；ctx 取消返回 ctx 错误且检查点
// 精确反映最后一个完成的目标。
func (o *Orchestrator) Run(ctx context.Context) error {
	list, err := o.targets.Targets(ctx)
	if err != nil {
		return o.abort(ctx, fmt.Errorf("load targets: %w", err))
	}
	o.session.Total = len(list)
	o.session.Status = types.SessionRunning
	o.emitState("running")
	if err := o.save(ctx); err != nil {
		return o.abort(ctx, err)
	}

	o.logger.Info("session started",
		zap.Int("targets", len(list)),
		zap.Int("cursor", o.session.Cursor),
		zap.String("mode", o.cfg.Mode),
	)

	for o.session.Cursor < len(list) {
		if err := ctx.Err(); err != nil {
			// 退出前落盘，检查点对应最后一个完成的目标
			o.saveBestEffort()
			return err
		}

		target := list[o.session.Cursor]

		if target.Status.IsTerminal() {
			o.session.Skipped++
			o.session.Advance()
			if err := o.save(ctx); err != nil {
				return o.abort(ctx, err)
			}
			continue
		}

		// 每个目标前评估账号状态
		trust := o.protector.Assess()
		o.limiter.SetCeilings(trust.Ceilings)
		if trust.AutoPause {
			if err := o.pause(ctx, "protector auto-pause"); err != nil {
				return err
			}
			continue // 同一目标重新来
		}

		outcome, err := o.processTarget(ctx, target)
		if err != nil {
			return err // 已经是 abort / ctx 错误
		}

		switch outcome {
		case outcomePaused:
			continue // 不前进，恢复后重试同一目标
		case outcomeSucceeded:
			o.session.Succeeded++
			o.updateTargetStatus(ctx, target, types.TargetSent)
		case outcomeFailed:
			o.session.Failed++
			o.updateTargetStatus(ctx, target, types.TargetFailed)
		case outcomeSkipped:
			o.session.Skipped++
			o.updateTargetStatus(ctx, target, types.TargetSkip)
		}

		o.session.Advance()
		if err := o.save(ctx); err != nil {
			return o.abort(ctx, err)
		}

		if o.session.Cursor < len(list) {
			if err := o.cooldown(ctx); err != nil {
				o.saveBestEffort()
				return err
			}
		}
	}

	o.session.Status = types.SessionCompleted
	o.emitState("completed")
	if err := o.save(ctx); err != nil {
		return o.abort(ctx, err)
	}
	o.logger.Info("session completed",
		zap.Int("succeeded", o.session.Succeeded),
		zap.Int("failed", o.session.Failed),
		zap.Int("skipped", o.session.Skipped),
	)
	return nil
}

type targetOutcome int

const (
	outcomeSucceeded targetOutcome = iota
	outcomeFailed
	outcomeSkipped
	outcomePaused
)

// processTarget 对一个目标跑全部配置动作。
// 返回的 error 非 nil 表示会话级失败（已 abort 或 ctx 取消）。
func (o *Orchestrator) processTarget(ctx context.Context, target types.TargetRecord) (targetOutcome, error) {
	performed := 0

	for _, action := range o.cfg.Actions {
		allowed, err := o.acquireQuota(ctx, target, action)
		if err != nil {
			return 0, err
		}
		if !allowed {
			continue // 预热禁止该动作：跳过动作本身，目标照常处理
		}

		err = o.retry.Execute(ctx, string(action), func(ctx context.Context) error {
			return o.executor.Perform(ctx, target, action)
		})

		o.sink.Emit(diag.Event{
			Kind:      diag.EventActionResult,
			SessionID: o.session.ID,
			Platform:  o.session.Platform,
			Target:    target.Key(),
			Action:    string(action),
			Err:       err,
		})

		if err != nil {
			kind := types.KindOf(err)
			o.protector.RecordOutcome(kind)
			o.session.AddNote("%s %s failed: %v", target.Key(), action, err)

			if kind == types.FailureBlocked {
				o.captureArtifacts(ctx, "blocked")
				if perr := o.pause(ctx, fmt.Sprintf("blocked during %s", action)); perr != nil {
					return 0, perr
				}
				return outcomePaused, nil
			}

			// Fatal（含重试耗尽）：记下，放弃这个目标，会话继续
			o.logger.Warn("target failed",
				zap.String("target", target.Key()),
				zap.String("action", string(action)),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			o.captureArtifacts(ctx, "failed")
			return outcomeFailed, nil
		}

		performed++

		// 动作后检查页面有没有被挑战
		if challenged, err := o.inspectPage(ctx); err != nil {
			return 0, err
		} else if challenged {
			return outcomePaused, nil
		}

		if err := o.actionCooldown(ctx, action); err != nil {
			o.saveBestEffort()
			return 0, err
		}
	}

	if performed == 0 {
		o.session.AddNote("%s: every action forbidden or denied, skipped", target.Key())
		return outcomeSkipped, nil
	}
	return outcomeSucceeded, nil
}

// acquireQuota 向限流器要一个名额，被拒则等到窗口重置。
// 返回 false 表示该动作被预热整体禁止。
func (o *Orchestrator) acquireQuota(ctx context.Context, target types.TargetRecord, action types.ActionType) (bool, error) {
	for {
		decision, err := o.limiter.CheckAndReserve(action)
		if err != nil {
			return false, o.abort(ctx, fmt.Errorf("rate limiter: %w", err))
		}
		if decision.Allowed {
			return true, nil
		}
		if decision.Forbidden {
			o.logger.Debug("action forbidden by warmup", zap.String("action", string(action)))
			return false, nil
		}

		o.sink.Emit(diag.Event{
			Kind:      diag.EventRateLimited,
			SessionID: o.session.ID,
			Platform:  o.session.Platform,
			Target:    target.Key(),
			Action:    string(action),
			Detail:    decision.Reason,
		})
		o.logger.Info("quota exhausted, waiting for window reset",
			zap.String("action", string(action)),
			zap.String("window", string(decision.Window)),
			zap.Duration("retry_after", decision.RetryAfter),
		)
		if err := o.sleep(ctx, decision.RetryAfter); err != nil {
			o.saveBestEffort()
			return false, err
		}
	}
}

// inspectPage 采集页面信号并交给检测器。
// 检出挑战即暂停并等待恢复；返回 true 表示发生过暂停。
func (o *Orchestrator) inspectPage(ctx context.Context) (bool, error) {
	if o.signals == nil {
		return false, nil
	}
	signals, err := o.signals.Signals(ctx)
	if err != nil {
		// 采不到信号不致命，下一个动作再看
		o.logger.Debug("page signal capture failed", zap.Error(err))
		return false, nil
	}

	verdict := o.detector.Inspect(signals)
	if !verdict.Challenged {
		return false, nil
	}

	o.sink.Emit(diag.Event{
		Kind:      diag.EventChallenge,
		SessionID: o.session.ID,
		Platform:  o.session.Platform,
		Detail:    verdict.Kind,
	})
	o.protector.RecordOutcome(types.FailureBlocked)
	o.session.AddNote("challenge detected: %s (%s)", verdict.Kind, verdict.Matched)
	o.captureArtifacts(ctx, "challenge_"+verdict.Kind)

	if err := o.pause(ctx, "challenge: "+verdict.Kind); err != nil {
		return false, err
	}
	return true, nil
}

// pause 暂停会话并阻塞到外部恢复信号或取消
func (o *Orchestrator) pause(ctx context.Context, reason string) error {
	o.session.Status = types.SessionPaused
	o.session.AddNote("paused: %s", reason)
	o.emitState("paused")
	o.saveBestEffort()

	o.logger.Warn("session paused, waiting for resume signal", zap.String("reason", reason))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-o.resume:
	}

	o.protector.ClearPause()
	o.session.Status = types.SessionRunning
	o.session.AddNote("resumed")
	o.emitState("running")
	o.saveBestEffort()
	o.logger.Info("session resumed")
	return nil
}

// abort 不可恢复的子系统故障：标记 Aborted 并尽力落盘
func (o *Orchestrator) abort(ctx context.Context, cause error) error {
	o.session.Status = types.SessionAborted
	o.session.AddNote("aborted: %v", cause)
	o.emitState("aborted")
	o.saveBestEffort()
	o.logger.Error("session aborted", zap.Error(cause))
	return types.NewFailure(types.FailureFatal, "session", "aborted").WithCause(cause)
}

// cooldown 目标之间的节流等待
func (o *Orchestrator) cooldown(ctx context.Context) error {
	return o.pacer.Wait(ctx)
}

// actionCooldown 特定动作后的额外冷却，带 ±20% 抖动
func (o *Orchestrator) actionCooldown(ctx context.Context, action types.ActionType) error {
	d := o.profile.CooldownAfter(action)
	if d <= 0 {
		return nil
	}
	jittered := d + time.Duration(float64(d)*0.2*(rand.Float64()*2-1))
	return o.sleep(ctx, jittered)
}

// sleep 可取消的等待
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) save(ctx context.Context) error {
	counters, err := o.limiter.Counters()
	if err != nil {
		return fmt.Errorf("snapshot counters: %w", err)
	}
	o.session.UpdatedAt = time.Now()
	return o.store.Save(ctx, &checkpoint.Checkpoint{
		Session:  *o.session,
		Counters: counters,
		Mode:     o.cfg.Mode,
		SavedAt:  time.Now(),
	})
}

// saveBestEffort 在退出路径上落盘，失败只记日志
func (o *Orchestrator) saveBestEffort() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.save(ctx); err != nil {
		o.logger.Error("checkpoint save failed on exit path", zap.Error(err))
	}
}

func (o *Orchestrator) updateTargetStatus(ctx context.Context, target types.TargetRecord, status types.TargetStatus) {
	if err := o.targets.UpdateStatus(ctx, target, status); err != nil {
		o.logger.Warn("target status write-back failed",
			zap.String("target", target.Key()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) emitState(state string) {
	o.sink.Emit(diag.Event{
		Kind:      diag.EventSessionState,
		SessionID: o.session.ID,
		Platform:  o.session.Platform,
		Detail:    state,
	})
}

func (o *Orchestrator) captureArtifacts(ctx context.Context, label string) {
	if o.artifacts == nil {
		return
	}
	o.artifacts.Capture(ctx, o.session.ID, label)
}
