// Package outreachflow 把引擎的各个部件装配成可直接使用的门面：
// 新建会话、恢复会话、列出历史会话。
//
// 浏览器、目标列表等协作件由调用方注入，引擎核心不关心它们的实现。
package outreachflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/diag"
	"github.com/BaSui01/outreachflow/engine/checkpoint"
	"github.com/BaSui01/outreachflow/engine/detector"
	"github.com/BaSui01/outreachflow/engine/orchestrator"
	"github.com/BaSui01/outreachflow/engine/protector"
	"github.com/BaSui01/outreachflow/engine/ratelimit"
	"github.com/BaSui01/outreachflow/engine/retry"
	"github.com/BaSui01/outreachflow/internal/database"
	"github.com/BaSui01/outreachflow/types"
)

// Collaborators 引擎消费但不实现的外部协作件。
// Targets 与 Executor 必填；Signals 为空则不做封锁检测，
// Artifacts 为空则不抓现场。
type Collaborators struct {
	Targets   orchestrator.TargetSource
	Executor  orchestrator.ActionExecutor
	Signals   orchestrator.SignalSource
	Artifacts orchestrator.ArtifactCollector
}

// Engine 装配好的引擎：持久化层与诊断层在会话间共享
type Engine struct {
	cfg         *config.Config
	logger      *zap.Logger
	sink        diag.Sink
	checkpoints checkpoint.Store
	counters    ratelimit.Store
}

// New 打开持久化层并装配引擎
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	counters, err := ratelimit.NewGormStore(db)
	if err != nil {
		return nil, err
	}

	checkpoints, err := checkpoint.Open(ctx, cfg.Checkpoint, cfg.Redis, logger)
	if err != nil {
		counters.Close()
		return nil, err
	}

	return &Engine{
		cfg:         cfg,
		logger:      logger,
		sink:        diag.NewMultiSink(diag.NewZapSink(logger), diag.NewMetricsSink()),
		checkpoints: checkpoints,
		counters:    counters,
	}, nil
}

// NewSession 装配一个全新会话的编排器。调用方负责 Run。
func (e *Engine) NewSession(collab Collaborators) (*orchestrator.Orchestrator, error) {
	return e.assemble(nil, nil, collab)
}

// ResumeSession 从检查点恢复会话：还原游标与状态，
// 并用持久化的计数器预填限流器。
func (e *Engine) ResumeSession(ctx context.Context, sessionID string, collab Collaborators) (*orchestrator.Orchestrator, error) {
	cp, err := e.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if !cp.Session.Status.IsResumable() {
		return nil, fmt.Errorf("session %s is %s and cannot be resumed", sessionID, cp.Session.Status)
	}

	session := cp.Session
	return e.assemble(&session, cp.Counters, collab)
}

// Sessions 列出全部会话摘要，最近的在前
func (e *Engine) Sessions(ctx context.Context) ([]types.SessionSummary, error) {
	cps, err := e.checkpoints.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.SessionSummary, 0, len(cps))
	for _, cp := range cps {
		out = append(out, types.SessionSummary{
			ID:        cp.Session.ID,
			Platform:  cp.Session.Platform,
			Status:    cp.Session.Status,
			StartedAt: cp.Session.StartedAt,
			UpdatedAt: cp.Session.UpdatedAt,
			Cursor:    cp.Session.Cursor,
			Total:     cp.Session.Total,
		})
	}
	return out, nil
}

// Close 关闭持久化层
func (e *Engine) Close() error {
	if err := e.checkpoints.Close(); err != nil {
		return err
	}
	return e.counters.Close()
}

func (e *Engine) assemble(session *types.Session, seed []types.ActionCounter, collab Collaborators) (*orchestrator.Orchestrator, error) {
	profile := e.cfg.Limits.Profile(e.cfg.Mode)
	if session == nil {
		session = types.NewSession(e.cfg.Platform)
	}

	limiter := ratelimit.NewLimiter(e.cfg.Platform, profile, e.counters, e.logger)
	if len(seed) > 0 {
		// 存储为准：只填存储里没有的键
		if err := limiter.Seed(seed); err != nil {
			return nil, fmt.Errorf("seed counters: %w", err)
		}
	}

	// 每次退避重试也走诊断口，逐次失败不会只留在日志里
	retryExec := retry.NewExecutor(e.cfg.Backoff, retry.DefaultClassifier, e.logger)
	sessionID := session.ID
	retryExec.OnRetry = func(op string, attempt int, kind types.FailureKind, delay time.Duration) {
		e.sink.Emit(diag.Event{
			Kind:      diag.EventRetry,
			SessionID: sessionID,
			Platform:  e.cfg.Platform,
			Action:    op,
			Detail:    fmt.Sprintf("%s, attempt %d, waiting %s", kind, attempt, delay),
		})
	}

	return orchestrator.New(orchestrator.Deps{
		Config:      e.cfg,
		Session:     session,
		Limiter:     limiter,
		Retry:       retryExec,
		Protector:   protector.New(e.cfg.Protection, profile, e.logger),
		Detector:    detector.New(e.cfg.Detector, e.logger),
		Checkpoints: e.checkpoints,
		Targets:     collab.Targets,
		Executor:    collab.Executor,
		Signals:     collab.Signals,
		Artifacts:   collab.Artifacts,
		Sink:        e.sink,
		Logger:      e.logger,
	})
}
