package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/types"
)

// Operation 是调用方提供的一次可失败工作单元
type Operation func(ctx context.Context) error

// Executor 按退避策略执行操作。
// 保证: 操作最多被调用 MaxAttempts 次；每次等待都可被 ctx 取消打断。
type Executor struct {
	cfg      config.BackoffConfig
	classify Classifier
	logger   *zap.Logger

	// OnRetry 每次重试前回调（日志/指标用途）
	OnRetry func(op string, attempt int, kind types.FailureKind, delay time.Duration)
}

// NewExecutor 创建重试执行器
func NewExecutor(cfg config.BackoffConfig, classifier Classifier, logger *zap.Logger) *Executor {
	if classifier == nil {
		classifier = DefaultClassifier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 2.0
	}
	if cfg.RateLimitMultiplier < 1.0 {
		cfg.RateLimitMultiplier = 10.0
	}
	return &Executor{
		cfg:      cfg,
		classify: classifier,
		logger:   logger.With(zap.String("component", "retry")),
	}
}

// Execute 执行 fn，失败时按分类决定是否以及等多久后重试。
//
// Blocked 与 Fatal 永不重试，立即返回；NotFound / Transient / RateLimited
// 在尝试次数内重试，耗尽后按 Fatal 升级返回。返回值要么是 nil，
// 要么是带最终分类与尝试次数的 *types.Failure —— 失败从不被吞掉。
func (e *Executor) Execute(ctx context.Context, op string, fn Operation) error {
	var lastErr error
	var lastKind types.FailureKind

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.NewFailure(types.FailureFatal, op, "cancelled").
				WithCause(err).WithAttempts(attempt - 1)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				e.logger.Info("operation succeeded after retry",
					zap.String("op", op),
					zap.Int("attempt", attempt),
				)
			}
			return nil
		}

		lastKind = e.classify(lastErr)

		// 封锁信号不归这里处理：交给上层去暂停会话
		if !lastKind.Retryable() {
			e.logger.Debug("failure is not retryable",
				zap.String("op", op),
				zap.String("kind", string(lastKind)),
				zap.Error(lastErr),
			)
			return types.NewFailure(lastKind, op, "not retryable").
				WithCause(lastErr).WithAttempts(attempt)
		}

		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := e.Delay(lastKind, attempt)

		e.logger.Debug("retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.cfg.MaxAttempts),
			zap.String("kind", string(lastKind)),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if e.OnRetry != nil {
			e.OnRetry(op, attempt, lastKind, delay)
		}

		// 等待期间监听取消：暂停请求必须立即中断睡眠
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return types.NewFailure(types.FailureFatal, op, "cancelled during backoff").
				WithCause(ctx.Err()).WithAttempts(attempt)
		case <-timer.C:
		}
	}

	e.logger.Warn("attempts exhausted",
		zap.String("op", op),
		zap.Int("attempts", e.cfg.MaxAttempts),
		zap.String("last_kind", string(lastKind)),
		zap.Error(lastErr),
	)

	// 重试额度耗尽后对该动作升级为 Fatal（会话由上层决定是否继续）
	return types.NewFailure(types.FailureFatal, op,
		fmt.Sprintf("exhausted %d attempts (last: %s)", e.cfg.MaxAttempts, lastKind)).
		WithCause(lastErr).WithAttempts(e.cfg.MaxAttempts)
}

// Delay 计算第 attempt 次失败后的等待时间（attempt 从 1 开始）。
// 指数退避: base * multiplier^(attempt-1)，封顶 MaxDelay；
// RateLimited 在封顶后整体放大 RateLimitMultiplier 倍，
// 避免继续锤一个已经限流的端点。
//
// 不变量: 同一尝试序号下，RateLimited 的等待恒不低于任何可能的
// Transient 等待的 RateLimitMultiplier 倍，抖动不破坏这个比例。
func (e *Executor) Delay(kind types.FailureKind, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	d := float64(e.cfg.BaseDelay) * math.Pow(e.cfg.Multiplier, float64(attempt-1))
	if max := float64(e.cfg.MaxDelay); e.cfg.MaxDelay > 0 && d > max {
		d = max
	}

	// RateLimited 只向上抖动，下界压在 Transient 抖动上界的放大倍数
	if kind == types.FailureRateLimited {
		d *= e.cfg.RateLimitMultiplier
		if e.cfg.Jitter {
			d *= 1.25 + 0.25*rand.Float64()
		}
		return time.Duration(d)
	}

	// 抖动（±25%）防止与其他客户端同步重试
	if e.cfg.Jitter {
		d += d * 0.25 * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}

	return time.Duration(d)
}
