package selector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/diag"
	"github.com/BaSui01/outreachflow/types"
)

// ElementHandle 已定位到的页面元素
type ElementHandle interface {
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
}

// PageHandle 解析器对页面的全部要求。
// Find 在超时内定位元素，找不到返回错误。
type PageHandle interface {
	Find(ctx context.Context, strategy Strategy) (ElementHandle, error)
}

// ResolutionFailure 全部策略都失败时的错误，带上完整的尝试轨迹
type ResolutionFailure struct {
	Name      string
	Attempted []Strategy
	LastErr   error
}

func (f *ResolutionFailure) Error() string {
	tried := make([]string, len(f.Attempted))
	for i, s := range f.Attempted {
		tried[i] = s.String()
	}
	return fmt.Sprintf("selector %q: all %d strategies failed (tried %s): %v",
		f.Name, len(f.Attempted), strings.Join(tried, ", "), f.LastErr)
}

func (f *ResolutionFailure) Unwrap() error { return f.LastErr }

// Resolver 按声明顺序对页面尝试选择器的各个策略
type Resolver struct {
	registry *Registry
	sink     diag.Sink
	logger   *zap.Logger
}

// NewResolver 创建解析器
func NewResolver(registry *Registry, sink diag.Sink, logger *zap.Logger) *Resolver {
	if sink == nil {
		sink = diag.NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry: registry,
		sink:     sink,
		logger:   logger.With(zap.String("component", "selector")),
	}
}

// Resolve 依次尝试 name 的每条策略，第一条命中的立即返回。
// 全部失败返回 NotFound 级 *types.Failure，cause 是 *ResolutionFailure。
// 策略顺序严格按注册顺序，前一条失败才会试下一条。
func (r *Resolver) Resolve(ctx context.Context, page PageHandle, name string) (ElementHandle, error) {
	sel, ok := r.registry.Get(name)
	if !ok {
		return nil, types.NewFailure(types.FailureFatal, "resolve",
			fmt.Sprintf("unknown selector %q for platform %s", name, r.registry.platform))
	}

	var attempted []Strategy
	var lastErr error

	for i, strategy := range sel.Strategies {
		if err := ctx.Err(); err != nil {
			return nil, types.NewFailure(types.FailureFatal, "resolve", "cancelled").WithCause(err)
		}

		findCtx, cancel := context.WithTimeout(ctx, r.registry.timeoutFor(strategy))
		el, err := page.Find(findCtx, strategy)
		cancel()

		attempted = append(attempted, strategy)
		r.sink.Emit(diag.Event{
			Time:     time.Now(),
			Kind:     diag.EventSelectorAttempt,
			Platform: r.registry.platform,
			Detail:   fmt.Sprintf("%s[%d] %s", name, i, strategy),
			Err:      err,
		})

		if err == nil {
			if i > 0 {
				r.logger.Debug("selector resolved via fallback",
					zap.String("selector", name),
					zap.Int("strategy_index", i),
					zap.String("strategy", strategy.String()),
				)
			}
			return el, nil
		}
		lastErr = err
	}

	failure := &ResolutionFailure{Name: name, Attempted: attempted, LastErr: lastErr}
	r.sink.Emit(diag.Event{
		Time:     time.Now(),
		Kind:     diag.EventSelectorMiss,
		Platform: r.registry.platform,
		Detail:   name,
		Err:      failure,
	})
	r.logger.Warn("selector exhausted all strategies",
		zap.String("selector", name),
		zap.Int("strategies", len(attempted)),
		zap.Error(lastErr),
	)

	return nil, types.NewFailure(types.FailureNotFound, "resolve", "selector exhausted").
		WithCause(failure)
}
