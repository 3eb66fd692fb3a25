package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/types"
)

func testConfig() config.BackoffConfig {
	return config.BackoffConfig{
		MaxAttempts:         3,
		BaseDelay:           10 * time.Millisecond,
		MaxDelay:            200 * time.Millisecond,
		Multiplier:          2.0,
		RateLimitMultiplier: 10.0,
		Jitter:              false,
	}
}

func TestExecuteFirstAttemptSucceeds(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), "view", func(ctx context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, calls, "应该只调用一次")
}

func TestExecuteTransientThenSuccess(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	var delays []time.Duration
	e.OnRetry = func(op string, attempt int, kind types.FailureKind, delay time.Duration) {
		delays = append(delays, delay)
	}

	calls := 0
	err := e.Execute(context.Background(), "follow", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return types.NewFailure(types.FailureTransient, "follow", "stale element")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls, "成功前应恰好调用三次")
	require.Len(t, delays, 2)
	assert.Greater(t, delays[1], delays[0], "第二次等待应长于第一次（指数增长）")
}

func TestExecuteExhaustedEscalatesToFatal(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), "like", func(ctx context.Context) error {
		calls++
		return types.NewFailure(types.FailureTransient, "like", "timeout")
	})

	assert.Equal(t, 3, calls)
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, types.FailureFatal, f.Kind)
	assert.Equal(t, 3, f.Attempts)
}

func TestExecuteBlockedNeverRetried(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), "message", func(ctx context.Context) error {
		calls++
		return types.NewFailure(types.FailureBlocked, "message", "action blocked")
	})

	assert.Equal(t, 1, calls, "Blocked 不应重试")
	var f *types.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, types.FailureBlocked, f.Kind)
}

func TestExecuteFatalNeverRetried(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), "view", func(ctx context.Context) error {
		calls++
		return errors.New("invalid selector syntax")
	})

	assert.Equal(t, 1, calls)
	assert.Equal(t, types.FailureFatal, types.KindOf(err))
}

func TestExecuteNotFoundBoundedRetry(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	calls := 0
	err := e.Execute(context.Background(), "follow", func(ctx context.Context) error {
		calls++
		return types.NewFailure(types.FailureNotFound, "follow", "selector exhausted")
	})

	assert.Equal(t, 3, calls, "NotFound 应有界重试")
	assert.Equal(t, types.FailureFatal, types.KindOf(err), "耗尽后按 Fatal 升级")
}

func TestExecuteCancelledDuringBackoff(t *testing.T) {
	cfg := testConfig()
	cfg.BaseDelay = 10 * time.Second // 远长于测试允许时间
	e := NewExecutor(cfg, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Execute(ctx, "view", func(ctx context.Context) error {
			return types.NewFailure(types.FailureTransient, "view", "timeout")
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err, "取消应立即中断退避等待")
	case <-time.After(time.Second):
		t.Fatal("cancelled wait did not return promptly")
	}
}

func TestDelayRateLimitedScaling(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())

	for attempt := 1; attempt <= 5; attempt++ {
		transient := e.Delay(types.FailureTransient, attempt)
		limited := e.Delay(types.FailureRateLimited, attempt)
		assert.GreaterOrEqual(t, limited, 10*transient,
			"attempt %d: RateLimited 等待至少应为 Transient 的 10 倍", attempt)
	}
}

func TestDelayRateLimitedScalingWithJitter(t *testing.T) {
	// 默认配置开着抖动，倍数保证对每一次采样都必须成立
	e := NewExecutor(config.DefaultBackoffConfig(), nil, zap.NewNop())

	for i := 0; i < 200; i++ {
		for attempt := 1; attempt <= 5; attempt++ {
			transient := e.Delay(types.FailureTransient, attempt)
			limited := e.Delay(types.FailureRateLimited, attempt)
			assert.GreaterOrEqual(t, limited, 10*transient,
				"attempt %d: 抖动下 RateLimited 等待仍应至少为 Transient 的 10 倍", attempt)
		}
	}
}

func TestDelayCappedAtMax(t *testing.T) {
	e := NewExecutor(testConfig(), nil, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, e.Delay(types.FailureTransient, 30))
}

func TestDefaultClassifier(t *testing.T) {
	cases := []struct {
		err  error
		want types.FailureKind
	}{
		{errors.New("stale element reference"), types.FailureTransient},
		{errors.New("connection reset by peer"), types.FailureTransient},
		{errors.New("request timeout"), types.FailureTransient},
		{errors.New("429 too many requests"), types.FailureRateLimited},
		{errors.New("Action Blocked: try later"), types.FailureBlocked},
		{errors.New("no such element: #send"), types.FailureNotFound},
		{errors.New("session not created"), types.FailureFatal},
		{types.NewFailure(types.FailureRateLimited, "x", "y"), types.FailureRateLimited},
		{context.DeadlineExceeded, types.FailureTransient},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultClassifier(tc.err), "err=%v", tc.err)
	}
}
