package protector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/types"
)

func testProfile() config.LimitProfile {
	return config.LimitProfile{
		DailyViews: 100, DailyFollows: 20, DailyLikes: 40, DailyMessages: 10,
		HourlyViews: 20, HourlyFollows: 5, HourlyLikes: 10, HourlyMessages: 3,
	}
}

func testConfig(ageDays int) config.ProtectionConfig {
	return config.ProtectionConfig{
		Enabled:            true,
		AccountAgeDays:     ageDays,
		EnforceWarmup:      true,
		AutoPauseThreshold: 3,
		AutoPauseWindow:    30 * time.Minute,
	}
}

func TestWarmupStages(t *testing.T) {
	cases := []struct {
		ageDays int
		want    Stage
	}{
		{0, StageNew},
		{6, StageNew},
		{7, StageRamping},
		{29, StageRamping},
		{30, StageEstablished},
		{365, StageEstablished},
	}
	for _, tc := range cases {
		p := New(testConfig(tc.ageDays), testProfile(), zap.NewNop())
		assert.Equal(t, tc.want, p.Assess().Stage, "account age %d days", tc.ageDays)
	}
}

func TestNewAccountCeilings(t *testing.T) {
	p := New(testConfig(2), testProfile(), zap.NewNop())

	state := p.Assess()
	require.NotNil(t, state.Ceilings)
	assert.Equal(t, 25, state.Ceilings[types.ActionView], "新账号拿四分之一限额")
	assert.Equal(t, 5, state.Ceilings[types.ActionFollow])
	assert.Equal(t, 0, state.Ceilings[types.ActionMessage], "新账号禁止私信")
}

func TestRampingAccountCeilings(t *testing.T) {
	p := New(testConfig(14), testProfile(), zap.NewNop())

	state := p.Assess()
	require.NotNil(t, state.Ceilings)
	assert.Equal(t, 50, state.Ceilings[types.ActionView])
	assert.Equal(t, 5, state.Ceilings[types.ActionMessage], "爬坡期私信减半")
}

func TestEstablishedAccountNoCeilings(t *testing.T) {
	p := New(testConfig(90), testProfile(), zap.NewNop())
	assert.Nil(t, p.Assess().Ceilings)
}

func TestWarmupDisabled(t *testing.T) {
	cfg := testConfig(2)
	cfg.EnforceWarmup = false
	p := New(cfg, testProfile(), zap.NewNop())

	state := p.Assess()
	assert.Equal(t, StageNew, state.Stage, "阶段照算")
	assert.Nil(t, state.Ceilings, "但不压限")
}

func TestProtectorDisabled(t *testing.T) {
	cfg := testConfig(2)
	cfg.Enabled = false
	p := New(cfg, testProfile(), zap.NewNop())

	for i := 0; i < 10; i++ {
		p.RecordOutcome(types.FailureBlocked)
	}
	state := p.Assess()
	assert.Equal(t, StageEstablished, state.Stage)
	assert.False(t, state.AutoPause)
}

func TestAutoPauseOnThreshold(t *testing.T) {
	p := New(testConfig(90), testProfile(), zap.NewNop())

	p.RecordOutcome(types.FailureBlocked)
	p.RecordOutcome(types.FailureFatal)
	assert.False(t, p.Assess().AutoPause, "阈值 3，两次还不够")

	p.RecordOutcome(types.FailureBlocked)
	assert.True(t, p.Assess().AutoPause)
}

func TestRetryableOutcomesDoNotCount(t *testing.T) {
	p := New(testConfig(90), testProfile(), zap.NewNop())

	for i := 0; i < 10; i++ {
		p.RecordOutcome(types.FailureTransient)
		p.RecordOutcome(types.FailureRateLimited)
		p.RecordOutcome(types.FailureNotFound)
	}
	assert.False(t, p.Assess().AutoPause)
}

func TestRollingWindowExpires(t *testing.T) {
	p := New(testConfig(90), testProfile(), zap.NewNop())
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	now := base
	p.now = func() time.Time { return now }

	p.RecordOutcome(types.FailureBlocked)
	p.RecordOutcome(types.FailureBlocked)

	// 前两次滑出 30 分钟窗口后，第三次不应触发
	now = base.Add(31 * time.Minute)
	p.RecordOutcome(types.FailureBlocked)
	assert.False(t, p.Assess().AutoPause, "窗口外的失败不计数")

	p.RecordOutcome(types.FailureBlocked)
	p.RecordOutcome(types.FailureBlocked)
	assert.True(t, p.Assess().AutoPause)
}

func TestClearPause(t *testing.T) {
	p := New(testConfig(90), testProfile(), zap.NewNop())

	for i := 0; i < 5; i++ {
		p.RecordOutcome(types.FailureBlocked)
	}
	require.True(t, p.Assess().AutoPause)

	p.ClearPause()
	assert.False(t, p.Assess().AutoPause, "人工恢复后熔断窗口应清零")
}
