package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunAllJobs(t *testing.T) {
	s := New(2, zap.NewNop())

	var ran sync.Map
	jobs := []Job{
		{Platform: "instagram", Run: func(context.Context) error { ran.Store("instagram", true); return nil }},
		{Platform: "tiktok", Run: func(context.Context) error { ran.Store("tiktok", true); return nil }},
	}
	require.NoError(t, s.Run(context.Background(), jobs...))

	_, ok := ran.Load("instagram")
	assert.True(t, ok)
	_, ok = ran.Load("tiktok")
	assert.True(t, ok)
}

func TestRunOneFailureDoesNotCancelOthers(t *testing.T) {
	s := New(2, zap.NewNop())

	var survived atomic.Bool
	err := s.Run(context.Background(),
		Job{Platform: "instagram", Run: func(context.Context) error { return errors.New("boom") }},
		Job{Platform: "tiktok", Run: func(context.Context) error { survived.Store(true); return nil }},
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "instagram")
	assert.True(t, survived.Load(), "一个会话失败不得连累其他会话")
}

func TestRunBoundedConcurrency(t *testing.T) {
	s := New(1, zap.NewNop())

	var inFlight, peak atomic.Int32
	job := func(context.Context) error {
		cur := inFlight.Add(1)
		if cur > peak.Load() {
			peak.Store(cur)
		}
		defer inFlight.Add(-1)
		return nil
	}
	require.NoError(t, s.Run(context.Background(),
		Job{Platform: "a", Run: job},
		Job{Platform: "b", Run: job},
		Job{Platform: "c", Run: job},
	))
	assert.LessOrEqual(t, peak.Load(), int32(1), "并发上限应被遵守")
}
