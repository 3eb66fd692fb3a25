package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job 一个可独立运行的会话。各平台的会话互不共享计数器与
// 检查点，这里只负责并发地把它们跑完。
type Job struct {
	Platform string
	Run      func(ctx context.Context) error
}

// Scheduler 多会话并发调度器
type Scheduler struct {
	concurrency int
	logger      *zap.Logger
}

// New 创建调度器，concurrency 小于 1 时视为 1
func New(concurrency int, logger *zap.Logger) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		concurrency: concurrency,
		logger:      logger.With(zap.String("component", "scheduler")),
	}
}

// Run 并发运行全部任务并等它们全部结束。
// 一个会话失败不取消其他会话；返回值聚合全部失败。
func (s *Scheduler) Run(ctx context.Context, jobs ...Job) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	var mu sync.Mutex
	var failures []error

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			s.logger.Info("session job started", zap.String("platform", job.Platform))
			if err := job.Run(ctx); err != nil {
				s.logger.Error("session job failed",
					zap.String("platform", job.Platform),
					zap.Error(err),
				)
				mu.Lock()
				failures = append(failures, fmt.Errorf("%s: %w", job.Platform, err))
				mu.Unlock()
				return nil // 失败不传染给其他会话
			}
			s.logger.Info("session job finished", zap.String("platform", job.Platform))
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(failures...)
}
