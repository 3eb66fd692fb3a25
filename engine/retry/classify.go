package retry

import (
	"context"
	"errors"
	"strings"

	"github.com/BaSui01/outreachflow/types"
)

// Classifier 将一个错误映射到失败类别
type Classifier func(error) types.FailureKind

// 远端限流的文本特征（全部小写）
var rateLimitIndicators = []string{
	"rate limit",
	"too many requests",
	"slow down",
}

// 平台封锁/挑战的文本特征
var blockedIndicators = []string{
	"action blocked",
	"try again later",
	"temporarily blocked",
	"captcha",
	"challenge",
}

// 瞬时故障的文本特征：页面抖动和网络抖动
var transientIndicators = []string{
	"stale element",
	"click intercepted",
	"not interactable",
	"connection reset",
	"connection refused",
	"timeout",
	"deadline exceeded",
}

// DefaultClassifier 默认分类器。
// 已分类的 *types.Failure 直接取其类别；其余按错误文本推断，
// 推断不出来的一律按 Fatal 处理（宁可不重试）。
func DefaultClassifier(err error) types.FailureKind {
	if err == nil {
		return ""
	}

	var f *types.Failure
	if errors.As(err, &f) {
		return f.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.FailureTransient
	}

	msg := strings.ToLower(err.Error())

	for _, s := range blockedIndicators {
		if strings.Contains(msg, s) {
			return types.FailureBlocked
		}
	}
	for _, s := range rateLimitIndicators {
		if strings.Contains(msg, s) {
			return types.FailureRateLimited
		}
	}
	for _, s := range transientIndicators {
		if strings.Contains(msg, s) {
			return types.FailureTransient
		}
	}
	if strings.Contains(msg, "no such element") || strings.Contains(msg, "could not resolve") {
		return types.FailureNotFound
	}

	return types.FailureFatal
}
