package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// 📊 Prometheus 指标
// =============================================================================

var (
	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outreachflow",
		Name:      "actions_total",
		Help:      "Outcome of per-target actions.",
	}, []string{"platform", "action", "result"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outreachflow",
		Name:      "retries_total",
		Help:      "Backoff retries by action.",
	}, []string{"platform", "action"})

	rateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outreachflow",
		Name:      "rate_limited_total",
		Help:      "Quota denials by action.",
	}, []string{"platform", "action"})

	challengesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outreachflow",
		Name:      "challenges_total",
		Help:      "Detected challenges by kind.",
	}, []string{"platform", "kind"})

	selectorMissTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "outreachflow",
		Name:      "selector_miss_total",
		Help:      "Selector resolutions that exhausted every strategy.",
	}, []string{"platform"})
)

// MetricsSink 把诊断事件翻译成 Prometheus 计数
type MetricsSink struct{}

var _ Sink = (*MetricsSink)(nil)

// NewMetricsSink 创建指标 sink
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

func (s *MetricsSink) Emit(ev Event) {
	switch ev.Kind {
	case EventActionResult:
		result := "ok"
		if ev.Err != nil {
			result = "failed"
		}
		actionsTotal.WithLabelValues(ev.Platform, ev.Action, result).Inc()
	case EventRetry:
		retriesTotal.WithLabelValues(ev.Platform, ev.Action).Inc()
	case EventRateLimited:
		rateLimitedTotal.WithLabelValues(ev.Platform, ev.Action).Inc()
	case EventChallenge:
		challengesTotal.WithLabelValues(ev.Platform, ev.Detail).Inc()
	case EventSelectorMiss:
		selectorMissTotal.WithLabelValues(ev.Platform).Inc()
	}
}
