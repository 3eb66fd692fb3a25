package detector

import (
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
)

// PageSignals 动作层采集到的页面可观测状态。
// 检测器只消费这个结构，自己不碰浏览器。
type PageSignals struct {
	URL      string
	Title    string
	BodyText string
	// PresentSelectors 动作层确认存在于页面上的选择器
	PresentSelectors []string
}

// Verdict 一次检查的结论。Challenged 为 false 时其余字段无意义。
type Verdict struct {
	Challenged bool
	Kind       string // recaptcha / hcaptcha / action_blocked / ...
	// Matched 命中的具体文本模式或选择器，排障用
	Matched string
}

// Clear 未检出挑战
var Clear = Verdict{}

// Detector 封锁与验证码检测器。
// 匹配规则全部来自配置：文本模式对 URL、标题、正文做大小写
// 不敏感的包含匹配，选择器对动作层报告的存在集合做精确匹配。
type Detector struct {
	markers []config.ChallengeMarker
	logger  *zap.Logger
}

// New 创建检测器
func New(cfg config.DetectorConfig, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		markers: cfg.Markers,
		logger:  logger.With(zap.String("component", "detector")),
	}
}

// Inspect 按配置顺序逐个 marker 检查，第一个命中的生效
func (d *Detector) Inspect(signals PageSignals) Verdict {
	haystack := strings.ToLower(signals.URL + "\n" + signals.Title + "\n" + signals.BodyText)

	present := make(map[string]bool, len(signals.PresentSelectors))
	for _, sel := range signals.PresentSelectors {
		present[sel] = true
	}

	for _, marker := range d.markers {
		for _, pattern := range marker.TextPatterns {
			if strings.Contains(haystack, strings.ToLower(pattern)) {
				d.logger.Warn("challenge detected",
					zap.String("kind", marker.Kind),
					zap.String("pattern", pattern),
				)
				return Verdict{Challenged: true, Kind: marker.Kind, Matched: pattern}
			}
		}
		for _, sel := range marker.Selectors {
			if present[sel] {
				d.logger.Warn("challenge detected",
					zap.String("kind", marker.Kind),
					zap.String("selector", sel),
				)
				return Verdict{Challenged: true, Kind: marker.Kind, Matched: sel}
			}
		}
	}
	return Clear
}
