package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/engine/detector"
	"github.com/BaSui01/outreachflow/engine/orchestrator"
)

// SignalProvider 采集检测器需要的页面信号。
// 探测的选择器集合取自检测器配置里的 marker 选择器。
type SignalProvider struct {
	driver *Driver
	probes []string
	logger *zap.Logger
}

var _ orchestrator.SignalSource = (*SignalProvider)(nil)

// NewSignalProvider 创建信号采集器
func NewSignalProvider(driver *Driver, cfg config.DetectorConfig, logger *zap.Logger) *SignalProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	var probes []string
	for _, marker := range cfg.Markers {
		probes = append(probes, marker.Selectors...)
	}
	return &SignalProvider{
		driver: driver,
		probes: probes,
		logger: logger.With(zap.String("component", "signals")),
	}
}

// Signals 采集当前页面状态
func (p *SignalProvider) Signals(ctx context.Context) (detector.PageSignals, error) {
	var signals detector.PageSignals
	var err error

	if signals.URL, err = p.driver.Location(ctx); err != nil {
		return signals, err
	}
	if signals.Title, err = p.driver.Title(ctx); err != nil {
		return signals, err
	}
	if signals.BodyText, err = p.driver.BodyText(ctx); err != nil {
		return signals, err
	}

	for _, sel := range p.probes {
		present, err := p.driver.SelectorPresent(ctx, sel)
		if err != nil {
			// 单个探测失败不拦采集
			p.logger.Debug("selector probe failed", zap.String("selector", sel), zap.Error(err))
			continue
		}
		if present {
			signals.PresentSelectors = append(signals.PresentSelectors, sel)
		}
	}
	return signals, nil
}
