package browser

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/diag"
	"github.com/BaSui01/outreachflow/engine/orchestrator"
)

// Collector 挑战与失败时抓现场：截图 + HTML 快照。
// 尽力而为，任何一步失败只记日志不上抛。
type Collector struct {
	driver *Driver
	writer *diag.ArtifactWriter
	logger *zap.Logger
}

var _ orchestrator.ArtifactCollector = (*Collector)(nil)

// NewCollector 创建现场采集器
func NewCollector(driver *Driver, writer *diag.ArtifactWriter, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		driver: driver,
		writer: writer,
		logger: logger.With(zap.String("component", "collector")),
	}
}

func (c *Collector) Capture(ctx context.Context, sessionID, label string) {
	if png, err := c.driver.Screenshot(ctx); err != nil {
		c.logger.Warn("screenshot capture failed", zap.Error(err))
	} else if _, err := c.writer.SaveScreenshot(sessionID, label, png); err != nil {
		c.logger.Warn("screenshot save failed", zap.Error(err))
	}

	if html, err := c.driver.HTML(ctx); err != nil {
		c.logger.Warn("html capture failed", zap.Error(err))
	} else if _, err := c.writer.SaveHTML(sessionID, label, []byte(html)); err != nil {
		c.logger.Warn("html save failed", zap.Error(err))
	}
}
