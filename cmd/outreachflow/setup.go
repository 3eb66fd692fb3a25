// =============================================================================
// 🔧 协作件与日志装配
// =============================================================================
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/outreachflow"
	"github.com/BaSui01/outreachflow/browser"
	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/diag"
	"github.com/BaSui01/outreachflow/engine/selector"
	"github.com/BaSui01/outreachflow/targets"
)

// buildCollaborators 装配浏览器协作层：驱动、选择器解析、
// 动作执行器、页面信号与现场采集，外加 CSV 目标源。
func buildCollaborators(cfg *config.Config, targetsPath string, logger *zap.Logger) (outreachflow.Collaborators, func(), error) {
	registry := selector.NewRegistry(cfg.Platform, cfg.Selectors.DefaultTimeout)
	if cfg.Selectors.Path != "" {
		if err := registry.LoadFile(cfg.Selectors.Path); err != nil {
			return outreachflow.Collaborators{}, nil, err
		}
	}

	driver, err := browser.NewDriver(cfg.Browser, logger)
	if err != nil {
		return outreachflow.Collaborators{}, nil, fmt.Errorf("start browser: %w", err)
	}
	cleanup := func() { driver.Close() }

	resolver := selector.NewResolver(registry, diag.NewZapSink(logger), logger)

	collab := outreachflow.Collaborators{
		Targets:  targets.NewCSVSource(targetsPath, logger),
		Executor: browser.NewExecutor(driver, resolver, cfg.Browser, cfg.Platform, nil, logger),
		Signals:  browser.NewSignalProvider(driver, cfg.Detector, logger),
	}

	if cfg.Browser.ScreenshotOnError {
		writer, err := diag.NewArtifactWriter(cfg.Browser.ArtifactDir, logger)
		if err != nil {
			cleanup()
			return outreachflow.Collaborators{}, nil, err
		}
		collab.Artifacts = browser.NewCollector(driver, writer, logger)
	}

	return collab, cleanup, nil
}

// initLogger 按配置构建 zap 日志器
func initLogger(cfg config.LogConfig) *zap.Logger {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.Level))

	var encoderCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoderCfg = zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg = zap.NewDevelopmentEncoderConfig()
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}
