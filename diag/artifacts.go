package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ArtifactWriter 把失败现场落盘：截图与页面 HTML。
// 文件名带时间戳与会话 ID，方便排障时对回日志。
type ArtifactWriter struct {
	dir    string
	logger *zap.Logger
}

// NewArtifactWriter 创建工件写入器，目录不存在时自动创建
func NewArtifactWriter(dir string, logger *zap.Logger) (*ArtifactWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &ArtifactWriter{
		dir:    dir,
		logger: logger.With(zap.String("component", "artifacts")),
	}, nil
}

// SaveScreenshot 保存 PNG 截图，返回文件路径
func (w *ArtifactWriter) SaveScreenshot(sessionID, label string, png []byte) (string, error) {
	return w.save(sessionID, label, "png", png)
}

// SaveHTML 保存页面 HTML 快照，返回文件路径
func (w *ArtifactWriter) SaveHTML(sessionID, label string, html []byte) (string, error) {
	return w.save(sessionID, label, "html", html)
}

func (w *ArtifactWriter) save(sessionID, label, ext string, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_%s.%s", time.Now().Format("20060102_150405"), sessionID, label, ext)
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	w.logger.Info("artifact saved", zap.String("path", path))
	return path, nil
}
