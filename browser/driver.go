// Package browser 是默认的浏览器协作层：基于 chromedp 驱动真实
// Chrome，向引擎提供页面句柄、动作执行器、页面信号与现场采集。
// 引擎核心只依赖接口，不依赖本包。
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
)

// Driver chromedp 浏览器驱动。
// 整个会话共用一个页面上下文，与单控制环模型一致。
type Driver struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         config.BrowserConfig
	logger      *zap.Logger
	mu          sync.Mutex
}

// NewDriver 启动浏览器并创建驱动
func NewDriver(cfg config.BrowserConfig, logger *zap.Logger) (*Driver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		// 自动化痕迹越少越好
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyURL))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	d := &Driver{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		logger:      logger.With(zap.String("component", "browser")),
	}

	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info("browser started",
		zap.Bool("headless", cfg.Headless),
		zap.Int("viewport_w", cfg.ViewportWidth),
		zap.Int("viewport_h", cfg.ViewportHeight),
	)
	return d, nil
}

// Navigate 导航到 URL
func (d *Driver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("navigating", zap.String("url", url))
	return d.run(ctx, chromedp.Navigate(url))
}

// Location 当前页面 URL
func (d *Driver) Location(ctx context.Context) (string, error) {
	var url string
	if err := d.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title 当前页面标题
func (d *Driver) Title(ctx context.Context) (string, error) {
	var title string
	if err := d.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// BodyText 页面可见正文
func (d *Driver) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := d.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// Screenshot 整页截图（PNG）
func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// HTML 页面完整 HTML
func (d *Driver) HTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("html dump failed: %w", err)
	}
	return html, nil
}

// ScrollBy 用鼠标滚轮事件滚动页面。比 window.scrollTo 更接近真人输入。
func (d *Driver) ScrollBy(ctx context.Context, deltaY int) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, 0, 0).
			WithDeltaY(float64(deltaY)).Do(ctx)
	}))
}

// SelectorPresent 判断 CSS 选择器在页面上是否存在
func (d *Driver) SelectorPresent(ctx context.Context, sel string) (bool, error) {
	var present bool
	script := fmt.Sprintf("document.querySelector(%q) !== null", sel)
	if err := d.run(ctx, chromedp.Evaluate(script, &present)); err != nil {
		return false, err
	}
	return present, nil
}

// Close 关闭浏览器
func (d *Driver) Close() error {
	d.cancel()
	d.allocCancel()
	d.logger.Info("browser closed")
	return nil
}

// run 在浏览器上下文里执行动作，同时尊重调用方的取消与超时
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx := d.ctx
	if deadline, ok := ctx.Deadline(); ok {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(d.ctx, deadline)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
