package browser

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
	"github.com/BaSui01/outreachflow/engine/orchestrator"
	"github.com/BaSui01/outreachflow/engine/selector"
	"github.com/BaSui01/outreachflow/types"
)

// MessageFunc 给目标生成私信文案。模板渲染不在引擎职责内，
// 调用方通常注入自己的实现。
type MessageFunc func(target types.TargetRecord) string

// Executor 选择器数据驱动的动作执行器。
// 所有元素定位都走解析器，页面改版只需要改选择器数据。
type Executor struct {
	driver   *Driver
	resolver *selector.Resolver
	cfg      config.BrowserConfig
	platform string
	message  MessageFunc
	logger   *zap.Logger
}

var _ orchestrator.ActionExecutor = (*Executor)(nil)

// NewExecutor 创建动作执行器
func NewExecutor(driver *Driver, resolver *selector.Resolver, cfg config.BrowserConfig, platform string, message MessageFunc, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if message == nil {
		message = func(types.TargetRecord) string {
			return "Hey! Really enjoying your content."
		}
	}
	return &Executor{
		driver:   driver,
		resolver: resolver,
		cfg:      cfg,
		platform: platform,
		message:  message,
		logger:   logger.With(zap.String("component", "executor"), zap.String("platform", platform)),
	}
}

// Perform 对目标执行一个动作
func (e *Executor) Perform(ctx context.Context, target types.TargetRecord, action types.ActionType) error {
	url, err := ProfileURL(e.platform, target)
	if err != nil {
		return types.NewFailure(types.FailureFatal, string(action), err.Error())
	}
	if err := e.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	// 落地后稍作停留，像人一样看一眼再动
	if err := e.dwell(ctx); err != nil {
		return err
	}

	switch action {
	case types.ActionView:
		return nil // 打开即浏览
	case types.ActionFollow:
		return e.click(ctx, "follow_button")
	case types.ActionLike:
		return e.click(ctx, "like_button")
	case types.ActionMessage:
		return e.sendMessage(ctx, target)
	default:
		return types.NewFailure(types.FailureFatal, string(action), "unknown action type")
	}
}

func (e *Executor) click(ctx context.Context, name string) error {
	el, err := e.resolver.Resolve(ctx, e.driver.Page(), name)
	if err != nil {
		return err
	}
	return el.Click(ctx)
}

func (e *Executor) sendMessage(ctx context.Context, target types.TargetRecord) error {
	page := e.driver.Page()

	btn, err := e.resolver.Resolve(ctx, page, "message_button")
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return err
	}

	input, err := e.resolver.Resolve(ctx, page, "message_input")
	if err != nil {
		return err
	}
	if err := e.typeHumanly(ctx, input, e.message(target)); err != nil {
		return err
	}

	send, err := e.resolver.Resolve(ctx, page, "send_button")
	if err != nil {
		return err
	}
	return send.Click(ctx)
}

// typeHumanly 逐字输入，字符间隔在配置范围内随机
func (e *Executor) typeHumanly(ctx context.Context, el selector.ElementHandle, text string) error {
	for _, ch := range text {
		if err := el.Type(ctx, string(ch)); err != nil {
			return err
		}
		if err := sleepCtx(ctx, TypingDelay(e.cfg.MinTypingDelay, e.cfg.MaxTypingDelay)); err != nil {
			return err
		}
	}
	return nil
}

// dwell 页面停留 1~3 秒，顺手往下滚一段，像人在翻主页
func (e *Executor) dwell(ctx context.Context) error {
	if err := sleepCtx(ctx, time.Second+time.Duration(rand.Int63n(int64(2*time.Second)))); err != nil {
		return err
	}
	if err := e.driver.ScrollBy(ctx, 200+rand.Intn(400)); err != nil {
		// 滚动失败不影响动作本身
		e.logger.Debug("scroll failed", zap.Error(err))
	}
	return nil
}

// TypingDelay 返回 [min, max] 内的随机输入间隔
func TypingDelay(min, max time.Duration) time.Duration {
	if min < 0 {
		min = 0
	}
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// ProfileURL 目标的主页地址。有 URL 用 URL，否则按平台拼用户名。
func ProfileURL(platform string, target types.TargetRecord) (string, error) {
	if target.URL != "" {
		return target.URL, nil
	}
	if target.Username == "" {
		return "", fmt.Errorf("target has neither username nor url")
	}
	switch platform {
	case "instagram":
		return "https://www.instagram.com/" + target.Username + "/", nil
	case "tiktok":
		return "https://www.tiktok.com/@" + target.Username, nil
	default:
		return "", fmt.Errorf("no profile url scheme for platform %q", platform)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
