package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/BaSui01/outreachflow/engine/selector"
)

// Page 把驱动适配成解析器需要的页面句柄
type Page struct {
	driver *Driver
}

var _ selector.PageHandle = (*Page)(nil)

// Page 返回当前页面句柄
func (d *Driver) Page() *Page {
	return &Page{driver: d}
}

// Find 按策略定位元素。超时由调用方 ctx 控制。
func (p *Page) Find(ctx context.Context, s selector.Strategy) (selector.ElementHandle, error) {
	sel, opt, err := strategyQuery(s)
	if err != nil {
		return nil, err
	}
	if err := p.driver.run(ctx, chromedp.WaitVisible(sel, opt)); err != nil {
		return nil, fmt.Errorf("find %s: %w", s, err)
	}
	return &element{driver: p.driver, sel: sel, opt: opt}, nil
}

// strategyQuery 把策略翻译成 chromedp 查询
func strategyQuery(s selector.Strategy) (string, chromedp.QueryOption, error) {
	switch s.Kind {
	case selector.ByCSS:
		return s.Value, chromedp.ByQuery, nil
	case selector.ByXPath:
		return s.Value, chromedp.BySearch, nil
	case selector.ByText:
		// 可见文本匹配翻译成 xpath
		escaped := strings.ReplaceAll(s.Value, "'", "\\'")
		return fmt.Sprintf("//*[self::button or self::a or @role='button'][contains(., '%s')]", escaped),
			chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("unknown strategy kind %q", s.Kind)
	}
}

// element 已定位的页面元素
type element struct {
	driver *Driver
	sel    string
	opt    chromedp.QueryOption
}

var _ selector.ElementHandle = (*element)(nil)

func (e *element) Click(ctx context.Context) error {
	return e.driver.run(ctx, chromedp.Click(e.sel, e.opt))
}

func (e *element) Type(ctx context.Context, text string) error {
	return e.driver.run(ctx, chromedp.SendKeys(e.sel, text, e.opt))
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.driver.run(ctx, chromedp.Text(e.sel, &text, e.opt)); err != nil {
		return "", err
	}
	return text, nil
}
