package selector

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// StrategyKind 一种元素定位方式
type StrategyKind string

const (
	ByCSS   StrategyKind = "css"
	ByXPath StrategyKind = "xpath"
	ByText  StrategyKind = "text" // 按可见文本匹配
)

// Strategy 单条定位策略。Timeout 为 0 时用注册表的默认超时。
type Strategy struct {
	Kind    StrategyKind  `yaml:"kind"`
	Value   string        `yaml:"value"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.Value)
}

// Selector 命名选择器：按声明顺序尝试的策略列表。
// 页面改版时只改数据不改代码，这是整个设计的出发点。
type Selector struct {
	Name       string     `yaml:"name"`
	Strategies []Strategy `yaml:"strategies"`
}

// Registry 平台的选择器集合
type Registry struct {
	platform       string
	selectors      map[string]Selector
	defaultTimeout time.Duration
}

// NewRegistry 从内置默认值创建注册表
func NewRegistry(platform string, defaultTimeout time.Duration) *Registry {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Second
	}
	r := &Registry{
		platform:       platform,
		selectors:      make(map[string]Selector),
		defaultTimeout: defaultTimeout,
	}
	for _, sel := range builtinSelectors(platform) {
		r.selectors[sel.Name] = sel
	}
	return r
}

// LoadFile 从 YAML 文件加载选择器，同名覆盖内置默认。
// 文件不存在不算错：此时只用内置值。
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read selector file: %w", err)
	}

	var doc struct {
		Selectors []Selector `yaml:"selectors"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse selector file %s: %w", path, err)
	}
	for _, sel := range doc.Selectors {
		if sel.Name == "" || len(sel.Strategies) == 0 {
			return fmt.Errorf("selector file %s: every selector needs a name and at least one strategy", path)
		}
		r.selectors[sel.Name] = sel
	}
	return nil
}

// Get 按名字取选择器
func (r *Registry) Get(name string) (Selector, bool) {
	sel, ok := r.selectors[name]
	return sel, ok
}

// Names 返回全部已注册的选择器名
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.selectors))
	for name := range r.selectors {
		names = append(names, name)
	}
	return names
}

// timeoutFor 策略的有效超时
func (r *Registry) timeoutFor(s Strategy) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return r.defaultTimeout
}

// builtinSelectors 内置的平台选择器。生产环境通常用 YAML 覆盖，
// 内置值保证开箱能跑。
func builtinSelectors(platform string) []Selector {
	switch platform {
	case "instagram":
		return []Selector{
			{Name: "follow_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "header button[type=button]"},
				{Kind: ByXPath, Value: "//button[contains(., 'Follow')]"},
				{Kind: ByText, Value: "Follow"},
			}},
			{Name: "like_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "svg[aria-label='Like']"},
				{Kind: ByXPath, Value: "//span[@class='_aamw']//button"},
			}},
			{Name: "message_button", Strategies: []Strategy{
				{Kind: ByXPath, Value: "//div[@role='button' and contains(., 'Message')]"},
				{Kind: ByText, Value: "Message"},
			}},
			{Name: "message_input", Strategies: []Strategy{
				{Kind: ByCSS, Value: "div[contenteditable='true'][role='textbox']"},
				{Kind: ByCSS, Value: "textarea[placeholder='Message...']"},
			}},
			{Name: "send_button", Strategies: []Strategy{
				{Kind: ByXPath, Value: "//div[@role='button' and text()='Send']"},
				{Kind: ByText, Value: "Send"},
			}},
		}
	case "tiktok":
		return []Selector{
			{Name: "follow_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "button[data-e2e='follow-button']"},
				{Kind: ByText, Value: "Follow"},
			}},
			{Name: "like_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "span[data-e2e='like-icon']"},
			}},
			{Name: "message_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "button[data-e2e='message-button']"},
				{Kind: ByText, Value: "Message"},
			}},
			{Name: "message_input", Strategies: []Strategy{
				{Kind: ByCSS, Value: "div[data-e2e='message-input-area'] div[contenteditable='true']"},
			}},
			{Name: "send_button", Strategies: []Strategy{
				{Kind: ByCSS, Value: "svg[data-e2e='message-send']"},
			}},
		}
	}
	return nil
}
