// =============================================================================
// 📦 OutreachFlow 配置结构
// =============================================================================
// 枚举引擎识别的全部配置项：限额、退避、防护、挑战标记、存储后端
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"time"

	"github.com/BaSui01/outreachflow/types"
)

// Config 是引擎的完整配置结构
type Config struct {
	// Platform 平台标签（instagram / tiktok / generic）
	Platform string `yaml:"platform" env:"PLATFORM"`

	// Actions 每个目标要执行的动作序列
	Actions []types.ActionType `yaml:"actions" env:"-"`

	// Mode 限额档位: conservative 或 aggressive
	Mode string `yaml:"mode" env:"MODE"`

	// Limits 限额配置
	Limits LimitsConfig `yaml:"limits" env:"LIMITS"`

	// Backoff 重试退避配置
	Backoff BackoffConfig `yaml:"backoff" env:"BACKOFF"`

	// Protection 账号防护配置
	Protection ProtectionConfig `yaml:"protection" env:"PROTECTION"`

	// Detector 挑战检测配置
	Detector DetectorConfig `yaml:"detector" env:"-"`

	// Selectors 选择器配置
	Selectors SelectorConfig `yaml:"selectors" env:"SELECTORS"`

	// Checkpoint 检查点存储配置
	Checkpoint CheckpointConfig `yaml:"checkpoint" env:"CHECKPOINT"`

	// Database 计数器数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Redis Redis 检查点后端配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Browser 浏览器驱动配置
	Browser BrowserConfig `yaml:"browser" env:"BROWSER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// LimitsConfig 两个限额档位，按 Mode 选择
type LimitsConfig struct {
	Conservative LimitProfile `yaml:"conservative" env:"CONSERVATIVE"`
	Aggressive   LimitProfile `yaml:"aggressive" env:"AGGRESSIVE"`
}

// Profile 返回指定档位的限额
func (l LimitsConfig) Profile(mode string) LimitProfile {
	if mode == ModeAggressive {
		return l.Aggressive
	}
	return l.Conservative
}

// 限额档位
const (
	ModeConservative = "conservative"
	ModeAggressive   = "aggressive"
)

// LimitProfile 单个档位的限额：每个动作类型的日/小时上限与冷却
type LimitProfile struct {
	// 每日上限
	DailyViews    int `yaml:"daily_views" env:"DAILY_VIEWS"`
	DailyFollows  int `yaml:"daily_follows" env:"DAILY_FOLLOWS"`
	DailyLikes    int `yaml:"daily_likes" env:"DAILY_LIKES"`
	DailyMessages int `yaml:"daily_messages" env:"DAILY_MESSAGES"`

	// 每小时上限（突发保护）
	HourlyViews    int `yaml:"hourly_views" env:"HOURLY_VIEWS"`
	HourlyFollows  int `yaml:"hourly_follows" env:"HOURLY_FOLLOWS"`
	HourlyLikes    int `yaml:"hourly_likes" env:"HOURLY_LIKES"`
	HourlyMessages int `yaml:"hourly_messages" env:"HOURLY_MESSAGES"`

	// 目标之间的冷却
	CooldownBetweenTargets time.Duration `yaml:"cooldown_between_targets" env:"COOLDOWN_BETWEEN_TARGETS"`
	// 特定动作之后的附加冷却
	CooldownAfterFollow  time.Duration `yaml:"cooldown_after_follow" env:"COOLDOWN_AFTER_FOLLOW"`
	CooldownAfterMessage time.Duration `yaml:"cooldown_after_message" env:"COOLDOWN_AFTER_MESSAGE"`
}

// LimitFor 返回 (动作, 窗口) 的配置上限
func (p LimitProfile) LimitFor(action types.ActionType, window types.WindowKind) int {
	if window == types.WindowDaily {
		switch action {
		case types.ActionView:
			return p.DailyViews
		case types.ActionFollow:
			return p.DailyFollows
		case types.ActionLike:
			return p.DailyLikes
		case types.ActionMessage:
			return p.DailyMessages
		}
		return 0
	}
	switch action {
	case types.ActionView:
		return p.HourlyViews
	case types.ActionFollow:
		return p.HourlyFollows
	case types.ActionLike:
		return p.HourlyLikes
	case types.ActionMessage:
		return p.HourlyMessages
	}
	return 0
}

// CooldownAfter 返回某动作完成后的冷却时间
func (p LimitProfile) CooldownAfter(action types.ActionType) time.Duration {
	switch action {
	case types.ActionFollow:
		return p.CooldownAfterFollow
	case types.ActionMessage:
		return p.CooldownAfterMessage
	}
	return p.CooldownBetweenTargets
}

// BackoffConfig 重试退避配置
type BackoffConfig struct {
	// 最大尝试次数（含首次）
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	// 初始延迟
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 最大延迟
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
	// 延迟倍增因子（指数退避）
	Multiplier float64 `yaml:"multiplier" env:"MULTIPLIER"`
	// RateLimited 失败的延迟放大倍数
	RateLimitMultiplier float64 `yaml:"rate_limit_multiplier" env:"RATE_LIMIT_MULTIPLIER"`
	// 是否添加随机抖动
	Jitter bool `yaml:"jitter" env:"JITTER"`
}

// ProtectionConfig 账号防护配置
type ProtectionConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 账号年龄（天），用于热身阶段推导
	AccountAgeDays int `yaml:"account_age_days" env:"ACCOUNT_AGE_DAYS"`
	// 是否强制热身限额
	EnforceWarmup bool `yaml:"enforce_warmup" env:"ENFORCE_WARMUP"`
	// 滚动窗口内 Blocked/Fatal 次数达到阈值即自动暂停
	AutoPauseThreshold int `yaml:"auto_pause_threshold" env:"AUTO_PAUSE_THRESHOLD"`
	// 滚动窗口长度
	AutoPauseWindow time.Duration `yaml:"auto_pause_window" env:"AUTO_PAUSE_WINDOW"`
}

// ChallengeMarker 一种已知挑战的识别标记
type ChallengeMarker struct {
	// Kind 挑战类型（recaptcha / action_blocked / ...）
	Kind string `yaml:"kind"`
	// TextPatterns 页面文本中的匹配片段（小写）
	TextPatterns []string `yaml:"text_patterns"`
	// Selectors 命中即判定的元素选择器
	Selectors []string `yaml:"selectors"`
}

// DetectorConfig 挑战检测配置
type DetectorConfig struct {
	Markers []ChallengeMarker `yaml:"markers"`
}

// SelectorConfig 选择器配置
type SelectorConfig struct {
	// Path 外部选择器 YAML 文件（为空则用内置默认）
	Path string `yaml:"path" env:"PATH"`
	// DefaultTimeout 单个策略的默认查找超时
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
}

// CheckpointConfig 检查点存储配置
type CheckpointConfig struct {
	// Backend: file / memory / redis
	Backend string `yaml:"backend" env:"BACKEND"`
	// Dir 文件后端目录
	Dir string `yaml:"dir" env:"DIR"`
}

// 检查点后端
const (
	CheckpointFile   = "file"
	CheckpointMemory = "memory"
	CheckpointRedis  = "redis"
)

// DatabaseConfig 计数器数据库（SQLite）配置
type DatabaseConfig struct {
	// Path SQLite 文件路径（":memory:" 用于测试）
	Path string `yaml:"path" env:"PATH"`
	// 最大空闲连接数
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 最大打开连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"ADDR"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	PoolSize  int    `yaml:"pool_size" env:"POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

// BrowserConfig 浏览器驱动配置
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" env:"HEADLESS"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	ViewportWidth     int           `yaml:"viewport_width" env:"VIEWPORT_WIDTH"`
	ViewportHeight    int           `yaml:"viewport_height" env:"VIEWPORT_HEIGHT"`
	UserAgent         string        `yaml:"user_agent" env:"USER_AGENT"`
	ProxyURL          string        `yaml:"proxy_url" env:"PROXY_URL"`
	ScreenshotOnError bool          `yaml:"screenshot_on_error" env:"SCREENSHOT_ON_ERROR"`
	// ArtifactDir 诊断产物（截图 / HTML）输出目录
	ArtifactDir string `yaml:"artifact_dir" env:"ARTIFACT_DIR"`
	// 模拟人工输入的逐字符延迟区间
	MinTypingDelay time.Duration `yaml:"min_typing_delay" env:"MIN_TYPING_DELAY"`
	MaxTypingDelay time.Duration `yaml:"max_typing_delay" env:"MAX_TYPING_DELAY"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level: debug / info / warn / error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json / console
	Format string `yaml:"format" env:"FORMAT"`
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.Platform == "" {
		return fmt.Errorf("platform is required")
	}
	if c.Mode != ModeConservative && c.Mode != ModeAggressive {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeConservative, ModeAggressive, c.Mode)
	}
	if len(c.Actions) == 0 {
		return fmt.Errorf("at least one action is required")
	}
	for _, a := range c.Actions {
		switch a {
		case types.ActionView, types.ActionFollow, types.ActionLike, types.ActionMessage:
		default:
			return fmt.Errorf("unknown action type %q", a)
		}
	}
	if c.Backoff.MaxAttempts < 1 {
		return fmt.Errorf("backoff.max_attempts must be >= 1")
	}
	if c.Backoff.Multiplier < 1.0 {
		return fmt.Errorf("backoff.multiplier must be >= 1.0")
	}
	if c.Backoff.RateLimitMultiplier < 1.0 {
		return fmt.Errorf("backoff.rate_limit_multiplier must be >= 1.0")
	}
	switch c.Checkpoint.Backend {
	case CheckpointFile, CheckpointMemory, CheckpointRedis:
	default:
		return fmt.Errorf("unknown checkpoint backend %q", c.Checkpoint.Backend)
	}
	if c.Checkpoint.Backend == CheckpointFile && c.Checkpoint.Dir == "" {
		return fmt.Errorf("checkpoint.dir is required for the file backend")
	}
	if c.Checkpoint.Backend == CheckpointRedis && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis backend")
	}
	if c.Protection.Enabled && c.Protection.AutoPauseThreshold < 1 {
		return fmt.Errorf("protection.auto_pause_threshold must be >= 1")
	}
	return nil
}
