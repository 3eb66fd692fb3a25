// =============================================================================
// 📦 OutreachFlow 默认配置
// =============================================================================
// 提供所有配置项的保守默认值。限额默认取自长期实测的安全区间，
// 激进档位风险自负。
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/outreachflow/types"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Platform:   "instagram",
		Actions:    []types.ActionType{types.ActionView, types.ActionFollow, types.ActionMessage},
		Mode:       ModeConservative,
		Limits:     DefaultLimitsConfig(),
		Backoff:    DefaultBackoffConfig(),
		Protection: DefaultProtectionConfig(),
		Detector:   DefaultDetectorConfig(),
		Selectors: SelectorConfig{
			DefaultTimeout: 5 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Backend: CheckpointFile,
			Dir:     "checkpoints",
		},
		Database: DefaultDatabaseConfig(),
		Redis:    DefaultRedisConfig(),
		Browser:  DefaultBrowserConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultLimitsConfig 返回两个档位的默认限额
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		Conservative: LimitProfile{
			DailyViews:    150,
			DailyFollows:  15,
			DailyLikes:    40,
			DailyMessages: 10,

			HourlyViews:    25,
			HourlyFollows:  3,
			HourlyLikes:    10,
			HourlyMessages: 2,

			CooldownBetweenTargets: 10 * time.Second,
			CooldownAfterFollow:    30 * time.Second,
			CooldownAfterMessage:   60 * time.Second,
		},
		Aggressive: LimitProfile{
			DailyViews:    500,
			DailyFollows:  40,
			DailyLikes:    100,
			DailyMessages: 50,

			HourlyViews:    60,
			HourlyFollows:  8,
			HourlyLikes:    20,
			HourlyMessages: 6,

			CooldownBetweenTargets: 3 * time.Second,
			CooldownAfterFollow:    5 * time.Second,
			CooldownAfterMessage:   10 * time.Second,
		},
	}
}

// DefaultBackoffConfig 返回默认退避配置
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		MaxAttempts:         3,
		BaseDelay:           2 * time.Second,
		MaxDelay:            60 * time.Second,
		Multiplier:          2.0,
		RateLimitMultiplier: 10.0,
		Jitter:              true,
	}
}

// DefaultProtectionConfig 返回默认防护配置
func DefaultProtectionConfig() ProtectionConfig {
	return ProtectionConfig{
		Enabled:            true,
		AccountAgeDays:     0,
		EnforceWarmup:      true,
		AutoPauseThreshold: 3,
		AutoPauseWindow:    30 * time.Minute,
	}
}

// DefaultDetectorConfig 返回内置挑战标记。
// 文本片段一律小写，与检测器的归一化保持一致。
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Markers: []ChallengeMarker{
			{
				Kind:      "recaptcha",
				Selectors: []string{"iframe[src*='recaptcha']"},
			},
			{
				Kind:      "hcaptcha",
				Selectors: []string{"iframe[src*='hcaptcha']"},
			},
			{
				Kind:      "challenge_form",
				Selectors: []string{"form[action*='challenge']"},
				TextPatterns: []string{
					"verify it's you",
					"confirm your identity",
				},
			},
			{
				Kind: "action_blocked",
				TextPatterns: []string{
					"action blocked",
					"try again later",
					"we limit how often",
					"temporarily blocked",
				},
			},
			{
				Kind:         "verify_identity",
				TextPatterns: []string{"suspicious activity"},
			},
			{
				Kind:      "slider",
				Selectors: []string{".secsdk-captcha-drag-icon"},
			},
		},
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Path:            "data/outreach.db",
		MaxIdleConns:    2,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		DB:        0,
		PoolSize:  10,
		KeyPrefix: "outreachflow:",
	}
}

// DefaultBrowserConfig 返回默认浏览器配置
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          false,
		Timeout:           30 * time.Second,
		ViewportWidth:     1280,
		ViewportHeight:    900,
		ScreenshotOnError: true,
		ArtifactDir:       "debug",
		MinTypingDelay:    80 * time.Millisecond,
		MaxTypingDelay:    200 * time.Millisecond,
	}
}
