package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/outreachflow/config"
)

func newDefaultDetector() *Detector {
	return New(config.DefaultDetectorConfig(), zap.NewNop())
}

func TestInspectClearPage(t *testing.T) {
	d := newDefaultDetector()

	v := d.Inspect(PageSignals{
		URL:      "https://www.instagram.com/someuser/",
		Title:    "someuser on Instagram",
		BodyText: "1,024 followers · 312 following",
	})
	assert.False(t, v.Challenged)
	assert.Equal(t, Clear, v)
}

func TestInspectTextPatterns(t *testing.T) {
	d := newDefaultDetector()

	cases := []struct {
		body string
		kind string
	}{
		{"Action Blocked. This action was blocked.", "action_blocked"},
		{"Please Try Again Later — we restrict certain activity", "action_blocked"},
		{"We limit how often you can do certain things", "action_blocked"},
		{"We detected suspicious activity on your account", "verify_identity"},
		{"Help us verify it's you before continuing", "challenge_form"},
	}
	for _, tc := range cases {
		v := d.Inspect(PageSignals{BodyText: tc.body})
		assert.True(t, v.Challenged, "body=%q", tc.body)
		assert.Equal(t, tc.kind, v.Kind, "body=%q", tc.body)
	}
}

func TestInspectTextIsCaseInsensitive(t *testing.T) {
	d := newDefaultDetector()
	v := d.Inspect(PageSignals{BodyText: "ACTION BLOCKED"})
	assert.True(t, v.Challenged)
	assert.Equal(t, "action_blocked", v.Kind)
}

func TestInspectSelectorPresence(t *testing.T) {
	d := newDefaultDetector()

	v := d.Inspect(PageSignals{
		PresentSelectors: []string{"iframe[src*='recaptcha']"},
	})
	assert.True(t, v.Challenged)
	assert.Equal(t, "recaptcha", v.Kind)
	assert.Equal(t, "iframe[src*='recaptcha']", v.Matched)

	v = d.Inspect(PageSignals{
		PresentSelectors: []string{".secsdk-captcha-drag-icon"},
	})
	assert.True(t, v.Challenged)
	assert.Equal(t, "slider", v.Kind, "tiktok 滑块挑战")
}

func TestInspectChallengeInURL(t *testing.T) {
	d := New(config.DetectorConfig{Markers: []config.ChallengeMarker{{
		Kind:         "challenge_form",
		TextPatterns: []string{"/challenge/"},
	}}}, zap.NewNop())

	v := d.Inspect(PageSignals{URL: "https://www.instagram.com/challenge/?next=/someuser/"})
	assert.True(t, v.Challenged)
}

func TestInspectFirstMarkerWins(t *testing.T) {
	d := New(config.DetectorConfig{Markers: []config.ChallengeMarker{
		{Kind: "first", TextPatterns: []string{"blocked"}},
		{Kind: "second", TextPatterns: []string{"blocked"}},
	}}, zap.NewNop())

	v := d.Inspect(PageSignals{BodyText: "blocked"})
	assert.Equal(t, "first", v.Kind, "按配置顺序第一个命中的生效")
}

func TestInspectNoMarkers(t *testing.T) {
	d := New(config.DetectorConfig{}, zap.NewNop())
	v := d.Inspect(PageSignals{BodyText: "action blocked"})
	assert.False(t, v.Challenged, "无标记配置时永远 Clear")
}
