package types

import "time"

// ActionType is a single rate-limited operation type.
type ActionType string

const (
	ActionView    ActionType = "view"
	ActionFollow  ActionType = "follow"
	ActionLike    ActionType = "like"
	ActionMessage ActionType = "message"
)

// AllActions lists every known action type.
var AllActions = []ActionType{ActionView, ActionFollow, ActionLike, ActionMessage}

// WindowKind is the granularity of a rate-limit window.
type WindowKind string

const (
	WindowHourly WindowKind = "hourly"
	WindowDaily  WindowKind = "daily"
)

// Duration returns the span of the window.
func (w WindowKind) Duration() time.Duration {
	if w == WindowHourly {
		return time.Hour
	}
	return 24 * time.Hour
}

// Truncate aligns t to the start of the window containing it. Hourly
// windows are clock-aligned, daily windows are calendar-aligned.
func (w WindowKind) Truncate(t time.Time) time.Time {
	if w == WindowHourly {
		return t.Truncate(time.Hour)
	}
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// ActionCounter is the rate-limit accounting unit: a count of one
// action type over one window. Counters are never decremented, only
// superseded when the window rolls.
type ActionCounter struct {
	Action      ActionType `json:"action"`
	Window      WindowKind `json:"window"`
	WindowStart time.Time  `json:"window_start"`
	Count       int        `json:"count"`
}

// Expired reports whether the counter's window has passed at now.
func (c ActionCounter) Expired(now time.Time) bool {
	return !now.Before(c.WindowStart.Add(c.Window.Duration()))
}

// ResetsAt returns the instant the window rolls over.
func (c ActionCounter) ResetsAt() time.Time {
	return c.WindowStart.Add(c.Window.Duration())
}
