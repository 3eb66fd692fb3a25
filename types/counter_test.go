package types

import (
	"testing"
	"time"
)

func TestWindowTruncate(t *testing.T) {
	at := time.Date(2026, 3, 14, 15, 42, 17, 0, time.UTC)

	hourly := WindowHourly.Truncate(at)
	if !hourly.Equal(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("hourly truncate = %v", hourly)
	}

	daily := WindowDaily.Truncate(at)
	if !daily.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("daily truncate = %v", daily)
	}
}

func TestCounterExpired(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	c := ActionCounter{Action: ActionFollow, Window: WindowHourly, WindowStart: start, Count: 3}

	if c.Expired(start.Add(59 * time.Minute)) {
		t.Error("counter should not expire inside its window")
	}
	if !c.Expired(start.Add(time.Hour)) {
		t.Error("counter should expire at the window boundary")
	}
	if got := c.ResetsAt(); !got.Equal(start.Add(time.Hour)) {
		t.Errorf("ResetsAt = %v", got)
	}
}

func TestTargetStatusTerminal(t *testing.T) {
	for _, s := range []TargetStatus{TargetSent, TargetSkip, TargetDone, TargetFailed} {
		if !s.IsTerminal() {
			t.Errorf("%q should be terminal", s)
		}
	}
	if TargetUnset.IsTerminal() {
		t.Error("unset status should not be terminal")
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSession("instagram")
	b := NewSession("instagram")
	if a.ID == b.ID {
		t.Error("session ids should be unique")
	}
	if a.Status != SessionRunning {
		t.Errorf("new session status = %s", a.Status)
	}
}
