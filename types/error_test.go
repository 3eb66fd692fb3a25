package types

import (
	"errors"
	"strings"
	"testing"
)

func TestFailureError(t *testing.T) {
	f := NewFailure(FailureTransient, "follow", "click failed")
	if !strings.Contains(f.Error(), "TRANSIENT") {
		t.Errorf("expected kind in message, got %s", f.Error())
	}

	cause := errors.New("stale element")
	f = f.WithCause(cause)
	if !strings.Contains(f.Error(), "stale element") {
		t.Errorf("expected cause in message, got %s", f.Error())
	}
	if !errors.Is(f, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestKindRetryable(t *testing.T) {
	cases := map[FailureKind]bool{
		FailureTransient:   true,
		FailureRateLimited: true,
		FailureNotFound:    true,
		FailureBlocked:     false,
		FailureFatal:       false,
	}
	for kind, want := range cases {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s: Retryable() = %v, want %v", kind, got, want)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(NewFailure(FailureBlocked, "dm", "action blocked")); got != FailureBlocked {
		t.Errorf("KindOf = %s, want BLOCKED", got)
	}
	if got := KindOf(errors.New("plain")); got != FailureFatal {
		t.Errorf("KindOf(plain) = %s, want FATAL", got)
	}
}

func TestAsFailure(t *testing.T) {
	plain := errors.New("boom")
	f := AsFailure(plain, "save")
	if f.Kind != FailureFatal || f.Op != "save" {
		t.Errorf("unexpected wrap: %+v", f)
	}
	if AsFailure(f, "other") != f {
		t.Error("expected existing Failure to pass through")
	}
	if AsFailure(nil, "x") != nil {
		t.Error("expected nil for nil error")
	}
}
