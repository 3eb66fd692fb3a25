package types

import "fmt"

// FailureKind classifies a failed operation for the retry layer.
type FailureKind string

const (
	// FailureTransient covers network blips, stale elements and
	// timeouts. Safe to retry soon.
	FailureTransient FailureKind = "TRANSIENT"
	// FailureRateLimited means the remote signalled throttling.
	// Retried after a much longer delay.
	FailureRateLimited FailureKind = "RATE_LIMITED"
	// FailureNotFound means selector resolution failed. Retried a
	// bounded number of times, then treated as fatal.
	FailureNotFound FailureKind = "NOT_FOUND"
	// FailureBlocked is a CAPTCHA or action-blocked signal. Never
	// retried; the session pauses instead.
	FailureBlocked FailureKind = "BLOCKED"
	// FailureFatal is everything else. No retry.
	FailureFatal FailureKind = "FATAL"
)

// Retryable reports whether the retry layer may re-attempt an
// operation that failed with this kind.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureTransient, FailureRateLimited, FailureNotFound:
		return true
	}
	return false
}

// Failure is a classified error carrying the operation name, the
// attempt count at the time it was surfaced, and the underlying cause.
type Failure struct {
	Kind     FailureKind `json:"kind"`
	Op       string      `json:"op"`
	Message  string      `json:"message"`
	Attempts int         `json:"attempts,omitempty"`
	Cause    error       `json:"-"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", f.Kind, f.Op, f.Message, f.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Kind, f.Op, f.Message)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// NewFailure creates a Failure with the given kind, operation and message.
func NewFailure(kind FailureKind, op, message string) *Failure {
	return &Failure{Kind: kind, Op: op, Message: message}
}

// WithCause attaches the underlying error.
func (f *Failure) WithCause(cause error) *Failure {
	f.Cause = cause
	return f
}

// WithAttempts records how many attempts were made before surfacing.
func (f *Failure) WithAttempts(n int) *Failure {
	f.Attempts = n
	return f
}

// KindOf extracts the failure kind from an error. Unclassified errors
// report FailureFatal.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	if f, ok := err.(*Failure); ok {
		return f.Kind
	}
	return FailureFatal
}

// AsFailure returns err as a *Failure, wrapping unclassified errors as
// fatal so callers always see the structured form.
func AsFailure(err error, op string) *Failure {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Failure); ok {
		return f
	}
	return NewFailure(FailureFatal, op, "unclassified error").WithCause(err)
}
