package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionCompleted SessionStatus = "completed"
	SessionAborted   SessionStatus = "aborted"
)

// IsTerminal reports whether the status allows no further transitions.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionAborted
}

// IsResumable reports whether a checkpointed session in this status can
// be picked up again. Aborted sessions stay resumable so an operator
// can retry after fixing the underlying fault.
func (s SessionStatus) IsResumable() bool {
	return s == SessionRunning || s == SessionPaused || s == SessionAborted
}

// Session is one run of the orchestrator against one platform. The
// checkpoint store owns the durable copy; the orchestrator holds a
// working copy that is reconciled to storage after every target.
type Session struct {
	ID        string        `json:"id"`
	Platform  string        `json:"platform"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	// Cursor is the index of the next unprocessed target. Monotonically
	// non-decreasing within a session.
	Cursor int           `json:"cursor"`
	Total  int           `json:"total_targets"`
	Status SessionStatus `json:"status"`

	// Tallies for operator display.
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// Notes records state transitions and failures, timestamped.
	Notes []string `json:"notes,omitempty"`
}

// NewSession creates a running session with a time-derived unique id.
func NewSession(platform string) *Session {
	now := time.Now()
	return &Session{
		ID:        fmt.Sprintf("s_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8]),
		Platform:  platform,
		StartedAt: now,
		UpdatedAt: now,
		Status:    SessionRunning,
	}
}

// Advance moves the cursor forward by one. It never moves backwards.
func (s *Session) Advance() {
	s.Cursor++
	s.UpdatedAt = time.Now()
}

// AddNote appends a timestamped note.
func (s *Session) AddNote(format string, args ...any) {
	s.Notes = append(s.Notes, fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...)))
}

// SessionSummary is the listing view of a checkpointed session.
type SessionSummary struct {
	ID        string        `json:"id"`
	Platform  string        `json:"platform"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Cursor    int           `json:"cursor"`
	Total     int           `json:"total_targets"`
}
