package types

// TargetStatus is the prior/outcome status of a target record.
type TargetStatus string

const (
	TargetUnset  TargetStatus = ""
	TargetSent   TargetStatus = "sent"
	TargetSkip   TargetStatus = "skip"
	TargetDone   TargetStatus = "done"
	TargetFailed TargetStatus = "failed"
)

// IsTerminal reports whether a target with this status must never be
// processed again, in the same or a resumed run.
func (s TargetStatus) IsTerminal() bool {
	switch s {
	case TargetSent, TargetSkip, TargetDone, TargetFailed:
		return true
	}
	return false
}

// TargetRecord is one remote entity to act upon. At least one of
// Username and URL must be set.
type TargetRecord struct {
	Username string       `json:"username,omitempty"`
	URL      string       `json:"url,omitempty"`
	Niche    string       `json:"niche,omitempty"`
	Status   TargetStatus `json:"status,omitempty"`
}

// Key returns the stable identifier of the target.
func (t TargetRecord) Key() string {
	if t.Username != "" {
		return t.Username
	}
	return t.URL
}

// Valid reports whether the record carries an identifier.
func (t TargetRecord) Valid() bool {
	return t.Username != "" || t.URL != ""
}
