package models

import (
	"strings"
	"time"
)

const (
	StatusNormal  = "normal"
	StatusWarning = "warning"
	StatusFailure = "failure"
	StatusError   = "error"
	StatusUnknown = "unknown"
)

// Status is the host's build status. Normal and warning builds are
// successful, failure and error builds are failed; anything else has no
// terminal outcome.
type Status string

func (s Status) IsSuccessful() bool {
	switch Status(strings.ToLower(string(s))) {
	case StatusNormal, StatusWarning:
		return true
	}
	return false
}

func (s Status) IsFailed() bool {
	switch Status(strings.ToLower(string(s))) {
	case StatusFailure, StatusError:
		return true
	}
	return false
}

// TriggerTypeRetry marks builds restarted by the host's automatic retry.
const (
	TriggerTypeParameter = "type"
	TriggerTypeRetry     = "retry"
)

// Build is a read-only view of one node of the host's build graph.
type Build struct {
	ID        int64
	Name      string
	ProjectID string

	Composite     bool
	Personal      bool
	Status        Status
	Canceled      bool
	InternalError bool

	QueuedAt   time.Time
	StartedAt  time.Time
	FinishedAt *time.Time

	Tags              []string
	Branch            string
	TriggerParameters map[string]string
	FailureReasons    []FailureReason
	Agent             *Agent
	CheckoutDir       string
	Revisions         []Revision

	// PreviousFinishedID points to the previous finished build of the same
	// configuration, if the host knows one.
	PreviousFinishedID *int64
}

func (b *Build) IsFinished() bool {
	return b.FinishedAt != nil
}

func (b *Build) IsAutomaticRetry() bool {
	return b.TriggerParameters[TriggerTypeParameter] == TriggerTypeRetry
}

// QueueTime is zero when the host did not record when the build was queued.
func (b *Build) QueueTime() time.Duration {
	if b.QueuedAt.IsZero() || b.StartedAt.IsZero() {
		return 0
	}
	return b.StartedAt.Sub(b.QueuedAt)
}

type FailureReason struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

type Agent struct {
	HostName    string `json:"host_name" yaml:"host_name"`
	HostAddress string `json:"host_address" yaml:"host_address"`
}

func (a *Agent) IsEmpty() bool {
	return a == nil || (a.HostName == "" && a.HostAddress == "")
}
