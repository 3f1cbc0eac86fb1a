// Package audit records one event per reconciliation run in a JSON-lines
// file.
package audit

import (
	"fmt"
	"time"
)

// Operation names recorded in events.
const (
	OperationRun       = "run"
	OperationNeighbors = "neighbors"
)

// Change is one interface description rewrite.
type Change struct {
	Port string `json:"port"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// Event represents one auditable run
type Event struct {
	ID          string        `json:"id"`
	Timestamp   time.Time     `json:"timestamp"`
	User        string        `json:"user"`
	Switch      string        `json:"switch"`
	Operation   string        `json:"operation"`
	Ports       []string      `json:"ports,omitempty"`
	Changes     []Change      `json:"changes"`
	Summary     string        `json:"summary,omitempty"`
	Success     bool          `json:"success"`
	Aborted     bool          `json:"aborted,omitempty"`
	Error       string        `json:"error,omitempty"`
	ExecuteMode bool          `json:"execute_mode"` // true if -x was used
	DryRun      bool          `json:"dry_run"`
	Duration    time.Duration `json:"duration"`
}

// Filter selects events. Zero fields match everything. Limit keeps the
// newest matches; Offset skips that many of the newest before Limit applies.
type Filter struct {
	Switch      string
	User        string
	Operation   string
	Port        string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// NewEvent creates a new audit event
func NewEvent(user, sw, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		User:      user,
		Switch:    sw,
		Operation: operation,
	}
}

// WithPorts records the port filter the run was limited to
func (e *Event) WithPorts(ports []string) *Event {
	e.Ports = ports
	return e
}

// WithChanges sets the changes
func (e *Event) WithChanges(changes []Change) *Event {
	e.Changes = changes
	return e
}

// WithSummary sets the outcome summary line
func (e *Event) WithSummary(summary string) *Event {
	e.Summary = summary
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithAborted marks a run stopped by the operator during review
func (e *Event) WithAborted() *Event {
	e.Aborted = true
	return e
}

// WithDuration sets the run duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

// WithExecuteMode marks if execute mode was used
func (e *Event) WithExecuteMode(execute bool) *Event {
	e.ExecuteMode = execute
	e.DryRun = !execute
	return e
}

// Match reports whether e satisfies every criterion set in f.
func (f Filter) Match(e *Event) bool {
	switch {
	case f.Switch != "" && e.Switch != f.Switch:
		return false
	case f.User != "" && e.User != f.User:
		return false
	case f.Operation != "" && e.Operation != f.Operation:
		return false
	case f.Port != "" && !e.touches(f.Port):
		return false
	case !f.StartTime.IsZero() && e.Timestamp.Before(f.StartTime):
		return false
	case !f.EndTime.IsZero() && e.Timestamp.After(f.EndTime):
		return false
	case f.SuccessOnly && !e.Success:
		return false
	case f.FailureOnly && e.Success:
		return false
	}
	return true
}

// window trims events, ordered oldest first, to the page f asks for.
func (f Filter) window(events []*Event) []*Event {
	end := len(events) - f.Offset
	if end <= 0 {
		return []*Event{}
	}
	start := 0
	if f.Limit > 0 && end > f.Limit {
		start = end - f.Limit
	}
	return events[start:end]
}

// touches reports whether the event changed or was limited to port.
func (e *Event) touches(port string) bool {
	for _, c := range e.Changes {
		if c.Port == port {
			return true
		}
	}
	for _, p := range e.Ports {
		if p == port {
			return true
		}
	}
	return false
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
