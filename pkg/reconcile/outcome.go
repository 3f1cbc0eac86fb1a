// Package reconcile compares desired port descriptions with the switch's
// running configuration and turns the differences into a command plan.
package reconcile

import (
	"fmt"
	"strings"
)

// Status is the terminal state of one port in a run.
type Status string

const (
	StatusUpdated            Status = "updated"
	StatusUnchanged          Status = "unchanged"
	StatusSkipped            Status = "skipped"
	StatusValidationError    Status = "validation_error"
	StatusVerificationFailed Status = "verification_failed"
)

// Statuses lists every status in report order.
var Statuses = []Status{
	StatusUpdated,
	StatusUnchanged,
	StatusSkipped,
	StatusValidationError,
	StatusVerificationFailed,
}

// Outcome records what happened to one port. Outcomes are not modified after
// they are appended to a result.
type Outcome struct {
	Port                string `json:"port"`
	PreviousDescription string `json:"previous_description"`
	ProposedDescription string `json:"proposed_description"`
	Status              Status `json:"status"`
	Detail              string `json:"detail,omitempty"`
}

// CommandPlan is the ordered list of literal commands for one run.
type CommandPlan struct {
	Commands []string `json:"commands"`
}

// IsEmpty returns true if the plan has no commands.
func (p CommandPlan) IsEmpty() bool {
	return len(p.Commands) == 0
}

// String returns the plan one command per line.
func (p CommandPlan) String() string {
	if p.IsEmpty() {
		return "No changes"
	}
	return strings.Join(p.Commands, "\n")
}

// Issue is a per-port error in report form.
type Issue struct {
	Port   string `json:"port"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

func (i Issue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s: %s", i.Port, i.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", i.Port, i.Kind, i.Detail)
}
