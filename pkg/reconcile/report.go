package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/newtron-network/lldpsync/pkg/topology"
)

// Report is the structured result of one run against one switch.
type Report struct {
	Switch     string    `json:"switch"`
	Vendor     string    `json:"vendor"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	NoNeighborData bool                      `json:"no_neighbor_data,omitempty"`
	Targets        []topology.Target         `json:"targets"`
	Skipped        []topology.NeighborRecord `json:"skipped"`

	Outcomes         []Outcome   `json:"outcomes"`
	ValidationErrors []Issue     `json:"validation_errors"`
	Plan             CommandPlan `json:"plan"`

	DryRun          bool     `json:"dry_run"`
	Applied         bool     `json:"applied"`
	AppliedCommands int      `json:"applied_commands"`
	Warnings        []string `json:"warnings,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Count returns the number of outcomes with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Changes returns the Updated outcomes.
func (r *Report) Changes() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusUpdated {
			out = append(out, o)
		}
	}
	return out
}

// HasChanges returns true if at least one port needs an update.
func (r *Report) HasChanges() bool {
	return !r.Plan.IsEmpty()
}

// Summary returns a one-line count of outcomes, e.g.
// "2 updated, 5 unchanged, 1 skipped, 0 validation errors, 0 verification failures".
func (r *Report) Summary() string {
	return fmt.Sprintf("%d updated, %d unchanged, %d skipped, %d validation errors, %d verification failures",
		r.Count(StatusUpdated), r.Count(StatusUnchanged), r.Count(StatusSkipped),
		r.Count(StatusValidationError), r.Count(StatusVerificationFailed))
}

// String returns the change listing shown before a plan is applied.
func (r *Report) String() string {
	if !r.HasChanges() {
		return "No description updates needed"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Changes detected on %s:\n", r.Switch)
	for _, o := range r.Changes() {
		fmt.Fprintf(&sb, "Interface %s:\n", o.Port)
		fmt.Fprintf(&sb, "  Old description: '%s'\n", o.PreviousDescription)
		fmt.Fprintf(&sb, "  New description: '%s'\n", o.ProposedDescription)
	}
	return sb.String()
}
