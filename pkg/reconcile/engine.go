package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/lldpsync/pkg/switchadapter"
	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

const (
	DefaultFetchAttempts = 3
	DefaultFetchBackoff  = time.Second
)

// EngineConfig tunes the engine. Zero values select the defaults.
type EngineConfig struct {
	Clock         clockwork.Clock
	FetchAttempts int
	FetchBackoff  time.Duration
	Logger        *logrus.Entry
}

// Engine diffs desired against current descriptions one port at a time.
// Ports are processed strictly in order because the adapter's channel
// carries one command at a time.
type Engine struct {
	adapter switchadapter.Adapter
	clock   clockwork.Clock
	retries int
	backoff time.Duration
	log     *logrus.Entry
}

// NewEngine creates an engine for adapter.
func NewEngine(adapter switchadapter.Adapter, cfg EngineConfig) *Engine {
	e := &Engine{
		adapter: adapter,
		clock:   cfg.Clock,
		retries: cfg.FetchAttempts,
		backoff: cfg.FetchBackoff,
		log:     cfg.Logger,
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.retries < 1 {
		e.retries = DefaultFetchAttempts
	}
	if e.backoff == 0 {
		e.backoff = DefaultFetchBackoff
	}
	if e.log == nil {
		e.log = logrus.NewEntry(util.Logger)
	}
	return e
}

// PlanResult is the output of Engine.Plan.
type PlanResult struct {
	Outcomes         []Outcome
	ValidationErrors []*util.PortError
	Plan             CommandPlan
}

// Updated returns the outcomes that produced commands.
func (r *PlanResult) Updated() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusUpdated {
			out = append(out, o)
		}
	}
	return out
}

// Plan walks targets and builds the command plan. Per-port failures are
// recorded in the result; a transport failure or context cancellation stops
// the walk and is returned together with the partial result. If no port
// needs an update the plan is empty.
func (e *Engine) Plan(ctx context.Context, targets []topology.Target) (*PlanResult, error) {
	res := &PlanResult{}
	var body []string

	for _, t := range targets {
		pr, err := e.reconcilePort(ctx, t)
		if err != nil {
			return res, fmt.Errorf("reconciling %s: %w", t.Port, err)
		}
		res.Outcomes = append(res.Outcomes, pr.outcome)
		if pr.issue != nil {
			res.ValidationErrors = append(res.ValidationErrors, pr.issue)
		}
		body = append(body, pr.commands...)
	}

	if len(body) == 0 {
		e.log.Debug("no changes needed")
		return res, nil
	}

	cmds := append([]string{}, e.adapter.EnterConfigMode()...)
	cmds = append(cmds, body...)
	cmds = append(cmds, e.adapter.ExitConfigMode()...)
	res.Plan = CommandPlan{Commands: cmds}
	return res, nil
}

// portResult carries one port's outcome, its commands when Updated, and the
// validation issue when it ended in StatusValidationError.
type portResult struct {
	outcome  Outcome
	commands []string
	issue    *util.PortError
}

func (e *Engine) reconcilePort(ctx context.Context, t topology.Target) (portResult, error) {
	log := e.log.WithField("port", t.Port)
	o := Outcome{Port: t.Port, ProposedDescription: t.DesiredDescription}

	invalid := func(kind error, detail string) (portResult, error) {
		o.Status = StatusValidationError
		o.Detail = detail
		log.Warn(detail)
		return portResult{outcome: o, issue: util.NewPortError(t.Port, kind, detail)}, nil
	}
	settle := func(status Status, detail string) (portResult, error) {
		o.Status = status
		o.Detail = detail
		if status == StatusVerificationFailed {
			log.Warn(detail)
		} else if detail != "" {
			log.Debug(detail)
		}
		return portResult{outcome: o}, nil
	}

	if !e.adapter.ValidPort(t.Port) {
		return invalid(util.ErrPortValidation, "invalid interface format")
	}
	if strings.Contains(t.DesiredDescription, `"`) {
		return invalid(util.ErrPortValidation, "description contains a double quote")
	}

	current, err := e.fetch(ctx, t.Port)
	if err != nil {
		if fatal(ctx, err) {
			return portResult{}, err
		}
		return invalid(util.ErrDescriptionFetch, fmt.Sprintf("failed to get description: %v", err))
	}
	o.PreviousDescription = current

	if util.IsBlank(t.DesiredDescription) {
		return settle(StatusSkipped, "new description is empty")
	}

	currentNorm := strings.TrimSpace(current)
	desiredNorm := strings.TrimSpace(t.DesiredDescription)
	o.PreviousDescription = currentNorm
	o.ProposedDescription = desiredNorm

	sentinel := e.adapter.Rules().MultiNeighborSentinel
	if sentinel != "" && currentNorm == sentinel && desiredNorm == sentinel {
		return settle(StatusUnchanged, "already marked as multiple devices")
	}
	if currentNorm == desiredNorm {
		return settle(StatusUnchanged, "")
	}

	verify, err := e.fetch(ctx, t.Port)
	if err != nil {
		if fatal(ctx, err) {
			return portResult{}, err
		}
		return settle(StatusVerificationFailed, fmt.Sprintf("re-read failed: %v", err))
	}
	if verify != current {
		return settle(StatusVerificationFailed, fmt.Sprintf("description changed during processing: %q -> %q", current, verify))
	}

	o.Status = StatusUpdated
	log.WithFields(logrus.Fields{"old": currentNorm, "new": desiredNorm}).Debug("update needed")
	return portResult{outcome: o, commands: e.adapter.DescriptionCommands(t.Port, desiredNorm)}, nil
}

// fetch reads the current description, retrying non-fatal failures with a
// fixed backoff.
func (e *Engine) fetch(ctx context.Context, port string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= e.retries; attempt++ {
		desc, err := e.adapter.CurrentDescription(ctx, port)
		if err == nil {
			return desc, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if fatal(ctx, err) {
			return "", err
		}
		lastErr = err
		e.log.WithFields(logrus.Fields{"port": port, "attempt": attempt}).Debugf("description fetch failed: %v", err)

		if attempt < e.retries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-e.clock.After(e.backoff):
			}
		}
	}
	return "", lastErr
}

// fatal reports whether err must abort the run instead of being recorded
// against a single port.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, util.ErrTransport) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil
}
