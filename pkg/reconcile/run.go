package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/newtron-network/lldpsync/pkg/switchadapter"
	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// Reconciler runs the full sequence against one switch: disable paging, read
// neighbors, plan, review, apply.
type Reconciler struct {
	Switch   string
	Adapter  switchadapter.Adapter
	Engine   *Engine
	Executor *Executor
	Clock    clockwork.Clock

	// Execute applies the plan; otherwise the run stops after planning.
	Execute bool

	// Review, if set, gates execution.
	Review ReviewFunc

	// Ports limits the run to these ports. Empty means all.
	Ports []string
}

// NewReconciler wires an engine and executor around adapter and cmd, which
// must be the same channel the adapter talks through.
func NewReconciler(name string, adapter switchadapter.Adapter, cmd switchadapter.Commander, cfg EngineConfig) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = util.WithSwitch(name)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Reconciler{
		Switch:   name,
		Adapter:  adapter,
		Engine:   NewEngine(adapter, cfg),
		Executor: NewExecutor(cmd, 0, cfg.Logger),
		Clock:    cfg.Clock,
	}
}

// Run performs one reconciliation. The report is always returned, filled in
// as far as the run got. Errors are transport failures, ErrAborted from the
// review, or failures while applying.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	log := util.WithSwitch(r.Switch)
	rep := &Report{
		Switch:    r.Switch,
		Vendor:    r.Adapter.Vendor(),
		StartedAt: r.Clock.Now(),
		DryRun:    !r.Execute,
	}
	finish := func(err error) (*Report, error) {
		rep.FinishedAt = r.Clock.Now()
		if err != nil {
			rep.Error = err.Error()
		}
		return rep, err
	}

	if err := r.Adapter.SetTerminalLength(ctx); err != nil {
		return finish(fmt.Errorf("setting terminal length: %w", err))
	}

	dump, err := r.Adapter.NeighborDump(ctx)
	if err != nil {
		return finish(fmt.Errorf("reading neighbors: %w", err))
	}

	parsed := r.Adapter.ParseNeighborDump(dump)
	if parsed.Empty() {
		log.Info("no neighbor information retrieved")
		rep.NoNeighborData = true
		return finish(nil)
	}
	rep.Targets = topology.Filter(parsed.Targets, r.Ports)
	rep.Skipped = parsed.Skipped

	planned, err := r.Engine.Plan(ctx, rep.Targets)
	if planned != nil {
		rep.Outcomes = planned.Outcomes
		for _, pe := range planned.ValidationErrors {
			rep.ValidationErrors = append(rep.ValidationErrors, Issue{Port: pe.Port, Kind: pe.Kind.Error(), Detail: pe.Detail})
		}
		rep.Plan = planned.Plan
	}
	if err != nil {
		return finish(err)
	}

	if !rep.HasChanges() {
		log.Info("no description updates needed")
		return finish(nil)
	}
	if !r.Execute {
		return finish(nil)
	}

	if r.Review != nil {
		if err := r.Review(ctx, rep); err != nil {
			if !errors.Is(err, util.ErrAborted) {
				err = fmt.Errorf("%w: %v", util.ErrAborted, err)
			}
			return finish(err)
		}
	}

	// Once the first command is sent the plan runs to completion or to a
	// transport failure; cancellation no longer applies.
	applied, err := r.Executor.Apply(context.WithoutCancel(ctx), rep.Plan)
	rep.AppliedCommands = applied.Applied
	rep.Warnings = applied.Warnings
	if err != nil {
		return finish(err)
	}
	rep.Applied = true
	log.WithFields(logrus.Fields{"commands": applied.Applied}).Info("plan applied; running config not saved to startup-config")
	return finish(nil)
}
