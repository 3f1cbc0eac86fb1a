package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/newtron-network/lldpsync/pkg/audit"
	"github.com/newtron-network/lldpsync/pkg/cli"
	"github.com/newtron-network/lldpsync/pkg/inventory"
	"github.com/newtron-network/lldpsync/pkg/metrics"
	"github.com/newtron-network/lldpsync/pkg/reconcile"
	"github.com/newtron-network/lldpsync/pkg/store"
	"github.com/newtron-network/lldpsync/pkg/util"
)

const lockTTL = 15 * time.Minute

var (
	executeMode   bool
	cronMode      bool
	runAll        bool
	runPorts      string
	reviewSeconds int
)

// runOptions are the per-invocation knobs shared by run and show-plan.
type runOptions struct {
	Execute bool
	Cron    bool
	Review  int
	Ports   []string
	Out     io.Writer
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile port descriptions with LLDP neighbors",
	Long: `Reconcile port descriptions with LLDP neighbors.

Without -x the planned commands are shown and nothing is sent. With -x the
plan is shown and applied after a review countdown (Ctrl+C aborts with
nothing sent). --cron skips the countdown and prints only the changes.

Changes go to the running configuration only. lldpsync never runs
'write memory'; save the configuration yourself when satisfied.

Examples:
  lldpsync -s access-1 run
  lldpsync -s access-1 run -x
  lldpsync -s access-1 run -x --ports Gi1/0/1-12
  lldpsync run --all -x --cron`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := newRunOptions(executeMode)
		if err != nil {
			return err
		}
		switches, err := selectSwitches(runAll)
		if err != nil {
			return err
		}
		return runSwitches(cmd.Context(), switches, opts)
	},
}

var showPlanCmd = &cobra.Command{
	Use:   "show-plan",
	Short: "Print the commands a run would send",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := newRunOptions(false)
		if err != nil {
			return err
		}
		switches, err := selectSwitches(false)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := reconcileSwitch(ctx, &switches[0], opts, nil)
		if err != nil {
			return err
		}
		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(rep.Plan)
		}
		if rep.Plan.IsEmpty() {
			fmt.Println("No description updates needed")
			return nil
		}
		fmt.Println(rep.Plan.String())
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Apply the plan (default is preview only)")
	runCmd.Flags().BoolVar(&cronMode, "cron", false, "Unattended: no review countdown, print only changes")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Run against every switch in the inventory, one at a time")
	runCmd.Flags().IntVar(&reviewSeconds, "review", -1, "Review countdown in seconds (default from inventory)")
	for _, cmd := range []*cobra.Command{runCmd, showPlanCmd} {
		cmd.Flags().StringVar(&runPorts, "ports", "", "Limit to ports, e.g. Gi1/0/1-24,Te1/0/1")
	}
}

func newRunOptions(execute bool) (runOptions, error) {
	opts := runOptions{
		Execute: execute,
		Cron:    cronMode,
		Review:  inv.Defaults.ReviewSeconds,
		Out:     os.Stdout,
	}
	if reviewSeconds >= 0 {
		opts.Review = reviewSeconds
	}
	if runPorts != "" {
		ports, err := util.ExpandPortRange(runPorts)
		if err != nil {
			return opts, err
		}
		opts.Ports = ports
	}
	return opts, nil
}

// runSwitches reconciles each switch in turn. A failure on one switch is
// reported and the next switch still runs, unless the operator aborted.
func runSwitches(parent context.Context, switches []inventory.Switch, opts runOptions) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist := openStore(ctx)
	if hist != nil {
		defer hist.Close()
	}
	rec := metrics.NewRecorder()

	var (
		reports []*reconcile.Report
		errs    []error
	)
	for i := range switches {
		sw := &switches[i]
		rep, err := reconcileSwitch(ctx, sw, opts, hist)
		if rep != nil {
			reports = append(reports, rep)
			rec.Observe(rep, err)
			record(ctx, hist, rep, err, opts)
			if !jsonOutput {
				printReport(opts.Out, rep, opts)
			}
		}
		if err != nil {
			util.WithSwitch(sw.Name).Errorf("run failed: %v", err)
			errs = append(errs, fmt.Errorf("%s: %w", sw.Name, err))
			if errors.Is(err, util.ErrAborted) {
				break
			}
		}
	}

	if inv.Metrics.Textfile != "" {
		if err := rec.WriteTextfile(inv.Metrics.Textfile); err != nil {
			util.Warnf("%v", err)
		}
	}
	if len(switches) == 1 {
		userSettings.LastSwitch = switches[0].Name
		if err := userSettings.Save(); err != nil {
			util.Debugf("saving settings: %v", err)
		}
	}

	if jsonOutput {
		if err := json.NewEncoder(opts.Out).Encode(reports); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// reconcileSwitch runs one switch end to end. The returned report is nil only
// if the run never reached the switch.
func reconcileSwitch(ctx context.Context, sw *inventory.Switch, opts runOptions, hist *store.Store) (*reconcile.Report, error) {
	ports := opts.Ports
	if len(ports) == 0 {
		var err error
		if ports, err = sw.PortList(); err != nil {
			return nil, err
		}
	}

	if hist != nil && opts.Execute {
		holder := currentUser + "@" + hostname()
		if err := hist.AcquireLock(ctx, sw.Name, holder, lockTTL); err != nil {
			return nil, err
		}
		defer func() {
			if err := hist.ReleaseLock(context.WithoutCancel(ctx), sw.Name, holder); err != nil {
				util.WithSwitch(sw.Name).Warnf("releasing lock: %v", err)
			}
		}()
	}

	sess, err := openSession(ctx, sw)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	r := reconcile.NewReconciler(sw.Name, sess.Adapter, sess.Channel, reconcile.EngineConfig{})
	r.Execute = opts.Execute
	r.Ports = ports
	r.Review = reviewFor(opts)
	return r.Run(ctx)
}

// reviewFor returns the review gate for opts, or nil when changes apply
// without a countdown.
func reviewFor(opts runOptions) reconcile.ReviewFunc {
	if !opts.Execute || opts.Cron || opts.Review <= 0 || jsonOutput {
		return nil
	}
	countdown := reconcile.Countdown(clockwork.NewRealClock(), opts.Review, opts.Out)
	return func(ctx context.Context, rep *reconcile.Report) error {
		fmt.Fprintln(opts.Out, rep.String())
		return countdown(ctx, rep)
	}
}

func openStore(ctx context.Context) *store.Store {
	if inv.Redis.Addr == "" {
		return nil
	}
	s := store.New(store.Config{
		Addr:     inv.Redis.Addr,
		Password: inv.Redis.Password,
		DB:       inv.Redis.DB,
		History:  inv.Redis.History,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Ping(pingCtx); err != nil {
		util.Warnf("Redis at %s unavailable, history and locking disabled: %v", inv.Redis.Addr, err)
		s.Close()
		return nil
	}
	return s
}

// record writes the audit event and report history for one run.
func record(ctx context.Context, hist *store.Store, rep *reconcile.Report, runErr error, opts runOptions) {
	logAudit(buildEvent(currentUser, rep, runErr, opts))
	if hist != nil {
		if err := hist.SaveReport(context.WithoutCancel(ctx), rep); err != nil {
			util.Warnf("%v", err)
		}
	}
}

// logAudit writes e to the audit log; a failure only warns.
func logAudit(e *audit.Event) {
	if err := audit.Log(e); err != nil {
		util.Warnf("audit: %v", err)
	}
}

func buildEvent(user string, rep *reconcile.Report, runErr error, opts runOptions) *audit.Event {
	e := audit.NewEvent(user, rep.Switch, audit.OperationRun).
		WithPorts(opts.Ports).
		WithSummary(rep.Summary()).
		WithDuration(rep.Duration()).
		WithExecuteMode(opts.Execute)
	e.Timestamp = rep.StartedAt

	var changes []audit.Change
	for _, o := range rep.Changes() {
		changes = append(changes, audit.Change{Port: o.Port, Old: o.PreviousDescription, New: o.ProposedDescription})
	}
	e.WithChanges(changes)

	switch {
	case errors.Is(runErr, util.ErrAborted):
		e.WithAborted().WithError(runErr)
	case runErr != nil:
		e.WithError(runErr)
	default:
		e.WithSuccess()
	}
	return e
}

// printReport writes the human-readable result of one run.
func printReport(w io.Writer, rep *reconcile.Report, opts runOptions) {
	if opts.Cron {
		if rep.HasChanges() {
			fmt.Fprintln(w, rep.String())
		}
		if rep.Applied {
			fmt.Fprintf(w, "%s: %s\n", rep.Switch, rep.Summary())
		}
		return
	}

	fmt.Fprintf(w, "\n%s (%s)\n", cli.Bold(rep.Switch), rep.Vendor)
	if rep.NoNeighborData {
		fmt.Fprintln(w, cli.Yellow("No neighbor information retrieved"))
		return
	}

	t := cli.NewTableTo(w, "PORT", "CURRENT", "PROPOSED", "STATUS", "DETAIL")
	for _, o := range rep.Outcomes {
		t.Row(o.Port, o.PreviousDescription, o.ProposedDescription, cli.Status(string(o.Status)), o.Detail)
	}
	t.Flush()

	if len(rep.Skipped) > 0 {
		fmt.Fprintln(w, cli.Dim(fmt.Sprintf("Skipped %d neighbor record(s) with placeholder names", len(rep.Skipped))))
	}
	for _, issue := range rep.ValidationErrors {
		fmt.Fprintln(w, cli.Red(fmt.Sprintf("Validation error on %s: %s", issue.Port, issue.Detail)))
	}
	for _, warn := range rep.Warnings {
		fmt.Fprintln(w, cli.Yellow("Warning: "+warn))
	}

	fmt.Fprintln(w, "\n"+rep.Summary())
	switch {
	case rep.Applied:
		fmt.Fprintln(w, cli.Green("Changes applied to the running configuration.")+
			" They were NOT saved to startup-config.")
	case rep.HasChanges() && rep.DryRun:
		fmt.Fprintln(w, "\n"+rep.Plan.String())
		fmt.Fprintln(w, "\n"+cli.Yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
	if rep.Error != "" {
		fmt.Fprintln(w, cli.Red("Error: "+rep.Error))
	}
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// exitCode maps run errors to process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, util.ErrAborted):
		return 130
	case errors.Is(err, util.ErrSwitchLocked):
		return 75
	}
	return 1
}
