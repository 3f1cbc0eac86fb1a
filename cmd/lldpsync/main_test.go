package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/newtron-network/lldpsync/pkg/audit"
	"github.com/newtron-network/lldpsync/pkg/cli"
	"github.com/newtron-network/lldpsync/pkg/inventory"
	"github.com/newtron-network/lldpsync/pkg/reconcile"
	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

func init() {
	cli.SetColor(false)
}

func sampleReport() *reconcile.Report {
	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return &reconcile.Report{
		Switch:     "access-1",
		Vendor:     "dellv6",
		StartedAt:  start,
		FinishedAt: start.Add(30 * time.Second),
		Skipped:    []topology.NeighborRecord{{Port: "Te1/0/24", NeighborName: "(none)"}},
		Outcomes: []reconcile.Outcome{
			{Port: "Gi1/0/1", PreviousDescription: "old", ProposedDescription: "HostA", Status: reconcile.StatusUpdated},
			{Port: "Gi1/0/2", PreviousDescription: "HostB", ProposedDescription: "HostB", Status: reconcile.StatusUnchanged},
			{Port: "eth0", ProposedDescription: "HostC", Status: reconcile.StatusValidationError, Detail: "invalid interface format"},
		},
		ValidationErrors: []reconcile.Issue{{Port: "eth0", Kind: "port validation failed", Detail: "invalid interface format"}},
		Plan:             reconcile.CommandPlan{Commands: []string{"conf", "interface Gi1/0/1", `description "HostA"`, "exit", "end"}},
		DryRun:           true,
	}
}

func TestResolveUsername(t *testing.T) {
	sw := &inventory.Switch{Name: "access-1", Username: "inventory-user"}
	env := func(v string) func(string) string {
		return func(key string) string {
			if key == envUsername {
				return v
			}
			return ""
		}
	}

	tests := []struct {
		name     string
		flag     string
		env      string
		settings string
		want     string
	}{
		{"flag wins", "flag-user", "env-user", "settings-user", "flag-user"},
		{"env over settings", "", "env-user", "settings-user", "env-user"},
		{"settings over inventory", "", "", "settings-user", "settings-user"},
		{"inventory fallback", "", "", "", "inventory-user"},
	}
	for _, tt := range tests {
		if got := resolveUsername(sw, tt.flag, env(tt.env), tt.settings); got != tt.want {
			t.Errorf("%s: resolveUsername() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSSHConfigFor(t *testing.T) {
	inv, err := inventory.Parse([]byte("defaults: {timeout: 5s, known_hosts: /etc/ssh/known}\nswitches: [{name: a, host: 10.0.0.1, port: 2222}]"))
	if err != nil {
		t.Fatal(err)
	}
	sw, err := inv.Switch("a")
	if err != nil {
		t.Fatal(err)
	}

	cfg := sshConfigFor(sw, inv.Defaults, credentials{Username: "netops", Password: "pw"})
	if cfg.DialAttempts != inventory.DefaultDialAttempts {
		t.Errorf("DialAttempts = %d, want %d", cfg.DialAttempts, inventory.DefaultDialAttempts)
	}
	if cfg.Host != "10.0.0.1" || cfg.Port != 2222 {
		t.Errorf("addr = %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.Username != "netops" || cfg.Password != "pw" {
		t.Errorf("credentials not carried: %+v", cfg)
	}
	if cfg.Timeout != 5*time.Second || cfg.KnownHostsFile != "/etc/ssh/known" {
		t.Errorf("defaults not carried: %+v", cfg)
	}
}

type failingAuditLogger struct{ logged int }

func (f *failingAuditLogger) Log(*audit.Event) error {
	f.logged++
	return errors.New("disk full")
}
func (f *failingAuditLogger) Query(audit.Filter) ([]*audit.Event, error) { return nil, nil }
func (f *failingAuditLogger) Close() error                               { return nil }

func TestLogAudit_WarnsOnFailure(t *testing.T) {
	sink := &failingAuditLogger{}
	audit.SetDefaultLogger(sink)
	t.Cleanup(func() { audit.SetDefaultLogger(nil) })

	var buf bytes.Buffer
	out := util.Logger.Out
	util.Logger.SetOutput(&buf)
	t.Cleanup(func() { util.Logger.SetOutput(out) })

	logAudit(audit.NewEvent("alice", "access-1", audit.OperationNeighbors))

	if sink.logged != 1 {
		t.Errorf("logged = %d, want 1", sink.logged)
	}
	if !strings.Contains(buf.String(), "audit: disk full") {
		t.Errorf("warning not emitted, log output: %q", buf.String())
	}
}

func TestBuildEvent(t *testing.T) {
	rep := sampleReport()
	opts := runOptions{Execute: true, Ports: []string{"Gi1/0/1"}}

	e := buildEvent("alice", rep, nil, opts)
	if !e.Success || e.Aborted {
		t.Errorf("success = %v, aborted = %v, want true, false", e.Success, e.Aborted)
	}
	if e.Switch != "access-1" || e.User != "alice" {
		t.Errorf("switch/user = %q/%q", e.Switch, e.User)
	}
	if len(e.Changes) != 1 || e.Changes[0].New != "HostA" || e.Changes[0].Old != "old" {
		t.Errorf("Changes = %+v", e.Changes)
	}
	if e.Duration != 30*time.Second {
		t.Errorf("Duration = %v, want 30s", e.Duration)
	}
	if !e.Timestamp.Equal(rep.StartedAt) {
		t.Errorf("Timestamp = %v, want %v", e.Timestamp, rep.StartedAt)
	}

	aborted := buildEvent("alice", rep, fmt.Errorf("%w: interrupt", util.ErrAborted), opts)
	if !aborted.Aborted || aborted.Success {
		t.Errorf("aborted event: aborted = %v, success = %v", aborted.Aborted, aborted.Success)
	}

	failed := buildEvent("alice", rep, errors.New("transport failure"), opts)
	if failed.Success || failed.Error != "transport failure" {
		t.Errorf("failed event: success = %v, error = %q", failed.Success, failed.Error)
	}
}

func TestPrintReport_DryRun(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, sampleReport(), runOptions{})
	out := buf.String()

	for _, want := range []string{
		"access-1 (dellv6)",
		"Gi1/0/1",
		"Skipped 1 neighbor record(s)",
		"Validation error on eth0: invalid interface format",
		"1 updated, 1 unchanged, 0 skipped, 1 validation errors, 0 verification failures",
		`description "HostA"`,
		"DRY-RUN: No changes applied. Use -x to execute.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintReport_Applied(t *testing.T) {
	rep := sampleReport()
	rep.DryRun = false
	rep.Applied = true

	var buf bytes.Buffer
	printReport(&buf, rep, runOptions{Execute: true})
	if !strings.Contains(buf.String(), "NOT saved to startup-config") {
		t.Errorf("applied output should state startup-config was not written:\n%s", buf.String())
	}
}

func TestPrintReport_Cron(t *testing.T) {
	var buf bytes.Buffer
	rep := sampleReport()
	rep.Plan = reconcile.CommandPlan{}
	rep.Outcomes = rep.Outcomes[1:2]
	printReport(&buf, rep, runOptions{Cron: true})
	if buf.Len() != 0 {
		t.Errorf("cron output with no changes = %q, want empty", buf.String())
	}

	buf.Reset()
	printReport(&buf, sampleReport(), runOptions{Cron: true})
	if !strings.HasPrefix(buf.String(), "Changes detected on access-1:") {
		t.Errorf("cron output = %q", buf.String())
	}
}

func TestReviewFor(t *testing.T) {
	if reviewFor(runOptions{Execute: false, Review: 10}) != nil {
		t.Error("dry run should not review")
	}
	if reviewFor(runOptions{Execute: true, Cron: true, Review: 10}) != nil {
		t.Error("cron run should not review")
	}
	if reviewFor(runOptions{Execute: true, Review: 0}) != nil {
		t.Error("zero review seconds should not review")
	}
	if reviewFor(runOptions{Execute: true, Review: 10, Out: &bytes.Buffer{}}) == nil {
		t.Error("interactive execute should review")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), 1},
		{fmt.Errorf("access-1: %w", util.ErrAborted), 130},
		{errors.Join(errors.New("x"), fmt.Errorf("access-2: %w", util.ErrSwitchLocked)), 75},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestIsSettingsOrMeta(t *testing.T) {
	if !isSettingsOrMeta(settingsSetCmd) {
		t.Error("settings set should not need an inventory")
	}
	if !isSettingsOrMeta(versionCmd) {
		t.Error("version should not need an inventory")
	}
	if isSettingsOrMeta(runCmd) {
		t.Error("run needs an inventory")
	}
}

func TestLoadEnv(t *testing.T) {
	if err := loadEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("loadEnv(missing) = %v, want nil", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LLDPSYNC_TEST_ONLY_USER=envfile-user\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("LLDPSYNC_TEST_ONLY_USER") })

	if err := loadEnv(path); err != nil {
		t.Fatalf("loadEnv() = %v", err)
	}
	if got := os.Getenv("LLDPSYNC_TEST_ONLY_USER"); got != "envfile-user" {
		t.Errorf("LLDPSYNC_TEST_ONLY_USER = %q, want %q", got, "envfile-user")
	}
}
