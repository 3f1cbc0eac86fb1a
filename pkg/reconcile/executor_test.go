package reconcile

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/newtron-network/lldpsync/pkg/util"
)

type recordingCommander struct {
	sent    []string
	replies map[string]string
	failAt  int
}

func (r *recordingCommander) Execute(_ context.Context, command string, _ time.Duration) (string, error) {
	if r.failAt > 0 && len(r.sent)+1 == r.failAt {
		return "", util.NewTransportError("send", io.ErrClosedPipe)
	}
	r.sent = append(r.sent, command)
	return r.replies[command], nil
}

func TestIsPersistCommand(t *testing.T) {
	persist := []string{"write memory", "write mem", "write", "wr", "  WRITE MEMORY ", "copy running-config startup-config", "copy run start", "save"}
	for _, c := range persist {
		if !IsPersistCommand(c) {
			t.Errorf("IsPersistCommand(%q) = false, want true", c)
		}
	}
	safe := []string{"conf", "end", "exit", "interface Gi1/0/1", `description "write memory"`, "show running-config"}
	for _, c := range safe {
		if IsPersistCommand(c) {
			t.Errorf("IsPersistCommand(%q) = true, want false", c)
		}
	}
}

func TestExecutor_RefusesPersistPlan(t *testing.T) {
	t.Parallel()

	rc := &recordingCommander{}
	x := NewExecutor(rc, time.Millisecond, nil)

	res, err := x.Apply(t.Context(), CommandPlan{Commands: []string{"conf", "interface Gi1/0/1", "end", "write memory"}})
	require.ErrorIs(t, err, util.ErrPersistForbidden)
	require.Zero(t, res.Applied)
	require.Empty(t, rc.sent, "nothing is sent when the plan contains a persist command")
}

func TestExecutor_PartialFailure(t *testing.T) {
	t.Parallel()

	rc := &recordingCommander{failAt: 3}
	x := NewExecutor(rc, time.Millisecond, nil)

	plan := CommandPlan{Commands: []string{"conf", "interface Gi1/0/1", `description "HostA"`, "exit", "end"}}
	res, err := x.Apply(t.Context(), plan)
	require.ErrorIs(t, err, util.ErrTransport)
	require.Equal(t, 2, res.Applied)
	require.Equal(t, []string{"conf", "interface Gi1/0/1"}, rc.sent)
}

func TestExecutor_CLIErrorsBecomeWarnings(t *testing.T) {
	t.Parallel()

	rc := &recordingCommander{replies: map[string]string{
		"interface Gi1/0/1": "interface Gi1/0/1\r\n% Invalid input detected at '^' marker.\r\nconsole(config)#",
	}}
	x := NewExecutor(rc, time.Millisecond, nil)

	res, err := x.Apply(t.Context(), CommandPlan{Commands: []string{"conf", "interface Gi1/0/1", "end"}})
	require.NoError(t, err)
	require.Equal(t, 3, res.Applied)
	require.Len(t, res.Warnings, 1)
	require.Contains(t, res.Warnings[0], "interface Gi1/0/1")
	require.Contains(t, res.Warnings[0], "Invalid input")
}
