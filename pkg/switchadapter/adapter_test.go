package switchadapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/newtron-network/lldpsync/internal/testutil"
	"github.com/newtron-network/lldpsync/pkg/session"
	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// scriptedCommander answers commands from a map and records what it saw.
type scriptedCommander struct {
	outputs map[string]string
	err     error
	seen    []string
	settles []time.Duration
}

func (s *scriptedCommander) Execute(_ context.Context, command string, settle time.Duration) (string, error) {
	s.seen = append(s.seen, command)
	s.settles = append(s.settles, settle)
	if s.err != nil {
		return "", s.err
	}
	return s.outputs[command], nil
}

const dellDump = `show lldp remote-device all

LLDP Remote Device Summary

Local
Interface RemID   Chassis ID          Port ID           System Name
--------- ------- ------------------- ----------------- -----------------
Gi1/0/1   1       00:11:22:33:44:01   Gi0/1             HostA
Gi1/0/1   2       00:11:22:33:44:02   Gi0/2             HostB
Gi1/0/2   3       00:11:22:33:44:03   eth0              core   sw 1
Gi1/0/3   4       00:11:22:33:44:04   eth0
Te1/0/24  5       00:11:22:33:44:05   Te0/1             (none)
Fo1/0/1   6       00:11:22:33:44:06   Fo0/1             Spine

console#`

func TestRegistry(t *testing.T) {
	t.Parallel()

	a, err := New("DellV6", &scriptedCommander{})
	require.NoError(t, err)
	require.Equal(t, VendorDellV6, a.Vendor())
	require.True(t, Supported("dellv6"))
	require.Contains(t, Vendors(), VendorDellV6)

	_, err = New("junos", &scriptedCommander{})
	require.ErrorIs(t, err, util.ErrUnsupportedVendor)

	var uv *util.UnsupportedVendorError
	require.ErrorAs(t, err, &uv)
	require.Equal(t, "junos", uv.Vendor)
	require.Contains(t, uv.Known, VendorDellV6)
}

func TestDellV6_ParseNeighborDump(t *testing.T) {
	t.Parallel()

	res := NewDellV6(nil).ParseNeighborDump(dellDump)

	require.Equal(t, []topology.Target{
		{Port: "Gi1/0/1", DesiredDescription: DellMultiNeighborSentinel, NeighborCount: 2},
		{Port: "Gi1/0/2", DesiredDescription: "core sw 1", NeighborCount: 1},
	}, res.Targets)
	require.Equal(t, []topology.NeighborRecord{{Port: "Te1/0/24", NeighborName: "(none)"}}, res.Skipped)
}

func TestDellV6_ParseNeighborDump_CRLF(t *testing.T) {
	t.Parallel()

	res := NewDellV6(nil).ParseNeighborDump("Gi1/0/7  1  aa:bb  Gi0/1  HostQ\r\nTe1/0/1  2  aa:cc  Te0/1  HostR\r\n")
	require.Equal(t, []string{"Gi1/0/7", "Te1/0/1"}, topology.Ports(res.Targets))
	require.Equal(t, "HostQ", res.Targets[0].DesiredDescription)
}

func TestDellV6_ParseNeighborDump_EchoAndPromptOnly(t *testing.T) {
	t.Parallel()

	res := NewDellV6(nil).ParseNeighborDump("show lldp remote-device all\r\n\r\nconsole#")
	require.True(t, res.Empty())
}

func TestDellV6_CurrentDescription(t *testing.T) {
	t.Parallel()

	cmd := "show running-config interface Gi1/0/1 | include description"

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr error
	}{
		{
			name:   "quoted description",
			output: cmd + "\r\ndescription \"HostA\"\r\n\r\nconsole#",
			want:   "HostA",
		},
		{
			name:   "description with spaces",
			output: cmd + "\r\n  description \"core sw 1\"\r\nconsole#",
			want:   "core sw 1",
		},
		{
			name:   "no description configured",
			output: cmd + "\r\n\r\nconsole#",
			want:   "",
		},
		{
			name:   "empty output",
			output: "",
			want:   "",
		},
		{
			name:    "cli error",
			output:  cmd + "\r\n% Invalid input detected at '^' marker.\r\nconsole#",
			wantErr: util.ErrDescriptionFetch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &scriptedCommander{outputs: map[string]string{cmd: tt.output}}
			got, err := NewDellV6(c).CurrentDescription(t.Context(), "Gi1/0/1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, []string{cmd}, c.seen)
			require.Equal(t, []time.Duration{dellShowSettle}, c.settles)
		})
	}
}

func TestDellV6_CurrentDescription_TransportError(t *testing.T) {
	t.Parallel()

	c := &scriptedCommander{err: util.NewTransportError("read", io.EOF)}
	_, err := NewDellV6(c).CurrentDescription(t.Context(), "Gi1/0/1")
	require.ErrorIs(t, err, util.ErrTransport)
	require.False(t, errors.Is(err, util.ErrDescriptionFetch))
}

func TestDellV6_Commands(t *testing.T) {
	t.Parallel()

	a := NewDellV6(nil)
	require.Equal(t, []string{"conf"}, a.EnterConfigMode())
	require.Equal(t, []string{"interface Gi1/0/1", `description "core sw 1"`, "exit"}, a.DescriptionCommands("Gi1/0/1", "core sw 1"))
	require.Equal(t, []string{"end"}, a.ExitConfigMode())
}

func TestDellV6_ValidPort(t *testing.T) {
	t.Parallel()

	a := NewDellV6(nil)
	for _, p := range []string{"Gi1/0/1", "Te1/0/24", "Gi2/1/48"} {
		require.True(t, a.ValidPort(p), p)
	}
	for _, p := range []string{"eth0", "Gi1/0", "Gi1/0/1a", "Fo1/0/1", "gi1/0/1", ""} {
		require.False(t, a.ValidPort(p), p)
	}
}

func TestDellV6_OverChannel(t *testing.T) {
	t.Parallel()

	sw := testutil.NewFakeSwitch("Gi1/0/9  1  aa:bb:cc:dd:ee:ff  Gi0/1  HostZ")
	sw.ChunkSize = 7
	sw.SetDescription("Gi1/0/9", "old name")

	clock := clockwork.NewFakeClock()
	testutil.AutoAdvance(t, clock, 100*time.Millisecond)
	a, err := New(VendorDellV6, session.NewChannel(sw.Transport(), session.WithClock(clock)))
	require.NoError(t, err)

	require.NoError(t, a.SetTerminalLength(t.Context()))

	dump, err := a.NeighborDump(t.Context())
	require.NoError(t, err)
	res := a.ParseNeighborDump(dump)
	require.Equal(t, []topology.Target{{Port: "Gi1/0/9", DesiredDescription: "HostZ", NeighborCount: 1}}, res.Targets)

	desc, err := a.CurrentDescription(t.Context(), "Gi1/0/9")
	require.NoError(t, err)
	require.Equal(t, "old name", desc)

	require.Equal(t, []string{
		"terminal length 0",
		"show lldp remote-device all",
		fmt.Sprintf("show running-config interface %s | include description", "Gi1/0/9"),
	}, sw.Commands())
}
