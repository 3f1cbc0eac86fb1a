package switchadapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// VendorDellV6 is the registry key of the Dell PowerConnect / N-series
// (OS 6) adapter.
const VendorDellV6 = "dellv6"

const (
	dellShowSettle = 2 * time.Second

	// DellMultiNeighborSentinel marks a port with more than one neighbor.
	DellMultiNeighborSentinel = "multiple devices on lldp"
)

var (
	dellSkipNames   = []string{"(none)"}
	dellPortPrefix  = []string{"Gi", "Te"}
	dellPortRe      = regexp.MustCompile(`^(Gi|Te)\d+/\d+/\d+$`)
	dellDescRe      = regexp.MustCompile(`description\s+"([^"]+)"`)
	dellCLIErrorRe  = regexp.MustCompile(`(?m)^\s*% ?(Invalid|Incomplete|Ambiguous|Error)`)
	dellNeighborMin = 5
)

func init() {
	Register(VendorDellV6, NewDellV6)
}

// DellV6 speaks the Dell OS 6 CLI.
type DellV6 struct {
	cmd Commander
}

// NewDellV6 creates a Dell OS 6 adapter.
func NewDellV6(c Commander) Adapter {
	return &DellV6{cmd: c}
}

func (d *DellV6) Vendor() string { return VendorDellV6 }

func (d *DellV6) SetTerminalLength(ctx context.Context) error {
	_, err := d.cmd.Execute(ctx, "terminal length 0", dellShowSettle)
	return err
}

func (d *DellV6) NeighborDump(ctx context.Context) (string, error) {
	return d.cmd.Execute(ctx, "show lldp remote-device all", dellShowSettle)
}

// ParseNeighborDump keeps lines with at least five fields whose first field
// is a Gi/Te port. The neighbor name is every field from the fifth on, so
// system names with spaces survive.
//
//	Interface RemID   Chassis ID          Port ID           System Name
//	--------- ------- ------------------- ----------------- -----------
//	Gi1/0/1   12      00:11:22:33:44:55   Gi0/1             core sw 1
func (d *DellV6) ParseNeighborDump(raw string) topology.Result {
	var records []topology.NeighborRecord
	for _, line := range strings.Split(raw, "\n") {
		fields := strings.Fields(line)
		if len(fields) < dellNeighborMin || !hasAnyPrefix(fields[0], dellPortPrefix) {
			continue
		}
		records = append(records, topology.NeighborRecord{
			Port:         fields[0],
			NeighborName: strings.Join(fields[4:], " "),
		})
	}
	return topology.Classify(records, d.Rules())
}

// CurrentDescription reads the description from a filtered running-config
// dump. A missing description line is not an error; CLI error output is a
// retryable fetch failure.
func (d *DellV6) CurrentDescription(ctx context.Context, port string) (string, error) {
	out, err := d.cmd.Execute(ctx, fmt.Sprintf("show running-config interface %s | include description", port), dellShowSettle)
	if err != nil {
		return "", err
	}
	if m := dellCLIErrorRe.FindString(out); m != "" {
		return "", util.NewPortError(port, util.ErrDescriptionFetch, strings.TrimSpace(m))
	}

	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "description") {
			continue
		}
		if m := dellDescRe.FindStringSubmatch(line); m != nil {
			return m[1], nil
		}
	}
	return "", nil
}

func (d *DellV6) EnterConfigMode() []string {
	return []string{"conf"}
}

func (d *DellV6) DescriptionCommands(port, description string) []string {
	return []string{
		"interface " + port,
		fmt.Sprintf("description \"%s\"", description),
		"exit",
	}
}

func (d *DellV6) ExitConfigMode() []string {
	return []string{"end"}
}

func (d *DellV6) ValidPort(port string) bool {
	return dellPortRe.MatchString(port)
}

func (d *DellV6) Rules() topology.Rules {
	return topology.Rules{
		SkipNames:             dellSkipNames,
		MultiNeighborSentinel: DellMultiNeighborSentinel,
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
