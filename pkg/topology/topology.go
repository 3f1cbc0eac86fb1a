// Package topology turns neighbor-discovery entries into per-port
// description targets.
package topology

import (
	"strings"

	"github.com/newtron-network/lldpsync/pkg/util"
)

// NeighborRecord is one neighbor seen on one port. Several records may share
// a port.
type NeighborRecord struct {
	Port         string `json:"port"`
	NeighborName string `json:"neighbor_name"`
}

// Target is the description a port should carry.
type Target struct {
	Port               string `json:"port"`
	DesiredDescription string `json:"desired_description"`
	NeighborCount      int    `json:"neighbor_count"`
}

// Rules are the per-adapter classification settings.
type Rules struct {
	// SkipNames lists neighbor names that never produce a target.
	SkipNames []string

	// MultiNeighborSentinel replaces the description of a port with more
	// than one neighbor.
	MultiNeighborSentinel string
}

// Skips reports whether name is on the skip list.
func (r Rules) Skips(name string) bool {
	for _, s := range r.SkipNames {
		if s == name {
			return true
		}
	}
	return false
}

// Result is the outcome of classifying a set of records.
type Result struct {
	Targets []Target         `json:"targets"`
	Skipped []NeighborRecord `json:"skipped"`
}

// Empty reports whether no neighbor records were seen at all.
func (r Result) Empty() bool {
	return len(r.Targets) == 0 && len(r.Skipped) == 0
}

// Classify removes skip-listed records, groups the rest by port in order of
// first appearance, then assigns each port its single neighbor's name or the
// sentinel when it has several. Grouping precedes classification because the
// multiple-neighbor decision needs every entry for the port.
//
// A single neighbor whose name equals the sentinel is indistinguishable from
// a multi-neighbor port in the resulting target; that collision is logged.
func Classify(records []NeighborRecord, rules Rules) Result {
	var (
		res    Result
		order  []string
		byPort = make(map[string][]string)
	)

	for _, rec := range records {
		if rules.Skips(rec.NeighborName) {
			res.Skipped = append(res.Skipped, rec)
			continue
		}
		if _, ok := byPort[rec.Port]; !ok {
			order = append(order, rec.Port)
		}
		byPort[rec.Port] = append(byPort[rec.Port], rec.NeighborName)
	}

	for _, port := range order {
		names := byPort[port]
		t := Target{Port: port, NeighborCount: len(names)}
		if len(names) > 1 {
			t.DesiredDescription = rules.MultiNeighborSentinel
		} else {
			t.DesiredDescription = names[0]
			if rules.MultiNeighborSentinel != "" && strings.TrimSpace(names[0]) == rules.MultiNeighborSentinel {
				util.WithPort(port).Warnf("neighbor name %q collides with the multiple-neighbor marker", names[0])
			}
		}
		res.Targets = append(res.Targets, t)
	}

	return res
}

// Ports returns the ports of targets in order.
func Ports(targets []Target) []string {
	out := make([]string, len(targets))
	for i, t := range targets {
		out[i] = t.Port
	}
	return out
}

// Filter keeps only targets whose port is in ports. An empty ports list keeps
// everything.
func Filter(targets []Target, ports []string) []Target {
	if len(ports) == 0 {
		return targets
	}
	want := make(map[string]bool, len(ports))
	for _, p := range ports {
		want[p] = true
	}
	var out []Target
	for _, t := range targets {
		if want[t.Port] {
			out = append(out, t)
		}
	}
	return out
}
