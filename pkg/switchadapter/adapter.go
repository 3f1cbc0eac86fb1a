// Package switchadapter defines the vendor-specific capability set used by the
// reconciliation engine and a registry that maps vendor keys to adapters.
package switchadapter

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/newtron-network/lldpsync/pkg/topology"
	"github.com/newtron-network/lldpsync/pkg/util"
)

// Commander executes one CLI command and returns its output.
// *session.Channel implements it.
type Commander interface {
	Execute(ctx context.Context, command string, settle time.Duration) (string, error)
}

// Adapter is the vendor grammar: the commands to send and how to read their
// output. Adapters hold no per-run state.
type Adapter interface {
	// Vendor returns the registry key of the adapter.
	Vendor() string

	// SetTerminalLength disables output pagination.
	SetTerminalLength(ctx context.Context) error

	// NeighborDump returns raw neighbor-discovery output.
	NeighborDump(ctx context.Context) (string, error)

	// ParseNeighborDump turns raw output into targets and skipped records.
	ParseNeighborDump(raw string) topology.Result

	// CurrentDescription returns the configured description of port, or ""
	// when none is set.
	CurrentDescription(ctx context.Context, port string) (string, error)

	// EnterConfigMode returns the commands that precede interface edits.
	EnterConfigMode() []string

	// DescriptionCommands returns the commands setting one port's description.
	DescriptionCommands(port, description string) []string

	// ExitConfigMode returns the commands that end a plan.
	ExitConfigMode() []string

	// ValidPort reports whether port matches the vendor's naming grammar.
	ValidPort(port string) bool

	// Rules returns the skip list and multiple-neighbor sentinel.
	Rules() topology.Rules
}

// Constructor builds an adapter that talks through c.
type Constructor func(c Commander) Adapter

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register adds a vendor constructor. Keys are case-insensitive.
func Register(vendor string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(vendor)] = ctor
}

// New returns the adapter registered for vendor.
func New(vendor string, c Commander) (Adapter, error) {
	registryMu.RLock()
	ctor, ok := registry[strings.ToLower(vendor)]
	registryMu.RUnlock()
	if !ok {
		return nil, &util.UnsupportedVendorError{Vendor: vendor, Known: Vendors()}
	}
	return ctor(c), nil
}

// Supported reports whether vendor has a registered adapter.
func Supported(vendor string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(vendor)]
	return ok
}

// Vendors returns the registered vendor keys, sorted.
func Vendors() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
