package topology

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const sentinel = "multiple devices on lldp"

var testRules = Rules{SkipNames: []string{"(none)"}, MultiNeighborSentinel: sentinel}

func TestClassify_MultipleNeighborsCollapseToSentinel(t *testing.T) {
	t.Parallel()

	res := Classify([]NeighborRecord{
		{Port: "Gi1/0/1", NeighborName: "HostA"},
		{Port: "Gi1/0/2", NeighborName: "HostZ"},
		{Port: "Gi1/0/1", NeighborName: "HostB"},
	}, testRules)

	require.Equal(t, []Target{
		{Port: "Gi1/0/1", DesiredDescription: sentinel, NeighborCount: 2},
		{Port: "Gi1/0/2", DesiredDescription: "HostZ", NeighborCount: 1},
	}, res.Targets)
	require.Empty(t, res.Skipped)
}

func TestClassify_SkipListedNeighborExcluded(t *testing.T) {
	t.Parallel()

	res := Classify([]NeighborRecord{
		{Port: "Te1/0/24", NeighborName: "(none)"},
		{Port: "Gi1/0/3", NeighborName: "HostC"},
	}, testRules)

	require.Equal(t, []Target{{Port: "Gi1/0/3", DesiredDescription: "HostC", NeighborCount: 1}}, res.Targets)
	require.Equal(t, []NeighborRecord{{Port: "Te1/0/24", NeighborName: "(none)"}}, res.Skipped)
}

func TestClassify_SkipListedRecordRemovedBeforeGrouping(t *testing.T) {
	t.Parallel()

	res := Classify([]NeighborRecord{
		{Port: "Gi1/0/5", NeighborName: "HostA"},
		{Port: "Gi1/0/5", NeighborName: "(none)"},
	}, testRules)

	require.Equal(t, []Target{{Port: "Gi1/0/5", DesiredDescription: "HostA", NeighborCount: 1}}, res.Targets)
	require.Len(t, res.Skipped, 1)
}

func TestClassify_Empty(t *testing.T) {
	t.Parallel()
	res := Classify(nil, testRules)
	require.Empty(t, res.Targets)
	require.Empty(t, res.Skipped)
	require.True(t, res.Empty())

	onlySkipped := Classify([]NeighborRecord{{Port: "Te1/0/24", NeighborName: "(none)"}}, testRules)
	require.False(t, onlySkipped.Empty())
}

// classifyPerLine classifies each record on its own, then merges by port
// keeping the last record. It agrees with Classify only when no port has
// more than one neighbor.
func classifyPerLine(records []NeighborRecord, rules Rules) map[string]string {
	out := make(map[string]string)
	for _, rec := range records {
		if rules.Skips(rec.NeighborName) {
			continue
		}
		out[rec.Port] = rec.NeighborName
	}
	return out
}

func asMap(targets []Target) map[string]string {
	out := make(map[string]string, len(targets))
	for _, t := range targets {
		out[t.Port] = t.DesiredDescription
	}
	return out
}

func TestClassify_GroupingOrderProperty(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	ports := []string{"Gi1/0/1", "Gi1/0/2", "Gi1/0/3", "Te1/0/1", "Te1/0/2"}
	names := []string{"HostA", "HostB", "HostC", "(none)", "core sw 1"}

	for i := 0; i < 500; i++ {
		n := rng.Intn(8)
		records := make([]NeighborRecord, n)
		perPort := make(map[string]int)
		for j := range records {
			records[j] = NeighborRecord{
				Port:         ports[rng.Intn(len(ports))],
				NeighborName: names[rng.Intn(len(names))],
			}
			if !testRules.Skips(records[j].NeighborName) {
				perPort[records[j].Port]++
			}
		}

		multi := false
		for _, c := range perPort {
			if c > 1 {
				multi = true
			}
		}

		grouped := asMap(Classify(records, testRules).Targets)
		perLine := classifyPerLine(records, testRules)

		if multi {
			require.NotEqual(t, perLine, grouped, "records: %v", records)
		} else {
			require.Equal(t, perLine, grouped, "records: %v", records)
		}

		// Single-neighbor ports are insensitive to record order.
		shuffled := append([]NeighborRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		require.Equal(t, grouped, asMap(Classify(shuffled, testRules).Targets))
	}
}

func TestFilter(t *testing.T) {
	t.Parallel()

	targets := []Target{{Port: "Gi1/0/1"}, {Port: "Gi1/0/2"}, {Port: "Te1/0/1"}}
	require.Equal(t, targets, Filter(targets, nil))
	require.Equal(t, []string{"Gi1/0/2", "Te1/0/1"}, Ports(Filter(targets, []string{"Te1/0/1", "Gi1/0/2", "Gi1/0/9"})))
}
