package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/ir"
	"github.com/roach88/snrecon/internal/order"
)

// Snapshot is the golden view of a scenario execution.
// It is serialized as canonical JSON for byte-wise comparison.
type Snapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
	Lines        []order.Line `json:"lines"`
	State        engine.State `json:"state"`
	Leftovers    []string     `json:"leftovers"`
}

// NewSnapshot builds the golden view of result.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: scenario.Name,
		Trace:        result.Trace,
		Lines:        result.Lines,
		State:        result.State,
		Leftovers:    result.Leftovers,
	}
}

// SnapshotJSON returns the canonical JSON of the golden view of result.
func SnapshotJSON(scenario *Scenario, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(NewSnapshot(scenario, result))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against its
// golden file.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenario, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
