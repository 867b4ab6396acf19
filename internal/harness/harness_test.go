package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/metadata"
	"github.com/roach88/snrecon/internal/order"
)

func TestRun_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)

	for _, f := range files {
		t.Run(strings.TrimSuffix(filepath.Base(f), ".yaml"), func(t *testing.T) {
			s, err := LoadScenario(f)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Golden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/ha_pair_renewal.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/ha_pair_renewal.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := SnapshotJSON(s, first)
	require.NoError(t, err)
	b, err := SnapshotJSON(s, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.NotEmpty(t, first.Fingerprint)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRun_FailedAssertion(t *testing.T) {
	s := &Scenario{
		Name:        "wrong_expectation",
		Description: "Expects a state the steps never reach",
		Lines:       []order.Line{{ID: "10", Description: "S/N: A1", Quantity: 1}},
		Steps:       []Step{{Action: StepReconcile, Targets: []string{"A1"}}},
		Assertions: []Assertion{
			{Type: AssertState, State: string(engine.StateCompleted)},
			{Type: AssertLineDeleted, Line: "10"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Expected: completed")
	assert.Contains(t, result.Errors[0], "Actual: idle")
	assert.Contains(t, result.Errors[1], "line still present")
}

func TestRun_UnexpectedErrorStopsSteps(t *testing.T) {
	s := &Scenario{
		Name:        "stops",
		Description: "A failing step ends the run",
		Lines:       []order.Line{{ID: "10", Description: "S/N: A1", Quantity: 1}},
		Steps: []Step{
			{Action: StepCommit},
			{Action: StepReconcile, Targets: []string{}},
		},
		Assertions: []Assertion{{Type: AssertState, State: "idle"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, string(engine.ErrCodeInvalidTransition), result.Trace[0].Error)
	assert.Contains(t, result.Errors[0], "steps[0] commit")
}

func TestRun_ExpectedErrorNotRaised(t *testing.T) {
	s := &Scenario{
		Name:        "no_error",
		Description: "A step expected to fail succeeds",
		Steps:       []Step{{Action: StepUndo, ExpectError: string(engine.ErrCodeUnknownLine)}},
		Assertions:  []Assertion{{Type: AssertState, State: "idle"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "got success")
}

func TestRun_ApplyWithoutReconcile(t *testing.T) {
	s := &Scenario{
		Name:        "apply_first",
		Description: "Apply needs a result",
		Steps:       []Step{{Action: StepApply}},
		Assertions:  []Assertion{{Type: AssertState, State: "idle"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "preceding reconcile")
}

func TestRun_CustomRules(t *testing.T) {
	s := &Scenario{
		Name:        "custom_rules",
		Description: "Rules from CUE drive the quantity of an assignment",
		Rules: `rule: "acme-quad": {
	manufacturer: "(?i)acme"
	product: "(?i)quad"
	serials_per_unit: 4
}`,
		Catalog: map[string]metadata.ProductInfo{
			"Q-1": {Manufacturer: "ACME", ProductName: "Quad Node"},
		},
		Lines: []order.Line{{ID: "10", Description: "S/N: A1, A2, A3", Quantity: 3, Product: "Q-1"}},
		Steps: []Step{
			{Action: StepReconcile, Targets: []string{"A1", "A2", "A3", "A4", "A5"}},
			{Action: StepApply},
			{Action: StepSelect, Serials: []string{"A4", "A5"}},
			{Action: StepTarget, Line: "10"},
			{Action: StepCommit},
		},
		Assertions: []Assertion{
			{Type: AssertLine, Line: "10", Quantity: intPtr(2)},
			{Type: AssertAudit, Line: "10", Status: "missingServiceDates"},
		},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidRules(t *testing.T) {
	s := &Scenario{
		Name:        "bad_rules",
		Description: "Rules must compile",
		Rules:       `rule: x: { serials_per_unit: "two" }`,
		Steps:       []Step{{Action: StepUndo}},
		Assertions:  []Assertion{{Type: AssertState, State: "idle"}},
	}

	_, err := Run(s)
	assert.ErrorContains(t, err, "failed to compile rules")
}

func TestRun_FixWithTranslation(t *testing.T) {
	s := &Scenario{
		Name:        "translate",
		Description: "Fix can switch the label language",
		Lines: []order.Line{{
			ID:          "10",
			Description: "S/N: A1\nStandort: Berlin\nService Start: 01.01.2024\nService Ende: 31.12.2024",
			Quantity:    1,
		}},
		Steps: []Step{{Action: StepFix, Translate: "en"}, {Action: StepUndo}, {Action: StepFix, Translate: "en"}},
		Assertions: []Assertion{{
			Type:        AssertLine,
			Line:        "10",
			Description: strPtr("S/N: A1\nLocation: Berlin\nService Start: 01.01.2024\nService End: 31.12.2024"),
		}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, map[string]int{"restored": 1}, result.Trace[1].Result)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
