package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/metadata"
	"github.com/roach88/snrecon/internal/order"
)

// Scenario defines a reconciliation test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Scope keys persisted state. Defaults to Name.
	Scope string `yaml:"scope,omitempty"`

	// Rules is optional CUE source replacing the built-in quantity rules.
	Rules string `yaml:"rules,omitempty"`

	// Catalog maps product refs to metadata.
	Catalog map[string]metadata.ProductInfo `yaml:"catalog,omitempty"`

	// Leftovers are serials persisted for Scope before the steps run.
	Leftovers []string `yaml:"leftovers,omitempty"`

	// Lines is the initial order.
	Lines []order.Line `yaml:"lines"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is the fixed engine session id. Defaults to "test-session".
	SessionID string `yaml:"session_id,omitempty"`
}

// Step is one operation against the engine.
type Step struct {
	Action string `yaml:"action"`

	// Targets is the target list for reconcile.
	Targets []string `yaml:"targets,omitempty"`

	// Serials are toggled by select.
	Serials []string `yaml:"serials,omitempty"`

	// Line is the target line for target, or the line to repair for fix.
	Line string `yaml:"line,omitempty"`

	// Translate is an optional language for fix: de or en.
	Translate string `yaml:"translate,omitempty"`

	// ExpectError is the engine error code the step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step actions.
const (
	StepReconcile = "reconcile"
	StepApply     = "apply"
	StepResume    = "resume"
	StepSelect    = "select"
	StepTarget    = "target"
	StepCommit    = "commit"
	StepCancel    = "cancel"
	StepDiscard   = "discard"
	StepUndo      = "undo"
	StepFix       = "fix"
)

// Assertion validates the state after all steps.
type Assertion struct {
	Type string `yaml:"type"`

	// Line identifies the line for line, line_deleted and audit.
	Line string `yaml:"line,omitempty"`

	// Serials is the expected serial list for missing, line and leftovers.
	Serials []string `yaml:"serials,omitempty"`

	// Lines is the expected line id list for positions_to_delete.
	Lines []string `yaml:"lines,omitempty"`

	Description *string `yaml:"description,omitempty"`
	Quantity    *int    `yaml:"quantity,omitempty"`
	Count       *int    `yaml:"count,omitempty"`

	// Status is the expected health status for audit.
	Status string `yaml:"status,omitempty"`

	// State is the expected workflow state.
	State string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertMissing           = "missing"
	AssertPositionsToDelete = "positions_to_delete"
	AssertLine              = "line"
	AssertLineDeleted       = "line_deleted"
	AssertLineCount         = "line_count"
	AssertAudit             = "audit"
	AssertState             = "state"
	AssertLeftovers         = "leftovers"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Lines))
	for i, l := range s.Lines {
		if l.ID == "" {
			return fmt.Errorf("lines[%d]: id is required", i)
		}
		if ids[l.ID] {
			return fmt.Errorf("lines[%d]: duplicate id %q", i, l.ID)
		}
		ids[l.ID] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	switch s.Action {
	case StepApply, StepResume, StepCommit, StepCancel, StepDiscard, StepUndo:
	case StepReconcile:
		if s.Targets == nil {
			return fmt.Errorf("steps[%d]: targets is required for reconcile (use [] for none)", index)
		}
	case StepSelect:
		if len(s.Serials) == 0 {
			return fmt.Errorf("steps[%d]: serials is required for select", index)
		}
	case StepTarget:
		if s.Line == "" {
			return fmt.Errorf("steps[%d]: line is required for target", index)
		}
	case StepFix:
		if s.Translate != "" && !description.ValidLanguage(description.Language(s.Translate)) {
			return fmt.Errorf("steps[%d]: translate must be de or en", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: action is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown action %q", index, s.Action)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertMissing, AssertPositionsToDelete, AssertLeftovers:
	case AssertLine:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for line", index)
		}
		if a.Description == nil && a.Quantity == nil && a.Serials == nil {
			return fmt.Errorf("assertions[%d]: line needs description, quantity or serials", index)
		}
	case AssertLineDeleted:
		if a.Line == "" {
			return fmt.Errorf("assertions[%d]: line is required for line_deleted", index)
		}
	case AssertLineCount:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for line_count", index)
		}
	case AssertAudit:
		if a.Line == "" || a.Status == "" {
			return fmt.Errorf("assertions[%d]: line and status are required for audit", index)
		}
	case AssertState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
