package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/order"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSteps:\n")
		for _, event := range e.Trace {
			if event.Error != "" {
				fmt.Fprintf(&buf, "  [%d] %s (error: %s)\n", event.Step, event.Action, event.Error)
			} else {
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, event.Action)
			}
		}
	}
	return buf.String()
}

// AssertionContext gives assertions access to the engine the scenario ran on.
type AssertionContext struct {
	Engine *engine.Engine
	Ctx    context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertMissing:
			err = assertMissing(result, a)
		case AssertPositionsToDelete:
			err = assertPositionsToDelete(result, a)
		case AssertLine:
			err = assertLine(result, a)
		case AssertLineDeleted:
			err = assertLineDeleted(result, a)
		case AssertLineCount:
			err = assertLineCount(result, a)
		case AssertState:
			err = assertState(result, a)
		case AssertLeftovers:
			err = assertLeftovers(result, a)
		case AssertAudit:
			if actx == nil || actx.Engine == nil {
				err = fmt.Errorf("assertion[%d]: audit requires an engine", i)
			} else {
				err = assertAudit(actx, result, a)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func assertMissing(result *Result, a Assertion) error {
	if result.last == nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("missing %v", a.Serials), Actual: "no reconcile step ran", Trace: result.Trace}
	}
	return compareList(a.Type, result.Trace, description.NormalizeSerials(a.Serials), result.last.Missing)
}

func assertPositionsToDelete(result *Result, a Assertion) error {
	if result.last == nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("positions %v", a.Lines), Actual: "no reconcile step ran", Trace: result.Trace}
	}
	return compareList(a.Type, result.Trace, a.Lines, result.last.PositionsToDelete)
}

func assertLine(result *Result, a Assertion) error {
	l := findLine(result, a.Line)
	if l == nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("line %s", a.Line), Actual: "line not found", Trace: result.Trace}
	}
	if a.Description != nil && l.Description != *a.Description {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("line %s description %q", a.Line, *a.Description),
			Actual:   fmt.Sprintf("%q", l.Description),
			Trace:    result.Trace,
		}
	}
	if a.Quantity != nil && l.Quantity != *a.Quantity {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("line %s quantity %d", a.Line, *a.Quantity),
			Actual:   fmt.Sprintf("%d", l.Quantity),
			Trace:    result.Trace,
		}
	}
	if a.Serials != nil {
		got := description.Parse(l.Description).SerialKeys()
		return compareList(a.Type, result.Trace, description.NormalizeSerials(a.Serials), got)
	}
	return nil
}

func assertLineDeleted(result *Result, a Assertion) error {
	if findLine(result, a.Line) != nil {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("line %s deleted", a.Line), Actual: "line still present", Trace: result.Trace}
	}
	return nil
}

func assertLineCount(result *Result, a Assertion) error {
	if len(result.Lines) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d lines", *a.Count),
			Actual:   fmt.Sprintf("%d lines", len(result.Lines)),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertState(result *Result, a Assertion) error {
	if string(result.State) != a.State {
		return &AssertionError{Type: a.Type, Expected: a.State, Actual: string(result.State), Trace: result.Trace}
	}
	return nil
}

func assertLeftovers(result *Result, a Assertion) error {
	return compareList(a.Type, result.Trace, description.NormalizeSerials(a.Serials), result.Leftovers)
}

func assertAudit(actx *AssertionContext, result *Result, a Assertion) error {
	items, err := actx.Engine.Lines(actx.Ctx)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	auditor := description.NewAuditor(actx.Engine.Rules())
	for _, item := range items {
		if item.ID != a.Line {
			continue
		}
		health := auditor.Audit(item.Description, item.Quantity, item.Manufacturer, item.ProductName)
		if string(health.Status) != a.Status {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("line %s status %s", a.Line, a.Status),
				Actual:   fmt.Sprintf("%s (%s)", health.Status, health.Reason),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("line %s", a.Line), Actual: "line not found", Trace: result.Trace}
}

func findLine(result *Result, id string) *order.Line {
	for i := range result.Lines {
		if result.Lines[i].ID == id {
			return &result.Lines[i]
		}
	}
	return nil
}

// compareList checks that actual equals expected in order. A nil expected
// list matches an empty actual list.
func compareList(typ string, trace []TraceEvent, expected, actual []string) error {
	if len(expected) == 0 && len(actual) == 0 {
		return nil
	}
	if !slices.Equal(expected, actual) {
		return &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("%v", expected),
			Actual:   fmt.Sprintf("%v", actual),
			Trace:    trace,
		}
	}
	return nil
}
