package rules

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// schema constrains each entry under "rule".
const schema = `
#Rule: {
	manufacturer:     string & != ""
	product:          string & != ""
	serials_per_unit: int & >=1 | *2
}
`

// CompileError reports a rule file problem, with a CUE position when known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ruleDef struct {
	Manufacturer   string `json:"manufacturer"`
	Product        string `json:"product"`
	SerialsPerUnit int    `json:"serials_per_unit"`
}

// Compile builds a rule set from a CUE value with a top-level "rule" struct.
// Rules keep the declaration order of the file.
func Compile(v cue.Value) (*Set, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := v.Context().CompileString(schema).LookupPath(cue.ParsePath("#Rule"))
	if err := def.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return nil, &CompileError{Field: "rule", Message: "no rules defined", Pos: v.Pos()}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var compiled []Rule
	for iter.Next() {
		name := iter.Selector().Unquoted()
		ruleVal := def.Unify(iter.Value())
		if err := ruleVal.Validate(cue.Concrete(true)); err != nil {
			return nil, formatCUEError(err)
		}

		var rd ruleDef
		if err := ruleVal.Decode(&rd); err != nil {
			return nil, formatCUEError(err)
		}

		r, err := newRule(name, rd.Manufacturer, rd.Product, rd.SerialsPerUnit)
		if err != nil {
			return nil, &CompileError{Field: "rule." + name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		compiled = append(compiled, r)
	}

	if len(compiled) == 0 {
		return nil, &CompileError{Field: "rule", Message: "no rules defined", Pos: rulesVal.Pos()}
	}
	return NewSet(compiled...), nil
}

// CompileString compiles CUE source text into a rule set.
func CompileString(src string) (*Set, error) {
	return Compile(cuecontext.New().CompileString(src))
}

// LoadFile reads and compiles a CUE rule file.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Compile(cuecontext.New().CompileBytes(data, cue.Filename(path)))
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
