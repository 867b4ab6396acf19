package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/engine"
	"github.com/roach88/snrecon/internal/ir"
	"github.com/roach88/snrecon/internal/metadata"
	"github.com/roach88/snrecon/internal/order"
	"github.com/roach88/snrecon/internal/rules"
	"github.com/roach88/snrecon/internal/store"
)

// DefaultSessionID is the session id used when a scenario sets none.
const DefaultSessionID = "test-session"

// Harness executes the steps of one scenario.
type Harness struct {
	store  *store.Store
	doc    *order.Document
	engine *engine.Engine
	logger *zap.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *zap.Logger
}

// WithLogger sets the logger passed to the engine. Defaults to zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database. A step failing without
// expect_error stops the run; assertions are still evaluated.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:", store.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	scope := scenario.Scope
	if scope == "" {
		scope = scenario.Name
	}

	if len(scenario.Leftovers) > 0 {
		data, err := json.Marshal(scenario.Leftovers)
		if err != nil {
			return nil, fmt.Errorf("encode leftovers: %w", err)
		}
		if err := st.Set(ctx, engine.LeftoverKey(scope), string(data)); err != nil {
			return nil, fmt.Errorf("failed to seed leftovers: %w", err)
		}
	}

	engineOpts := []engine.EngineOption{
		engine.WithLogger(o.logger),
		engine.WithMetadata(metadata.NewCached(
			metadata.NewCatalog(scenario.Catalog),
			st.MetadataCache(),
			metadata.WithLogger(o.logger))),
	}
	if scenario.Rules != "" {
		rs, err := rules.CompileString(scenario.Rules)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rules: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithRules(rs))
	}
	sessionID := scenario.SessionID
	if sessionID == "" {
		sessionID = DefaultSessionID
	}
	engineOpts = append(engineOpts, engine.WithSessionIDs(engine.NewFixedGenerator(sessionID)))

	doc := &order.Document{Scope: scope, Items: slices.Clone(scenario.Lines)}
	h := &Harness{
		store:  st,
		doc:    doc,
		engine: engine.New(scope, doc, st, engineOpts...),
		logger: o.logger,
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			result.AddError(err.Error())
			break
		}
	}

	if err := h.collect(ctx, scope, result); err != nil {
		return nil, err
	}

	actx := &AssertionContext{Engine: h.engine, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// executeStep runs one step and checks its expected error.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	out, err := h.dispatch(ctx, step, result)

	code := errorCode(err)
	result.addTrace(index, step.Action, out, code)

	switch {
	case step.ExpectError != "" && err == nil:
		return fmt.Errorf("steps[%d] %s: expected error %s, got success", index, step.Action, step.ExpectError)
	case step.ExpectError != "" && code != step.ExpectError:
		return fmt.Errorf("steps[%d] %s: expected error %s, got %v", index, step.Action, step.ExpectError, err)
	case step.ExpectError == "" && err != nil:
		return fmt.Errorf("steps[%d] %s: %w", index, step.Action, err)
	}
	return nil
}

func (h *Harness) dispatch(ctx context.Context, step Step, result *Result) (any, error) {
	wf := h.engine.Workflow()
	switch step.Action {
	case StepReconcile:
		res, err := h.engine.Reconcile(ctx, step.Targets)
		if err != nil {
			return nil, err
		}
		result.last = res
		return res, nil

	case StepApply:
		if result.last == nil {
			return nil, errors.New("apply needs a preceding reconcile step")
		}
		change, err := h.engine.Apply(ctx, result.last)
		if err != nil {
			return nil, err
		}
		if err := h.doc.ApplyChanges(change.Changes); err != nil {
			return nil, err
		}
		return change, nil

	case StepResume:
		return nil, h.engine.Resume(ctx)

	case StepSelect:
		for _, s := range step.Serials {
			if err := wf.Toggle(s); err != nil {
				return nil, err
			}
		}
		return wf.Snapshot(), nil

	case StepTarget:
		return nil, wf.ChooseTarget(step.Line)

	case StepCommit:
		outcome, err := h.engine.Commit(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.doc.ApplyChanges(outcome.Changes); err != nil {
			return nil, err
		}
		return outcome, nil

	case StepCancel:
		return nil, wf.Cancel(ctx)

	case StepDiscard:
		wf.Discard(ctx)
		return nil, nil

	case StepUndo:
		n, err := h.engine.Undo(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]int{"restored": n}, nil

	case StepFix:
		return h.fix(ctx, step)
	}
	return nil, fmt.Errorf("unknown action %q", step.Action)
}

// fix repairs descriptions and snapshots them for undo first.
func (h *Harness) fix(ctx context.Context, step Step) (any, error) {
	var targets []*order.Line
	if step.Line != "" {
		l, ok := h.doc.Line(step.Line)
		if !ok {
			return nil, engine.NewUnknownLineError(step.Line)
		}
		targets = append(targets, l)
	} else {
		for i := range h.doc.Items {
			targets = append(targets, &h.doc.Items[i])
		}
	}

	refs := make([]engine.FieldRef, len(targets))
	for i, l := range targets {
		refs[i] = engine.FieldRef{LineID: l.ID, Field: engine.FieldDescription}
	}
	if err := h.engine.Snapshot(ctx, refs...); err != nil {
		return nil, err
	}

	changed := []string{}
	for _, l := range targets {
		text := description.ApplyAllFixes(l.Description)
		if step.Translate != "" {
			text = description.TranslateLanguage(text, description.Language(step.Translate))
		}
		if text != l.Description {
			l.Description = text
			changed = append(changed, l.ID)
		}
	}
	return map[string][]string{"changed": changed}, nil
}

// collect copies the final order and workflow state into result.
func (h *Harness) collect(ctx context.Context, scope string, result *Result) error {
	result.Lines = append(result.Lines, h.doc.Items...)
	result.State = h.engine.Workflow().State()

	raw, ok, err := h.store.Get(ctx, engine.LeftoverKey(scope))
	if err != nil {
		return fmt.Errorf("failed to read leftovers: %w", err)
	}
	if ok {
		var leftovers []string
		if err := json.Unmarshal([]byte(raw), &leftovers); err != nil {
			return fmt.Errorf("failed to decode leftovers: %w", err)
		}
		result.Leftovers = append(result.Leftovers, leftovers...)
	}

	if result.last != nil {
		fp, err := ir.Fingerprint(ir.DomainReconciliation, result.last)
		if err != nil {
			return fmt.Errorf("failed to fingerprint result: %w", err)
		}
		result.Fingerprint = fp
	}
	return nil
}

// errorCode renders err for the trace: the engine code when there is one.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return string(engErr.Code)
	}
	return err.Error()
}
