package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/metadata"
	"github.com/roach88/snrecon/internal/rules"
)

// UndoKeyPrefix prefixes the key/value entry holding the persisted snapshot.
const UndoKeyPrefix = "undo:"

// UndoKey returns the key/value key for the undo snapshot of scope.
func UndoKey(scope string) string {
	return UndoKeyPrefix + scope
}

// Host is the document the engine reconciles.
type Host interface {
	LineSource
	FieldStore
}

// Engine runs one reconciliation session for a scope.
//
// It re-reads line items from the host on every operation, takes an undo
// snapshot before returning changes that mutate the host, and hands missing
// serials to the assignment workflow. The host performs the changes.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	scope     string
	sessionID string
	host      Host
	kv        KV
	rules     QuantityRules
	lookup    metadata.Lookup
	ids       SessionIDGenerator
	logger    *zap.Logger

	loader   *Loader
	undo     *UndoStore
	workflow *Workflow
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRules sets the quantity rules. Default: rules.Default().
func WithRules(r QuantityRules) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rules = r
		}
	}
}

// WithMetadata sets the product metadata lookup. Default: none, so
// manufacturer and product name stay unknown.
func WithMetadata(l metadata.Lookup) EngineOption {
	return func(e *Engine) {
		e.lookup = l
	}
}

// WithSessionIDs sets the session id generator. Default: UUIDv7Generator.
func WithSessionIDs(g SessionIDGenerator) EngineOption {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// New creates an Engine for scope.
func New(scope string, host Host, kv KV, opts ...EngineOption) *Engine {
	e := &Engine{
		scope:  scope,
		host:   host,
		kv:     kv,
		rules:  rules.Default(),
		ids:    UUIDv7Generator{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.sessionID = e.ids.Generate()
	e.logger = e.logger.With(zap.String("session", e.sessionID))
	e.loader = NewLoader(host, e.lookup, e.logger)
	e.undo = NewUndoStore(host, e.logger)
	e.workflow = NewWorkflow(scope, kv, e.loader, e.rules, e.logger)
	return e
}

// SessionID returns the id of this session.
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Scope returns the scope the engine persists state under.
func (e *Engine) Scope() string {
	return e.scope
}

// Rules returns the quantity rules in use.
func (e *Engine) Rules() QuantityRules {
	return e.rules
}

// Workflow returns the assignment workflow of this session.
func (e *Engine) Workflow() *Workflow {
	return e.workflow
}

// Lines reads the current line items from the host.
func (e *Engine) Lines(ctx context.Context) ([]LineItem, error) {
	return e.loader.Load(ctx)
}

// Reconcile computes the result for target against the current line items.
// Nothing is changed; call Apply to commit it.
func (e *Engine) Reconcile(ctx context.Context, target []string) (*ReconciliationResult, error) {
	lines, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	res := Reconcile(target, lines)
	for _, m := range res.MultiplyUsed {
		e.logger.Warn("serial used on several lines",
			zap.String("serial", m.Serial),
			zap.Strings("lines", m.LineIDs))
	}
	e.logger.Debug("reconciled",
		zap.Int("matching", len(res.Matching)),
		zap.Int("to_remove", len(res.ToRemove)),
		zap.Int("missing", len(res.Missing)),
		zap.Int("positions_to_delete", len(res.PositionsToDelete)))
	return res, nil
}

// Apply commits result against the current line items.
//
// The whole line list is snapshotted for undo first. When the result has
// missing serials the assignment workflow is started with them, and the
// change is not Complete. Such a result is refused before any snapshot while
// the workflow is already selecting.
func (e *Engine) Apply(ctx context.Context, result *ReconciliationResult) (*AppliedChange, error) {
	lines, err := e.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	change, err := Apply(result, lines, e.rules)
	if err != nil {
		return nil, err
	}
	if !change.Complete && e.workflow.State() == StateSelecting {
		return nil, NewTransitionError("start", e.workflow.State())
	}
	if len(change.Changes) > 0 {
		if err := e.Snapshot(ctx, FieldRef{Field: FieldLines}); err != nil {
			return nil, err
		}
	}
	if !change.Complete {
		if err := e.workflow.Start(ctx, change.Missing); err != nil {
			return nil, err
		}
	}
	e.logger.Info("reconciliation applied",
		zap.Int("changes", len(change.Changes)),
		zap.Int("missing", len(change.Missing)))
	return change, nil
}

// Resume starts the assignment workflow with the leftovers persisted for
// the scope only.
func (e *Engine) Resume(ctx context.Context) error {
	return e.workflow.Start(ctx, nil)
}

// Commit snapshots the target line and commits the current assignment step.
func (e *Engine) Commit(ctx context.Context) (*AssignmentOutcome, error) {
	st := e.workflow.Snapshot()
	if e.workflow.State() == StateSelecting && st.Target != "" && len(st.Selections) > 0 {
		err := e.Snapshot(ctx,
			FieldRef{LineID: st.Target, Field: FieldDescription},
			FieldRef{LineID: st.Target, Field: FieldQuantity})
		if err != nil {
			return nil, err
		}
	}
	return e.workflow.Commit(ctx)
}

// Snapshot captures refs as the single undo snapshot and persists it for
// the scope. A persistence failure is logged; undo then works only within
// this process.
func (e *Engine) Snapshot(ctx context.Context, refs ...FieldRef) error {
	if err := e.undo.Snapshot(refs...); err != nil {
		return err
	}
	data, err := json.Marshal(e.undo.Pending())
	if err != nil {
		return fmt.Errorf("encode undo snapshot: %w", err)
	}
	if err := e.kv.Set(ctx, UndoKey(e.scope), string(data)); err != nil {
		e.logger.Warn("undo snapshot not persisted",
			zap.Error(NewPersistenceError("save undo", UndoKey(e.scope), err)))
	}
	return nil
}

// Undo restores the last snapshot of the scope, loading a persisted one
// when this session has none. It returns the number of fields restored;
// zero when there was nothing to undo.
func (e *Engine) Undo(ctx context.Context) (int, error) {
	if e.undo.Pending() == nil {
		raw, ok, err := e.kv.Get(ctx, UndoKey(e.scope))
		if err != nil {
			return 0, NewPersistenceError("load undo", UndoKey(e.scope), err)
		}
		if ok {
			var snap UndoSnapshot
			if err := json.Unmarshal([]byte(raw), &snap); err != nil {
				return 0, fmt.Errorf("decode undo snapshot: %w", err)
			}
			e.undo.Load(&snap)
		}
	}

	n, err := e.undo.Restore()
	if err != nil {
		return n, err
	}
	if err := e.kv.Remove(ctx, UndoKey(e.scope)); err != nil {
		e.logger.Warn("persisted undo snapshot not cleared",
			zap.Error(NewPersistenceError("clear undo", UndoKey(e.scope), err)))
	}
	return n, nil
}
