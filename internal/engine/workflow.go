package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/description"
)

// LeftoverKeyPrefix prefixes the key/value entry holding unplaced serials.
const LeftoverKeyPrefix = "leftover-serials:"

// LeftoverKey returns the key/value key for the leftovers of scope.
func LeftoverKey(scope string) string {
	return LeftoverKeyPrefix + scope
}

// KV is the host's string key/value persistence primitive.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// State is an AssignmentWorkflow state.
type State string

const (
	StateIdle      State = "idle"
	StateSelecting State = "selecting"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// AssignmentState is the data of a running assignment session.
type AssignmentState struct {
	Remaining  []string `json:"remaining"`
	Selections []string `json:"selections"`
	Target     string   `json:"target,omitempty"`
}

// AssignmentOutcome is the result of one committed assignment step.
type AssignmentOutcome struct {
	LineID   string       `json:"line_id"`
	Assigned []string     `json:"assigned"`
	Changes  []LineChange `json:"changes"`
	State    State        `json:"state"`
	Line     LineItem     `json:"-"`
}

// Workflow guides the placement of missing serials into line items.
//
// It is a synchronous state machine: Idle -> Selecting -> Completed or
// Cancelled. Every transition happens on an explicit call. Leftovers of a
// cancelled session are persisted under LeftoverKey(scope) and merged into
// the next session started for the same scope.
//
// When the KV fails, the workflow logs a warning and continues in memory;
// Resumable then reports false.
//
// A Workflow is not safe for concurrent use.
type Workflow struct {
	scope  string
	kv     KV
	loader *Loader
	rules  QuantityRules
	logger *zap.Logger

	state     State
	data      AssignmentState
	resumable bool
	// merged is true once the persisted leftovers of the scope are part of
	// data.Remaining. Until then the stored value must not be replaced or
	// cleared.
	merged bool
}

// NewWorkflow creates an idle workflow for scope.
func NewWorkflow(scope string, kv KV, loader *Loader, rules QuantityRules, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		scope:     scope,
		kv:        kv,
		loader:    loader,
		rules:     rules,
		logger:    logger.With(zap.String("scope", scope)),
		state:     StateIdle,
		resumable: true,
	}
}

// State returns the current state.
func (w *Workflow) State() State {
	return w.state
}

// Snapshot returns a copy of the assignment data.
func (w *Workflow) Snapshot() AssignmentState {
	return AssignmentState{
		Remaining:  slices.Clone(w.data.Remaining),
		Selections: slices.Clone(w.data.Selections),
		Target:     w.data.Target,
	}
}

// Remaining returns the serials not yet placed.
func (w *Workflow) Remaining() []string {
	return slices.Clone(w.data.Remaining)
}

// Resumable reports whether leftovers can still be persisted for this scope.
func (w *Workflow) Resumable() bool {
	return w.resumable
}

// Start begins a session with missing plus any leftovers persisted for the
// scope. The workflow stays Idle when there is nothing to place.
func (w *Workflow) Start(ctx context.Context, missing []string) error {
	if w.state == StateSelecting {
		return NewTransitionError("start", w.state)
	}

	remaining := description.NormalizeSerials(missing)
	leftovers, err := w.loadLeftovers(ctx)
	w.merged = err == nil
	if err != nil {
		w.degrade("load leftovers", err)
	}
	remaining = description.NormalizeSerials(append(remaining, leftovers...))

	w.data = AssignmentState{Remaining: remaining}
	if len(remaining) == 0 {
		w.state = StateIdle
		return nil
	}
	w.state = StateSelecting
	w.logger.Info("assignment started",
		zap.Int("remaining", len(remaining)),
		zap.Int("resumed", len(leftovers)))
	return nil
}

// Toggle flips the selection of serial.
func (w *Workflow) Toggle(serial string) error {
	if w.state != StateSelecting {
		return NewTransitionError("toggle", w.state)
	}
	key := description.NormalizeSerial(serial)
	if !slices.Contains(w.data.Remaining, key) {
		return NewUnknownSerialError(key)
	}
	if i := slices.Index(w.data.Selections, key); i >= 0 {
		w.data.Selections = slices.Delete(w.data.Selections, i, i+1)
		return nil
	}
	w.data.Selections = append(w.data.Selections, key)
	return nil
}

// ChooseTarget sets the line item selected serials are assigned to.
// An empty lineID clears the target. The line is checked on Commit.
func (w *Workflow) ChooseTarget(lineID string) error {
	if w.state != StateSelecting {
		return NewTransitionError("choose target", w.state)
	}
	w.data.Target = lineID
	return nil
}

// Commit assigns the selected serials to the target line.
//
// The line items are re-read from the host. The target's description gets
// the serials (deduplicated) and its quantity is recomputed with the
// quantity rules. The returned outcome lists the changes the host must make.
// Without a selection or a target, Commit fails with an assignment
// precondition error and the state is unchanged.
func (w *Workflow) Commit(ctx context.Context) (*AssignmentOutcome, error) {
	if w.state != StateSelecting {
		return nil, NewTransitionError("commit", w.state)
	}
	if len(w.data.Selections) == 0 {
		return nil, NewPreconditionError("no serials selected")
	}
	if w.data.Target == "" {
		return nil, NewPreconditionError("no target line chosen")
	}

	lines, err := w.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := findLine(lines, w.data.Target)
	if idx < 0 {
		return nil, NewUnknownLineError(w.data.Target)
	}

	line := lines[idx]
	line.Description = line.Description.Clone()
	line.Description.AddSerials(w.data.Selections...)
	line.Quantity = w.rules.ExpectedQuantity(len(line.Description.Serials), line.Manufacturer, line.ProductName)

	assigned := append([]string{}, w.data.Selections...)
	outcome := &AssignmentOutcome{
		LineID:   line.ID,
		Assigned: assigned,
		Changes: []LineChange{
			{LineID: line.ID, Kind: ChangeUpdateDescription, Description: description.Serialize(line.Description)},
			{LineID: line.ID, Kind: ChangeUpdateQuantity, Quantity: line.Quantity},
		},
		Line: line,
	}

	remaining := w.data.Remaining[:0:0]
	for _, s := range w.data.Remaining {
		if !slices.Contains(assigned, s) {
			remaining = append(remaining, s)
		}
	}
	w.data = AssignmentState{Remaining: remaining}

	w.logger.Info("serials assigned",
		zap.String("line", line.ID),
		zap.Strings("serials", assigned),
		zap.Int("quantity", line.Quantity),
		zap.Int("remaining", len(remaining)))

	if len(remaining) == 0 {
		w.state = StateCompleted
		if w.merged {
			w.clearLeftovers(ctx)
		}
	}
	outcome.State = w.state
	return outcome, nil
}

// Cancel ends the session and persists the remaining serials for the scope.
// If Start could not read the stored leftovers, they are read again and
// merged first; when that read fails too, the stored value is left as is.
func (w *Workflow) Cancel(ctx context.Context) error {
	if w.state != StateSelecting {
		return NewTransitionError("cancel", w.state)
	}
	w.state = StateCancelled
	w.data.Selections = nil
	w.data.Target = ""

	if !w.merged {
		stored, err := w.loadLeftovers(ctx)
		if err != nil {
			w.degrade("load leftovers", err)
			return nil
		}
		w.data.Remaining = description.NormalizeSerials(append(w.data.Remaining, stored...))
		w.merged = true
	}

	data, err := json.Marshal(w.data.Remaining)
	if err != nil {
		return fmt.Errorf("encode leftovers: %w", err)
	}
	if err := w.kv.Set(ctx, LeftoverKey(w.scope), string(data)); err != nil {
		w.degrade("save leftovers", err)
		return nil
	}
	w.logger.Info("assignment cancelled", zap.Strings("leftovers", w.data.Remaining))
	return nil
}

// Discard drops the session and any persisted leftovers for the scope.
func (w *Workflow) Discard(ctx context.Context) {
	w.clearLeftovers(ctx)
	w.state = StateIdle
	w.data = AssignmentState{}
}

func (w *Workflow) loadLeftovers(ctx context.Context) ([]string, error) {
	raw, ok, err := w.kv.Get(ctx, LeftoverKey(w.scope))
	if err != nil || !ok {
		return nil, err
	}
	var serials []string
	if err := json.Unmarshal([]byte(raw), &serials); err != nil {
		w.logger.Warn("ignoring unreadable leftovers", zap.Error(err))
		return nil, nil
	}
	return serials, nil
}

func (w *Workflow) clearLeftovers(ctx context.Context) {
	if err := w.kv.Remove(ctx, LeftoverKey(w.scope)); err != nil {
		w.degrade("clear leftovers", err)
	}
}

func (w *Workflow) degrade(op string, err error) {
	w.resumable = false
	w.logger.Warn("assignment continues in memory",
		zap.Error(NewPersistenceError(op, LeftoverKey(w.scope), err)))
}
