package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/rules"
)

func TestEngine_New(t *testing.T) {
	e := newTestEngine(newFakeHost(), newMemKV())

	assert.Equal(t, "session-1", e.SessionID())
	assert.Equal(t, "order-1", e.Scope())
	assert.NotNil(t, e.Rules())
	assert.Equal(t, StateIdle, e.Workflow().State())
}

func TestEngine_DefaultSessionID(t *testing.T) {
	e := New("s", newFakeHost(), newMemKV())
	assert.Len(t, e.SessionID(), 36)
}

func TestEngine_WithRules(t *testing.T) {
	set, err := rules.CompileString(`rule: pairs: {manufacturer: "(?i)acme", product: "(?i)duo"}`)
	require.NoError(t, err)

	line := raw("L1", "S/N: A1, B2, C3", 3)
	line.ProductRef = "P-DUO"
	host := newFakeHost(line)
	lookup := fakeLookup{"P-DUO": {Manufacturer: "ACME", ProductName: "Duo 9"}}
	e := New("s", host, newMemKV(), WithRules(set), WithMetadata(lookup))

	res, err := e.Reconcile(context.Background(), []string{"A1", "B2"})
	require.NoError(t, err)
	change, err := e.Apply(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, 1, change.Changes[1].Quantity)
}

func TestEngine_ReconcileApplyUndo(t *testing.T) {
	ctx := context.Background()
	host := newFakeHost(
		raw("L1", "S/N: A1, B2", 2),
		raw("L2", "S/N: C3", 1),
	)
	kv := newMemKV()
	e := newTestEngine(host, kv)

	res, err := e.Reconcile(ctx, []string{"A1", "Z9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, res.PositionsToDelete)

	change, err := e.Apply(ctx, res)
	require.NoError(t, err)
	assert.False(t, change.Complete)
	assert.Contains(t, kv.data, UndoKey("order-1"))
	assert.Equal(t, StateSelecting, e.Workflow().State())
	assert.Equal(t, []string{"Z9"}, e.Workflow().Remaining())

	host.apply(change.Changes)
	require.Len(t, host.lines, 1)
	assert.Equal(t, raw("L1", "S/N: A1", 1), host.lines[0])

	n, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []RawLine{raw("L1", "S/N: A1, B2", 2), raw("L2", "S/N: C3", 1)}, host.lines)
	assert.NotContains(t, kv.data, UndoKey("order-1"))
}

func TestEngine_ApplyWhileSelectingKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	host := newFakeHost(
		raw("L1", "S/N: A1, B2", 2),
		raw("L2", "S/N: C3", 1),
	)
	kv := newMemKV()
	e := newTestEngine(host, kv)

	res, err := e.Reconcile(ctx, []string{"A1", "Z9"})
	require.NoError(t, err)
	change, err := e.Apply(ctx, res)
	require.NoError(t, err)
	host.apply(change.Changes)
	before := kv.data[UndoKey("order-1")]

	res, err = e.Reconcile(ctx, []string{"Y8"})
	require.NoError(t, err)
	_, err = e.Apply(ctx, res)

	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	assert.Equal(t, ErrCodeInvalidTransition, engErr.Code)
	assert.Equal(t, before, kv.data[UndoKey("order-1")])

	n, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []RawLine{raw("L1", "S/N: A1, B2", 2), raw("L2", "S/N: C3", 1)}, host.lines)
}

func TestEngine_CleanApplyTakesNoSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	e := newTestEngine(newFakeHost(raw("L1", "S/N: A1", 1)), kv)

	res, err := e.Reconcile(ctx, []string{"A1"})
	require.NoError(t, err)
	change, err := e.Apply(ctx, res)
	require.NoError(t, err)

	assert.True(t, change.Complete)
	assert.Empty(t, change.Changes)
	assert.Empty(t, kv.data)
	assert.Equal(t, StateIdle, e.Workflow().State())
}

func TestEngine_UndoAcrossSessions(t *testing.T) {
	ctx := context.Background()
	host := newFakeHost(raw("L1", "S/N: A1, B2", 2))
	kv := newMemKV()

	first := newTestEngine(host, kv)
	res, err := first.Reconcile(ctx, []string{"B2"})
	require.NoError(t, err)
	change, err := first.Apply(ctx, res)
	require.NoError(t, err)
	host.apply(change.Changes)
	assert.Equal(t, "S/N: B2", host.lines[0].Description)

	second := New("order-1", host, kv, WithSessionIDs(NewFixedGenerator("session-2")))
	n, err := second.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, raw("L1", "S/N: A1, B2", 2), host.lines[0])

	n, err = second.Undo(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEngine_CommitIsUndoable(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[LeftoverKey("order-1")] = `["Z9"]`
	host := newFakeHost(raw("L1", "S/N: A1", 1))
	e := newTestEngine(host, kv)

	require.NoError(t, e.Resume(ctx))
	w := e.Workflow()
	require.NoError(t, w.Toggle("Z9"))
	require.NoError(t, w.ChooseTarget("L1"))
	out, err := e.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	host.apply(out.Changes)
	assert.Equal(t, raw("L1", "S/N: A1, Z9", 2), host.lines[0])

	n, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, raw("L1", "S/N: A1", 1), host.lines[0])
}

func TestEngine_CommitPreconditionTakesNoSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data[LeftoverKey("order-1")] = `["Z9"]`
	e := newTestEngine(newFakeHost(raw("L1", "S/N: A1", 1)), kv)

	require.NoError(t, e.Resume(ctx))
	_, err := e.Commit(ctx)
	assert.True(t, IsAssignmentPrecondition(err))
	assert.NotContains(t, kv.data, UndoKey("order-1"))
}

func TestEngine_UndoPersistenceFailure(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("locked")
	e := newTestEngine(newFakeHost(), kv)

	_, err := e.Undo(context.Background())
	assert.True(t, IsPersistenceError(err))
}

func TestEngine_SnapshotSurvivesKVFailure(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.setErr = errors.New("read-only")
	host := newFakeHost(raw("L1", "S/N: A1", 1))
	e := newTestEngine(host, kv)

	require.NoError(t, e.Snapshot(ctx, FieldRef{LineID: "L1", Field: FieldDescription}))
	host.lines[0].Description = "changed"

	n, err := e.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "S/N: A1", host.lines[0].Description)
}

func TestEngine_MetadataFailureDegrades(t *testing.T) {
	line := raw("L1", "S/N: A1, B2, C3, D4", 2)
	line.ProductRef = "unknown-ref"
	e := newTestEngine(newFakeHost(line), newMemKV())

	lines, err := e.Lines(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lines[0].Manufacturer)
	assert.Empty(t, lines[0].ProductName)
}

func TestEngine_HostFailure(t *testing.T) {
	host := newFakeHost()
	host.readErr = errors.New("gone")
	e := newTestEngine(host, newMemKV())

	_, err := e.Reconcile(context.Background(), nil)
	assert.ErrorContains(t, err, "gone")
}
