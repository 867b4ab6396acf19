package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// Field names understood by FieldStore implementations.
const (
	FieldDescription = "description"
	FieldQuantity    = "quantity"
	// FieldLines addresses the whole line list; FieldRef.LineID is empty.
	FieldLines = "lines"
)

// FieldRef addresses one host field.
type FieldRef struct {
	LineID string `json:"line_id,omitempty"`
	Field  string `json:"field"`
}

// FieldValue is a captured field value.
type FieldValue struct {
	Ref   FieldRef `json:"ref"`
	Value string   `json:"value"`
}

// UndoSnapshot is the ordered list of values captured before a mutation.
type UndoSnapshot struct {
	Entries []FieldValue `json:"entries"`
}

// FieldStore reads and writes host fields as strings.
type FieldStore interface {
	ReadField(ref FieldRef) (string, error)
	WriteField(ref FieldRef, value string) error
}

// UndoStore keeps a single undo snapshot.
//
// Taking a snapshot replaces the previous one without warning. Restore
// writes the values back in capture order and drops the snapshot; with no
// snapshot it does nothing.
type UndoStore struct {
	fields FieldStore
	snap   *UndoSnapshot
	logger *zap.Logger
}

// NewUndoStore creates an empty UndoStore over fields.
func NewUndoStore(fields FieldStore, logger *zap.Logger) *UndoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UndoStore{fields: fields, logger: logger}
}

// Snapshot captures the current value of each ref.
// The previous snapshot is kept if any ref cannot be read.
func (u *UndoStore) Snapshot(refs ...FieldRef) error {
	snap := &UndoSnapshot{Entries: make([]FieldValue, 0, len(refs))}
	for _, ref := range refs {
		v, err := u.fields.ReadField(ref)
		if err != nil {
			return fmt.Errorf("snapshot %s/%s: %w", ref.LineID, ref.Field, err)
		}
		snap.Entries = append(snap.Entries, FieldValue{Ref: ref, Value: v})
	}
	u.snap = snap
	return nil
}

// Restore writes the snapshot back and discards it.
// It returns the number of fields written.
func (u *UndoStore) Restore() (int, error) {
	if u.snap == nil {
		return 0, nil
	}
	snap := u.snap
	u.snap = nil
	for i, e := range snap.Entries {
		if err := u.fields.WriteField(e.Ref, e.Value); err != nil {
			return i, fmt.Errorf("restore %s/%s: %w", e.Ref.LineID, e.Ref.Field, err)
		}
	}
	u.logger.Info("undo restored", zap.Int("fields", len(snap.Entries)))
	return len(snap.Entries), nil
}

// Pending returns the live snapshot, or nil.
func (u *UndoStore) Pending() *UndoSnapshot {
	return u.snap
}

// Load replaces the live snapshot, for example with one persisted by an
// earlier run. A nil or empty snapshot clears it.
func (u *UndoStore) Load(snap *UndoSnapshot) {
	if snap == nil || len(snap.Entries) == 0 {
		u.snap = nil
		return
	}
	u.snap = snap
}
