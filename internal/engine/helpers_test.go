package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/metadata"
)

// fakeHost is an in-memory order document.
type fakeHost struct {
	lines   []RawLine
	readErr error
}

func newFakeHost(lines ...RawLine) *fakeHost {
	return &fakeHost{lines: lines}
}

func (h *fakeHost) Lines(context.Context) ([]RawLine, error) {
	if h.readErr != nil {
		return nil, h.readErr
	}
	return append([]RawLine{}, h.lines...), nil
}

func (h *fakeHost) find(id string) int {
	for i := range h.lines {
		if h.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (h *fakeHost) ReadField(ref FieldRef) (string, error) {
	if ref.Field == FieldLines {
		data, err := json.Marshal(h.lines)
		return string(data), err
	}
	i := h.find(ref.LineID)
	if i < 0 {
		return "", NewUnknownLineError(ref.LineID)
	}
	switch ref.Field {
	case FieldDescription:
		return h.lines[i].Description, nil
	case FieldQuantity:
		return strconv.Itoa(h.lines[i].Quantity), nil
	}
	return "", errors.New("unknown field " + ref.Field)
}

func (h *fakeHost) WriteField(ref FieldRef, value string) error {
	if ref.Field == FieldLines {
		var lines []RawLine
		if err := json.Unmarshal([]byte(value), &lines); err != nil {
			return err
		}
		h.lines = lines
		return nil
	}
	i := h.find(ref.LineID)
	if i < 0 {
		return NewUnknownLineError(ref.LineID)
	}
	switch ref.Field {
	case FieldDescription:
		h.lines[i].Description = value
	case FieldQuantity:
		q, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		h.lines[i].Quantity = q
	default:
		return errors.New("unknown field " + ref.Field)
	}
	return nil
}

// apply performs change requests the way a host would.
func (h *fakeHost) apply(changes []LineChange) {
	for _, c := range changes {
		i := h.find(c.LineID)
		if i < 0 {
			continue
		}
		switch c.Kind {
		case ChangeDeleteLine:
			h.lines = append(h.lines[:i], h.lines[i+1:]...)
		case ChangeUpdateDescription:
			h.lines[i].Description = c.Description
		case ChangeUpdateQuantity:
			h.lines[i].Quantity = c.Quantity
		}
	}
}

// memKV is a KV with injectable failures.
type memKV struct {
	data      map[string]string
	getErr    error
	setErr    error
	removeErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.data, key)
	return nil
}

type fakeLookup map[string]metadata.ProductInfo

func (f fakeLookup) Lookup(_ context.Context, ref string) (metadata.ProductInfo, error) {
	info, ok := f[ref]
	if !ok {
		return metadata.ProductInfo{}, metadata.ErrNotFound
	}
	return info, nil
}

var haLookup = fakeLookup{
	"P-FAS": {Manufacturer: "NetApp", ProductName: "FAS2750"},
	"P-AFF": {Manufacturer: "NetApp", ProductName: "AFF A400"},
}

func raw(id, desc string, qty int) RawLine {
	return RawLine{ID: id, Description: desc, Quantity: qty}
}

func loadItems(t *testing.T, lookup metadata.Lookup, lines ...RawLine) []LineItem {
	t.Helper()
	items, err := NewLoader(newFakeHost(lines...), lookup, nil).Load(context.Background())
	require.NoError(t, err)
	return items
}

func newTestEngine(host *fakeHost, kv KV, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{
		WithSessionIDs(NewFixedGenerator("session-1")),
		WithMetadata(haLookup),
	}, opts...)
	return New("order-1", host, kv, opts...)
}
