// Package order reads and writes the YAML order documents snrecon works on.
//
// A document is the host of a reconciliation: it supplies the line items
// and performs the changes the engine requests.
//
//	scope: order-2024-117
//	lines:
//	  - id: "10"
//	    description: |
//	      S/N: SN100, SN200
//	      Service Start: 01.01.2024
//	      Service Ende: 31.12.2026
//	    quantity: 2
//	    product: "4711"
package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/snrecon/internal/engine"
)

// Line is one order line.
type Line struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
	Product     string `yaml:"product,omitempty" json:"product,omitempty"`
}

// Document is an order with its line items.
// It implements engine.Host.
type Document struct {
	Scope string `yaml:"scope"`
	Items []Line `yaml:"lines"`

	path string
}

var _ engine.Host = (*Document)(nil)

// Parse decodes a document. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse order: %w", err)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}
	return &doc, nil
}

// Load reads a document from path. A missing scope defaults to the file
// name without extension.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Scope == "" {
		doc.Scope = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	doc.path = path
	return doc, nil
}

// Path returns the file the document was loaded from.
func (d *Document) Path() string {
	return d.path
}

func (d *Document) validate() error {
	seen := make(map[string]bool, len(d.Items))
	for i, l := range d.Items {
		if l.ID == "" {
			return fmt.Errorf("lines[%d]: id is required", i)
		}
		if seen[l.ID] {
			return fmt.Errorf("lines[%d]: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = true
		if l.Quantity < 0 {
			return fmt.Errorf("lines[%d]: quantity must not be negative", i)
		}
	}
	return nil
}

// Marshal encodes the document as YAML.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode order: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the document back to the file it was loaded from.
func (d *Document) Save() error {
	if d.path == "" {
		return fmt.Errorf("order has no file path")
	}
	return d.WriteFile(d.path)
}

// WriteFile writes the document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write order: %w", err)
	}
	return nil
}

// Line returns the line with id.
func (d *Document) Line(id string) (*Line, bool) {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return &d.Items[i], true
		}
	}
	return nil, false
}

// Lines implements engine.LineSource.
func (d *Document) Lines(ctx context.Context) ([]engine.RawLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]engine.RawLine, len(d.Items))
	for i, l := range d.Items {
		out[i] = engine.RawLine{ID: l.ID, Description: l.Description, Quantity: l.Quantity, ProductRef: l.Product}
	}
	return out, nil
}

// ReadField implements engine.FieldStore.
func (d *Document) ReadField(ref engine.FieldRef) (string, error) {
	if ref.Field == engine.FieldLines {
		data, err := json.Marshal(d.Items)
		if err != nil {
			return "", fmt.Errorf("encode lines: %w", err)
		}
		return string(data), nil
	}
	l, ok := d.Line(ref.LineID)
	if !ok {
		return "", engine.NewUnknownLineError(ref.LineID)
	}
	switch ref.Field {
	case engine.FieldDescription:
		return l.Description, nil
	case engine.FieldQuantity:
		return strconv.Itoa(l.Quantity), nil
	}
	return "", fmt.Errorf("unknown field %q", ref.Field)
}

// WriteField implements engine.FieldStore.
func (d *Document) WriteField(ref engine.FieldRef, value string) error {
	if ref.Field == engine.FieldLines {
		var lines []Line
		if err := json.Unmarshal([]byte(value), &lines); err != nil {
			return fmt.Errorf("decode lines: %w", err)
		}
		d.Items = lines
		return nil
	}
	l, ok := d.Line(ref.LineID)
	if !ok {
		return engine.NewUnknownLineError(ref.LineID)
	}
	switch ref.Field {
	case engine.FieldDescription:
		l.Description = value
	case engine.FieldQuantity:
		q, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("quantity %q: %w", value, err)
		}
		l.Quantity = q
	default:
		return fmt.Errorf("unknown field %q", ref.Field)
	}
	return nil
}

// ApplyChanges performs change requests in order.
// Nothing is changed when a request names an unknown line.
func (d *Document) ApplyChanges(changes []engine.LineChange) error {
	for _, c := range changes {
		if _, ok := d.Line(c.LineID); !ok {
			return engine.NewUnknownLineError(c.LineID)
		}
	}
	for _, c := range changes {
		switch c.Kind {
		case engine.ChangeDeleteLine:
			for i := range d.Items {
				if d.Items[i].ID == c.LineID {
					d.Items = append(d.Items[:i], d.Items[i+1:]...)
					break
				}
			}
		case engine.ChangeUpdateDescription, engine.ChangeUpdateQuantity:
			l, ok := d.Line(c.LineID)
			if !ok {
				return engine.NewUnknownLineError(c.LineID)
			}
			if c.Kind == engine.ChangeUpdateDescription {
				l.Description = c.Description
			} else {
				l.Quantity = c.Quantity
			}
		default:
			return fmt.Errorf("unknown change kind %q", c.Kind)
		}
	}
	return nil
}
