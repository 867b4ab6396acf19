package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/snrecon/internal/description"
	"github.com/roach88/snrecon/internal/metadata"
)

// LineItem is one order line as seen by a single reconciliation pass.
//
// Line items are never cached across passes: every pass re-reads them
// from the host through a Loader.
type LineItem struct {
	ID           string
	Description  *description.LineDescription
	Quantity     int
	Manufacturer string
	ProductName  string
	ProductRef   string
}

// RawLine is a line item as the host stores it.
type RawLine struct {
	ID          string
	Description string
	Quantity    int
	ProductRef  string
}

// LineSource returns the current line items of the host document.
type LineSource interface {
	Lines(ctx context.Context) ([]RawLine, error)
}

// QuantityRules computes the quantity a line should carry for its serials.
type QuantityRules interface {
	ExpectedQuantity(serialCount int, manufacturer, productName string) int
}

// Loader reads line items from the host and resolves their product metadata.
//
// A failed metadata lookup is logged and the line proceeds with unknown
// manufacturer and product name, so HA-pair quantity rules do not apply.
type Loader struct {
	source LineSource
	lookup metadata.Lookup
	logger *zap.Logger
}

// NewLoader creates a Loader. lookup may be nil.
func NewLoader(source LineSource, lookup metadata.Lookup, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, lookup: lookup, logger: logger}
}

// Load returns the current line items in host order.
func (l *Loader) Load(ctx context.Context) ([]LineItem, error) {
	raw, err := l.source.Lines(ctx)
	if err != nil {
		return nil, fmt.Errorf("read line items: %w", err)
	}

	items := make([]LineItem, 0, len(raw))
	for _, r := range raw {
		item := LineItem{
			ID:          r.ID,
			Description: description.Parse(r.Description),
			Quantity:    r.Quantity,
			ProductRef:  r.ProductRef,
		}
		if r.ProductRef != "" && l.lookup != nil {
			info, err := l.lookup.Lookup(ctx, r.ProductRef)
			if err != nil {
				l.logger.Warn("product metadata unavailable",
					zap.String("line", r.ID),
					zap.String("product_ref", r.ProductRef),
					zap.Error(err))
			} else {
				item.Manufacturer = info.Manufacturer
				item.ProductName = info.ProductName
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// findLine returns the index of the line with id, or -1.
func findLine(lines []LineItem, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}
