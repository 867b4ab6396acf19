package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/snrecon/internal/order"
)

// Line builds an order line whose description is descLines joined by
// newlines.
func Line(id string, quantity int, descLines ...string) order.Line {
	return order.Line{ID: id, Quantity: quantity, Description: strings.Join(descLines, "\n")}
}

// WriteOrder writes an order document with scope and lines to dir and
// returns its path.
func WriteOrder(t testing.TB, dir, scope string, lines ...order.Line) string {
	t.Helper()
	doc := &order.Document{Scope: scope, Items: lines}
	path := filepath.Join(dir, scope+".yaml")
	require.NoError(t, doc.WriteFile(path))
	return path
}
