package engine

import (
	"github.com/roach88/snrecon/internal/description"
)

// ChangeKind is the kind of mutation the host must perform on a line item.
type ChangeKind string

const (
	ChangeUpdateDescription ChangeKind = "update_description"
	ChangeUpdateQuantity    ChangeKind = "update_quantity"
	ChangeDeleteLine        ChangeKind = "delete_line"
)

// LineChange is one mutation request for the host.
type LineChange struct {
	LineID      string     `json:"line_id"`
	Kind        ChangeKind `json:"kind"`
	Description string     `json:"description,omitempty"`
	Quantity    int        `json:"quantity,omitempty"`
}

// AppliedChange describes what the host must do to commit a reconciliation.
//
// Lines holds the line items as they will be after the changes, deleted
// lines omitted. When Missing is non-empty the reconciliation is not
// Complete until the missing serials went through the assignment workflow.
type AppliedChange struct {
	Changes  []LineChange `json:"changes"`
	Missing  []string     `json:"missing"`
	Complete bool         `json:"complete"`
	Lines    []LineItem   `json:"-"`
}

// Apply turns result into per-line change requests against lines.
//
// Lines with ToRemove serials either get a delete request (when listed in
// PositionsToDelete) or a description update plus a quantity update. The
// new quantity comes from rules, so HA-pair products are counted per pair.
// lines are not modified.
func Apply(result *ReconciliationResult, lines []LineItem, rules QuantityRules) (*AppliedChange, error) {
	removals := result.Removals()
	for _, ref := range result.ToRemove {
		if findLine(lines, ref.LineID) < 0 {
			return nil, NewUnknownLineError(ref.LineID)
		}
	}

	change := &AppliedChange{
		Changes:  []LineChange{},
		Missing:  append([]string{}, result.Missing...),
		Complete: len(result.Missing) == 0,
		Lines:    make([]LineItem, 0, len(lines)),
	}

	for _, line := range lines {
		serials, ok := removals[line.ID]
		if !ok {
			change.Lines = append(change.Lines, line)
			continue
		}
		if result.Deletes(line.ID) {
			change.Changes = append(change.Changes, LineChange{LineID: line.ID, Kind: ChangeDeleteLine})
			continue
		}

		updated := line
		updated.Description = line.Description.Clone()
		updated.Description.RemoveSerials(serials...)
		updated.Quantity = rules.ExpectedQuantity(len(updated.Description.Serials), line.Manufacturer, line.ProductName)

		change.Changes = append(change.Changes,
			LineChange{LineID: line.ID, Kind: ChangeUpdateDescription, Description: description.Serialize(updated.Description)},
			LineChange{LineID: line.ID, Kind: ChangeUpdateQuantity, Quantity: updated.Quantity},
		)
		change.Lines = append(change.Lines, updated)
	}
	return change, nil
}
