package engine

import (
	"github.com/roach88/snrecon/internal/description"
)

// SerialRef pairs a serial key with the line item that owns it.
type SerialRef struct {
	Serial string `json:"serial"`
	LineID string `json:"line_id"`
}

// MultiUse reports a serial found on more than one line item.
// LineIDs[0] owns the serial for removal bookkeeping.
type MultiUse struct {
	Serial  string   `json:"serial"`
	LineIDs []string `json:"line_ids"`
}

// ReconciliationResult is the diff between a target serial list and the
// serials present on the line items. It is never modified after Reconcile
// returns it.
//
// Serials are normalized keys. Every slice is ordered by first discovery:
// line items in host order, then serials in extracted order; Missing
// follows the target order.
type ReconciliationResult struct {
	Matching          []SerialRef `json:"matching"`
	ToRemove          []SerialRef `json:"to_remove"`
	Missing           []string    `json:"missing"`
	PositionsToDelete []string    `json:"positions_to_delete"`
	MultiplyUsed      []MultiUse  `json:"multiply_used"`
}

// Reconcile computes the diff between target and the serials on lines.
//
// A serial on several lines is owned by the first of them: only that line
// has it in Matching or ToRemove. The other lines keep it and are reported
// in MultiplyUsed. A line is listed in PositionsToDelete when it has at
// least one serial and all of them are in ToRemove for that line.
//
// Reconcile is pure.
func Reconcile(target []string, lines []LineItem) *ReconciliationResult {
	res := &ReconciliationResult{
		Matching:          []SerialRef{},
		ToRemove:          []SerialRef{},
		Missing:           []string{},
		PositionsToDelete: []string{},
		MultiplyUsed:      []MultiUse{},
	}

	targetKeys := description.NormalizeSerials(target)
	inTarget := make(map[string]bool, len(targetKeys))
	for _, k := range targetKeys {
		inTarget[k] = true
	}

	owner := make(map[string]string)
	multi := make(map[string]int)

	for _, line := range lines {
		if line.Description == nil {
			continue
		}
		keys := line.Description.SerialKeys()
		removed := 0
		for _, key := range keys {
			if first, ok := owner[key]; ok {
				idx, seen := multi[key]
				if !seen {
					idx = len(res.MultiplyUsed)
					multi[key] = idx
					res.MultiplyUsed = append(res.MultiplyUsed, MultiUse{Serial: key, LineIDs: []string{first}})
				}
				res.MultiplyUsed[idx].LineIDs = append(res.MultiplyUsed[idx].LineIDs, line.ID)
				continue
			}
			owner[key] = line.ID

			ref := SerialRef{Serial: key, LineID: line.ID}
			if inTarget[key] {
				res.Matching = append(res.Matching, ref)
			} else {
				res.ToRemove = append(res.ToRemove, ref)
				removed++
			}
		}
		if len(keys) > 0 && removed == len(keys) {
			res.PositionsToDelete = append(res.PositionsToDelete, line.ID)
		}
	}

	for _, k := range targetKeys {
		if _, ok := owner[k]; !ok {
			res.Missing = append(res.Missing, k)
		}
	}
	return res
}

// Removals groups ToRemove serials by line id.
func (r *ReconciliationResult) Removals() map[string][]string {
	out := make(map[string][]string)
	for _, ref := range r.ToRemove {
		out[ref.LineID] = append(out[ref.LineID], ref.Serial)
	}
	return out
}

// Deletes reports whether lineID is in PositionsToDelete.
func (r *ReconciliationResult) Deletes(lineID string) bool {
	for _, id := range r.PositionsToDelete {
		if id == lineID {
			return true
		}
	}
	return false
}

// Clean reports whether nothing needs to change.
func (r *ReconciliationResult) Clean() bool {
	return len(r.ToRemove) == 0 && len(r.Missing) == 0
}
