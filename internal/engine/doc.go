// Package engine reconciles the serial numbers on order lines against a
// target list and guides the placement of serials that are missing.
//
// The pieces, from pure to stateful:
//
//   - Reconcile computes a ReconciliationResult: matching, to-remove and
//     missing serials plus the lines left without serials. It is pure and
//     deterministic, so a caller can preview before committing.
//   - Apply turns a result into LineChange requests (update description,
//     update quantity, delete line). The host performs them.
//   - Workflow is the assignment state machine for missing serials:
//     Idle -> Selecting -> Completed | Cancelled. Leftovers of a cancelled
//     session are persisted per scope and resumed by the next one.
//   - UndoStore keeps one snapshot of host fields taken before a mutation.
//
// Engine ties them to a Host (line source plus field store), a KV for
// persisted state and an optional product metadata lookup. Line items are
// re-read from the host for every operation and never cached.
//
// Everything runs synchronously on the caller's goroutine. Failures of the
// metadata lookup or the KV degrade (unknown product, in-memory workflow)
// and are logged rather than returned.
package engine
