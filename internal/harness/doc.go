// Package harness runs reconciliation scenarios against the engine.
//
// A scenario describes an order, the product catalog, leftovers persisted by
// an earlier run, and a sequence of steps. Steps drive the real engine and
// order document; assertions check the final order and workflow state.
//
// # Scenario Format
//
//	name: ha_pair_partial_renewal
//	description: "Renewal drops one serial and adds one"
//	scope: order-1
//	catalog:
//	  P-FAS: { manufacturer: NetApp, product_name: FAS2750 }
//	lines:
//	  - { id: "10", description: "S/N: A1, B2", quantity: 1, product: P-FAS }
//	steps:
//	  - action: reconcile
//	    targets: [A1, C3]
//	  - action: apply
//	  - action: select
//	    serials: [C3]
//	  - action: target
//	    line: "10"
//	  - action: commit
//	assertions:
//	  - type: line
//	    line: "10"
//	    serials: [A1, C3]
//	  - type: state
//	    state: completed
//
// # Steps
//
//   - reconcile: compute a result for targets
//   - apply: apply the last result; starts assignment for missing serials
//   - resume: start assignment with persisted leftovers only
//   - select: toggle serials in the assignment selection
//   - target: choose the line selected serials go to
//   - commit: assign the selection
//   - cancel: end assignment, persisting what remains
//   - discard: end assignment, dropping persisted leftovers
//   - undo: restore the last snapshot
//   - fix: repair descriptions of one line, or all lines
//
// A step with expect_error passes only when it fails with that engine error
// code.
//
// # Assertion Types
//
//   - missing: serials missing from the last reconciliation
//   - positions_to_delete: lines the last reconciliation deletes
//   - line: description, quantity or serials of a line
//   - line_deleted: the line no longer exists
//   - line_count: number of lines left
//   - audit: health status of a line
//   - state: assignment workflow state
//   - leftovers: serials persisted for a later session
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a fixed
// session id, so golden snapshots are reproducible.
package harness
