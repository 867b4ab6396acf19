// Package ir provides the canonical JSON encoding used for golden files and
// content fingerprints of reconciliation output.
//
// Canonical JSON here means: object keys sorted by UTF-16 code units, no
// insignificant whitespace, no HTML escaping, NFC-normalized strings and
// integers only. Two values that are equal as JSON encode to the same bytes.
//
// ir imports nothing internal, so every other package may depend on it.
package ir
