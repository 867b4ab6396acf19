// Package description models the free-form text attached to an order line.
//
// A description is a block of lines. Some lines start with a managed label
// whose value the package understands:
//
//	S/N:            serial numbers, separated by ", "
//	inkl.: / incl.: included items
//	Standort: / Location:
//	Service Start:  DD.MM.YYYY or a placeholder such as "tba"
//	Service Ende: / Service End:
//
// Every other line is kept verbatim and in order.
//
// The package has three parts:
//
//   - Parse and Serialize convert between raw text and LineDescription.
//   - Auditor classifies a parsed description into a HealthStatus.
//   - The Fix* functions and TranslateLanguage rewrite raw text. Each is
//     idempotent, and ApplyAllFixes composes them in a fixed order.
//
// Label matching is case-insensitive. A label spelled any other way
// ("S/N :", "Serial:") is not recognized and the line stays unmanaged.
package description
