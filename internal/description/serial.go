package description

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// NormalizeSerial returns the comparison key of a serial number:
// trimmed, NFC-normalized and upper-cased.
func NormalizeSerial(s string) string {
	return cases.Upper(language.Und).String(norm.NFC.String(strings.TrimSpace(s)))
}

// isSerialDelimiter reports whether r separates serial numbers in an S/N value.
func isSerialDelimiter(r rune) bool {
	return r == ',' || r == ';' || r == '/'
}

// SplitSerials splits an S/N value into serial numbers.
// Entries are trimmed, empty entries dropped, and duplicates removed
// case-insensitively keeping the casing of the first occurrence.
func SplitSerials(value string) []string {
	return appendSerials(nil, strings.FieldsFunc(value, isSerialDelimiter)...)
}

// NormalizeSerials maps each serial to its key, dropping empties and duplicates.
func NormalizeSerials(serials []string) []string {
	out := make([]string, 0, len(serials))
	seen := make(map[string]bool, len(serials))
	for _, s := range serials {
		key := NormalizeSerial(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// appendSerials adds candidates to serials unless already present by key.
func appendSerials(serials []string, candidates ...string) []string {
	seen := make(map[string]bool, len(serials)+len(candidates))
	for _, s := range serials {
		seen[NormalizeSerial(s)] = true
	}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		key := NormalizeSerial(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		serials = append(serials, c)
	}
	return serials
}
