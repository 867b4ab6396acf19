package description

import "strings"

// Label identifies a managed field marker.
// The numeric order is the canonical order of labels within a description.
type Label int

const (
	LabelNone Label = iota
	LabelSerial
	LabelIncluded
	LabelLocation
	LabelServiceStart
	LabelServiceEnd
)

// String returns a stable name for diagnostics.
func (l Label) String() string {
	switch l {
	case LabelSerial:
		return "S/N"
	case LabelIncluded:
		return "incl"
	case LabelLocation:
		return "location"
	case LabelServiceStart:
		return "service_start"
	case LabelServiceEnd:
		return "service_end"
	default:
		return "none"
	}
}

// Language is the locale inferred from the label spellings in a description.
type Language string

const (
	LangUnknown Language = "unknown"
	LangGerman  Language = "de"
	LangEnglish Language = "en"
	LangMixed   Language = "mixed"
)

// ValidLanguage reports whether lang is a translation target.
func ValidLanguage(lang Language) bool {
	return lang == LangGerman || lang == LangEnglish
}

// spelling is one accepted way of writing a label.
// lang is empty for labels that are the same in both locales.
type spelling struct {
	label Label
	token string
	lang  Language
}

var spellings = []spelling{
	{LabelSerial, "S/N:", ""},
	{LabelIncluded, "inkl.:", LangGerman},
	{LabelIncluded, "incl.:", LangEnglish},
	{LabelLocation, "Standort:", LangGerman},
	{LabelLocation, "Location:", LangEnglish},
	{LabelServiceStart, "Service Start:", ""},
	{LabelServiceEnd, "Service Ende:", LangGerman},
	{LabelServiceEnd, "Service End:", LangEnglish},
}

// matchLabel recognizes a managed label at the start of a trimmed line.
// It returns the spelling found and the trimmed value after the token.
func matchLabel(line string) (spelling, string, bool) {
	for _, sp := range spellings {
		n := len(sp.token)
		if len(line) >= n && strings.EqualFold(line[:n], sp.token) {
			return sp, strings.TrimSpace(line[n:]), true
		}
	}
	return spelling{}, "", false
}

// token returns the canonical spelling of label in lang.
// German is used for locale-paired labels when lang is not English.
func token(label Label, lang Language) string {
	var fallback string
	for _, sp := range spellings {
		if sp.label != label {
			continue
		}
		if sp.lang == "" || sp.lang == lang {
			return sp.token
		}
		if sp.lang == LangGerman {
			fallback = sp.token
		}
	}
	return fallback
}

// formatLabelLine renders "<token> <value>", dropping the space for empty values.
func formatLabelLine(tok, value string) string {
	if value == "" {
		return tok
	}
	return tok + " " + value
}

// MarshalText renders the label name in JSON output.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
