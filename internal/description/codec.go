package description

import (
	"strings"
)

// Field is the raw state of a single-valued managed label.
type Field struct {
	// Present is true if the label appeared in the source text.
	Present bool `json:"present"`

	// Value is the trimmed text after the label.
	Value string `json:"value,omitempty"`

	// Lang is the locale of the spelling found, empty for neutral labels.
	Lang Language `json:"lang,omitempty"`
}

// LineDescription is the structured form of an order line's description.
type LineDescription struct {
	// Serials holds the serial numbers from all S/N lines, deduplicated
	// by NormalizeSerial and in first-seen casing and order.
	Serials []string `json:"serials"`

	// ServiceStart and ServiceEnd are nil for placeholders and
	// values that are not real DD.MM.YYYY dates.
	ServiceStart *Date `json:"service_start,omitempty"`
	ServiceEnd   *Date `json:"service_end,omitempty"`

	Language Language `json:"language"`

	// OtherLines are unmanaged lines, trimmed, in source order.
	OtherLines []string `json:"other_lines"`

	SerialField Field `json:"serial_field"`
	Included    Field `json:"included"`
	Location    Field `json:"location"`
	StartField  Field `json:"start_field"`
	EndField    Field `json:"end_field"`

	// LabelOrder lists managed labels in order of first appearance.
	LabelOrder []Label `json:"label_order"`
}

// splitLines splits text on any line break convention.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

// Parse converts raw description text into a LineDescription.
//
// S/N lines are merged. For the other managed labels the first occurrence
// wins and later duplicates are dropped. Unrecognized labels are kept as
// unmanaged lines. Parse never fails.
func Parse(raw string) *LineDescription {
	d := &LineDescription{Language: LangUnknown}
	seen := make(map[Label]bool)
	var serialValues []string

	for _, line := range splitLines(raw) {
		line = strings.TrimSpace(line)
		sp, value, ok := matchLabel(line)
		if !ok {
			d.OtherLines = append(d.OtherLines, line)
			continue
		}
		if !seen[sp.label] {
			seen[sp.label] = true
			d.LabelOrder = append(d.LabelOrder, sp.label)
		} else if sp.label != LabelSerial {
			continue
		}

		field := Field{Present: true, Value: value, Lang: sp.lang}
		switch sp.label {
		case LabelSerial:
			serialValues = append(serialValues, value)
			d.Serials = appendSerials(d.Serials, strings.FieldsFunc(value, isSerialDelimiter)...)
		case LabelIncluded:
			d.Included = field
		case LabelLocation:
			d.Location = field
		case LabelServiceStart:
			d.StartField = field
			if date, ok := ParseDate(value); ok {
				d.ServiceStart = &date
			}
		case LabelServiceEnd:
			d.EndField = field
			if date, ok := ParseDate(value); ok {
				d.ServiceEnd = &date
			}
		}
	}

	if len(serialValues) > 0 {
		d.SerialField = Field{Present: true, Value: strings.Join(serialValues, ", ")}
	}
	d.OtherLines = trimBlankEdges(d.OtherLines)
	d.Language = inferLanguage(d.Included, d.Location, d.EndField)
	return d
}

// trimBlankEdges drops empty lines at the start and end of lines.
func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	if start == end {
		return nil
	}
	return lines[start:end]
}

// inferLanguage derives the description locale from locale-paired labels.
func inferLanguage(fields ...Field) Language {
	var de, en bool
	for _, f := range fields {
		if !f.Present {
			continue
		}
		switch f.Lang {
		case LangGerman:
			de = true
		case LangEnglish:
			en = true
		}
	}
	switch {
	case de && en:
		return LangMixed
	case de:
		return LangGerman
	case en:
		return LangEnglish
	default:
		return LangUnknown
	}
}

// Serialize renders d as text.
//
// Order: S/N (only with serials), inkl./incl., Standort/Location, unmanaged
// lines, Service Start, Service Ende/End. Locale-paired labels are spelled
// per d.Language, German when unknown, and per field when mixed.
func Serialize(d *LineDescription) string {
	if d == nil {
		return ""
	}
	var lines []string
	if len(d.Serials) > 0 {
		lines = append(lines, formatLabelLine(token(LabelSerial, ""), strings.Join(d.Serials, ", ")))
	}
	if d.Included.Present {
		lines = append(lines, formatLabelLine(d.labelToken(LabelIncluded, d.Included), d.Included.Value))
	}
	if d.Location.Present {
		lines = append(lines, formatLabelLine(d.labelToken(LabelLocation, d.Location), d.Location.Value))
	}
	lines = append(lines, d.OtherLines...)
	if d.StartField.Present || d.ServiceStart != nil {
		lines = append(lines, formatLabelLine(token(LabelServiceStart, ""), dateValue(d.ServiceStart, d.StartField)))
	}
	if d.EndField.Present || d.ServiceEnd != nil {
		lines = append(lines, formatLabelLine(d.labelToken(LabelServiceEnd, d.EndField), dateValue(d.ServiceEnd, d.EndField)))
	}
	return strings.Join(lines, "\n")
}

func (d *LineDescription) labelToken(label Label, f Field) string {
	if d.Language == LangMixed && f.Lang != "" {
		return token(label, f.Lang)
	}
	return token(label, d.Language)
}

func dateValue(date *Date, f Field) string {
	if date != nil {
		return date.String()
	}
	return f.Value
}

// IsEmpty reports whether the source text had no content at all.
func (d *LineDescription) IsEmpty() bool {
	return len(d.Serials) == 0 && len(d.OtherLines) == 0 && len(d.LabelOrder) == 0
}

// SerialKeys returns the normalized keys of d.Serials in order.
func (d *LineDescription) SerialKeys() []string {
	return NormalizeSerials(d.Serials)
}

// HasSerial reports whether d contains a serial with the given key.
func (d *LineDescription) HasSerial(serial string) bool {
	key := NormalizeSerial(serial)
	for _, s := range d.Serials {
		if NormalizeSerial(s) == key {
			return true
		}
	}
	return false
}

// AddSerials appends serials not already present and returns how many were added.
func (d *LineDescription) AddSerials(serials ...string) int {
	before := len(d.Serials)
	d.Serials = appendSerials(d.Serials, serials...)
	d.syncSerialField()
	return len(d.Serials) - before
}

// RemoveSerials drops serials matching any of the given keys and returns
// how many were removed.
func (d *LineDescription) RemoveSerials(serials ...string) int {
	drop := make(map[string]bool, len(serials))
	for _, s := range serials {
		drop[NormalizeSerial(s)] = true
	}
	kept := d.Serials[:0:0]
	for _, s := range d.Serials {
		if !drop[NormalizeSerial(s)] {
			kept = append(kept, s)
		}
	}
	removed := len(d.Serials) - len(kept)
	d.Serials = kept
	d.syncSerialField()
	return removed
}

// syncSerialField keeps the raw S/N field consistent after an edit.
func (d *LineDescription) syncSerialField() {
	if len(d.Serials) == 0 {
		d.SerialField = Field{}
		return
	}
	d.SerialField = Field{Present: true, Value: strings.Join(d.Serials, ", ")}
	for _, l := range d.LabelOrder {
		if l == LabelSerial {
			return
		}
	}
	d.LabelOrder = append([]Label{LabelSerial}, d.LabelOrder...)
}

// Clone returns a deep copy of d.
func (d *LineDescription) Clone() *LineDescription {
	c := *d
	c.Serials = append([]string(nil), d.Serials...)
	c.OtherLines = append([]string(nil), d.OtherLines...)
	c.LabelOrder = append([]Label(nil), d.LabelOrder...)
	if d.ServiceStart != nil {
		s := *d.ServiceStart
		c.ServiceStart = &s
	}
	if d.ServiceEnd != nil {
		e := *d.ServiceEnd
		c.ServiceEnd = &e
	}
	return &c
}
