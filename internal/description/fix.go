package description

import (
	"strings"
)

var literalNewlines = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n")

// FixLiteralNewlines turns two-character "\n" (and "\r\n") escape sequences
// into real line breaks.
func FixLiteralNewlines(text string) string {
	return literalNewlines.Replace(text)
}

// FixSerialDelimiters rewrites every S/N line to "S/N: A, B, C".
// Serials are split on ",", ";" and "/" and deduplicated.
func FixSerialDelimiters(text string) string {
	return mapLines(text, func(line string) string {
		indent, body := splitIndent(line)
		sp, value, ok := matchLabel(body)
		if !ok || sp.label != LabelSerial {
			return line
		}
		return indent + formatLabelLine(sp.token, strings.Join(SplitSerials(value), ", "))
	})
}

// FixServiceDates normalizes Service Start and end-date values to DD.MM.YYYY
// or "tba", and adds missing date lines with "tba".
//
// A missing Service Start line is inserted before the end-date line when one
// exists. Empty text is returned unchanged. Values that cannot be read as a
// date are left as they are.
func FixServiceDates(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	var hasStart, hasEnd bool
	text = mapLines(text, func(line string) string {
		indent, body := splitIndent(line)
		sp, value, ok := matchLabel(body)
		if !ok {
			return line
		}
		switch sp.label {
		case LabelServiceStart:
			hasStart = true
		case LabelServiceEnd:
			hasEnd = true
		default:
			return line
		}
		return indent + formatLabelLine(sp.token, normalizeDateValue(value))
	})
	if hasStart && hasEnd {
		return text
	}

	lang := Parse(text).Language
	startLine := formatLabelLine(token(LabelServiceStart, lang), PlaceholderValue)
	endLine := formatLabelLine(token(LabelServiceEnd, lang), PlaceholderValue)

	eol := "\n"
	if strings.Contains(text, "\r\n") {
		eol = "\r\n"
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	if !hasStart {
		at := len(lines)
		if hasEnd {
			for i, line := range lines {
				if sp, _, ok := matchLabel(strings.TrimSpace(line)); ok && sp.label == LabelServiceEnd {
					at = i
					break
				}
			}
		}
		lines = append(lines[:at], append([]string{startLine}, lines[at:]...)...)
	}
	if !hasEnd {
		lines = append(lines, endLine)
	}
	return strings.Join(lines, eol)
}

// ApplyAllFixes runs FixLiteralNewlines, FixSerialDelimiters and
// FixServiceDates in that order.
func ApplyAllFixes(text string) string {
	return FixServiceDates(FixSerialDelimiters(FixLiteralNewlines(text)))
}

// TranslateLanguage respells the locale-paired labels (inkl./incl.,
// Standort/Location, Service Ende/End) in target. Values, serials, dates and
// unmanaged lines are untouched. Text is returned unchanged for targets
// other than LangGerman and LangEnglish.
func TranslateLanguage(text string, target Language) string {
	if !ValidLanguage(target) {
		return text
	}
	return mapLines(text, func(line string) string {
		indent, body := splitIndent(line)
		sp, _, ok := matchLabel(body)
		if !ok || sp.lang == "" || sp.lang == target {
			return line
		}
		return indent + token(sp.label, target) + body[len(sp.token):]
	})
}

// mapLines applies fn to each line, keeping "\n" and "\r\n" endings intact.
func mapLines(text string, fn func(string) string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		cr := strings.HasSuffix(line, "\r")
		out := fn(strings.TrimSuffix(line, "\r"))
		if cr {
			out += "\r"
		}
		lines[i] = out
	}
	return strings.Join(lines, "\n")
}

// splitIndent separates leading blanks from the rest of a line.
// Trailing blanks are dropped from the body.
func splitIndent(line string) (indent, body string) {
	body = strings.TrimLeft(line, " \t")
	return line[:len(line)-len(body)], strings.TrimRight(body, " \t")
}
