package description

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixLiteralNewlines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `a\nb`, "a\nb"},
		{"crlf escape", `a\r\nb`, "a\nb"},
		{"real newlines untouched", "a\nb", "a\nb"},
		{"escaped backslash", `a\\nb`, "a\\\nb"},
		{"no escapes", "S/N: A1", "S/N: A1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FixLiteralNewlines(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, FixLiteralNewlines(got))
		})
	}
}

func TestFixSerialDelimiters(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"semicolons", "S/N: A1;B2; C3", "S/N: A1, B2, C3"},
		{"tight commas", "S/N: A1,B2", "S/N: A1, B2"},
		{"slashes and dup", "Text\ns/n: a1/B2/A1", "Text\nS/N: a1, B2"},
		{"indent kept", "  S/N: A1;B2", "  S/N: A1, B2"},
		{"crlf kept", "S/N: A1;B2\r\nText", "S/N: A1, B2\r\nText"},
		{"other lines untouched", "Standort: a;b", "Standort: a;b"},
		{"empty value", "S/N:", "S/N:"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FixSerialDelimiters(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, FixSerialDelimiters(got))
		})
	}
}

func TestFixServiceDates(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"normalizes formats",
			"S/N: A1\nService Start: 1.2.2024\nService Ende: 2024-12-31",
			"S/N: A1\nService Start: 01.02.2024\nService Ende: 31.12.2024",
		},
		{
			"slash format and placeholder",
			"S/N: A1\nService Start: 05/06/2024\nService End: DD.MM.YYYY",
			"S/N: A1\nService Start: 05.06.2024\nService End: tba",
		},
		{
			"empty value becomes tba",
			"S/N: A1\nService Start:\nService Ende: tba",
			"S/N: A1\nService Start: tba\nService Ende: tba",
		},
		{
			"impossible date kept",
			"S/N: A1\nService Start: 31.02.2024\nService Ende: tba",
			"S/N: A1\nService Start: 31.02.2024\nService Ende: tba",
		},
		{
			"adds both missing lines in german",
			"S/N: A1\nStandort: Halle\n\n",
			"S/N: A1\nStandort: Halle\nService Start: tba\nService Ende: tba",
		},
		{
			"adds english end label",
			"S/N: A1\nLocation: DC\nService Start: 01.01.2024",
			"S/N: A1\nLocation: DC\nService Start: 01.01.2024\nService End: tba",
		},
		{
			"inserts start before end",
			"S/N: A1\nService Ende: 31.12.2024\nNachsatz",
			"S/N: A1\nService Start: tba\nService Ende: 31.12.2024\nNachsatz",
		},
		{
			"empty text unchanged",
			"",
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FixServiceDates(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, FixServiceDates(got))
		})
	}
}

func TestFixServiceDates_CRLF(t *testing.T) {
	got := FixServiceDates("S/N: A1\r\nService Start: 1.1.2024\r\n")
	assert.Equal(t, "S/N: A1\r\nService Start: 01.01.2024\r\nService Ende: tba", got)
}

func TestApplyAllFixes_Idempotent(t *testing.T) {
	inputs := []string{
		`S/N: A1;B2\nService Start: 1.1.2024\nService Ende: tba`,
		"S/N: A1,B2,a1\nStandort: Rack\nService End: 2025-01-31",
		"Nur ein Hinweis",
		"",
		`S/N: X\\nY`,
		"Service Ende: 31.02.2024\nS/N: Q1/Q2",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := ApplyAllFixes(in)
			assert.Equal(t, once, ApplyAllFixes(once))
		})
	}
}

func TestApplyAllFixes_RepairsToOK(t *testing.T) {
	raw := `S/N: A1;B2\nService Start: 1.1.2024`
	fixed := ApplyAllFixes(raw)

	assert.Equal(t, "S/N: A1, B2\nService Start: 01.01.2024\nService Ende: tba", fixed)
	assert.Equal(t, StatusOK, Audit(Parse(fixed), 2, "", "").Status)
}

func TestTranslateLanguage(t *testing.T) {
	got := TranslateLanguage(germanSample, LangEnglish)

	assert.Equal(t, `S/N: SN100, sn200
incl.: 2x PSU
Location: Halle 3
Wartungsvertrag Premium
Service Start: 01.01.2024
Service End: 31.12.2026`, got)
	assert.Equal(t, LangEnglish, Parse(got).Language)
}

func TestTranslateLanguage_Inverse(t *testing.T) {
	inputs := []string{
		germanSample,
		"S/N: A1\nStandort: Büro\nService Start: tba\nService Ende: tba",
		"free text\n\nmore",
		"",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, in, TranslateLanguage(TranslateLanguage(in, LangEnglish), LangGerman))
		})
	}
}

func TestTranslateLanguage_Idempotent(t *testing.T) {
	once := TranslateLanguage(germanSample, LangEnglish)
	assert.Equal(t, once, TranslateLanguage(once, LangEnglish))
}

func TestTranslateLanguage_InvalidTarget(t *testing.T) {
	assert.Equal(t, germanSample, TranslateLanguage(germanSample, LangMixed))
}

func TestTranslateLanguage_LeavesValuesAlone(t *testing.T) {
	in := "Standort: Location: nested\ninkl.: Standort: Kabel"
	assert.Equal(t, "Location: Location: nested\nincl.: Standort: Kabel", TranslateLanguage(in, LangEnglish))
}
