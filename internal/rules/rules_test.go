package rules

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_HAPairMatches(t *testing.T) {
	set := Default()

	tests := []struct {
		manufacturer string
		product      string
		want         bool
	}{
		{"NetApp", "FAS2750 HA Pair", true},
		{"NetApp Inc.", "AFF A400", true},
		{"netapp", "AFF-A250", true},
		{"NetApp", "E-Series E2824", false},
		{"Dell", "FAS2750", false},
		{"", "FAS2750", false},
		{"NetApp", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.manufacturer+"/"+tc.product, func(t *testing.T) {
			_, ok := set.Match(tc.manufacturer, tc.product)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestExpectedQuantity(t *testing.T) {
	set := Default()

	assert.Equal(t, 2, set.ExpectedQuantity(4, "NetApp", "FAS8300"))
	assert.Equal(t, 2, set.ExpectedQuantity(3, "NetApp", "FAS8300"), "odd counts round up")
	assert.Equal(t, 0, set.ExpectedQuantity(0, "NetApp", "FAS8300"))
	assert.Equal(t, 4, set.ExpectedQuantity(4, "Cisco", "C9300"))
	assert.Equal(t, 4, set.ExpectedQuantity(4, "", ""), "unknown metadata never applies the pair rule")
}

func TestExpectedQuantity_NilSet(t *testing.T) {
	var set *Set
	assert.Equal(t, 3, set.ExpectedQuantity(3, "NetApp", "FAS8300"))
}

func TestMatch_FirstRuleWins(t *testing.T) {
	set := NewSet(
		Rule{Name: "first", Manufacturer: regexp.MustCompile(`Acme`), Product: regexp.MustCompile(`.`), SerialsPerUnit: 3},
		Rule{Name: "second", Manufacturer: regexp.MustCompile(`Acme`), Product: regexp.MustCompile(`.`), SerialsPerUnit: 2},
	)

	r, ok := set.Match("Acme", "Box")
	require.True(t, ok)
	assert.Equal(t, "first", r.Name)
	assert.Equal(t, 2, set.ExpectedQuantity(6, "Acme", "Box"))
}
