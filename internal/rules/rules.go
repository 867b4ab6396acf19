// Package rules holds the vendor-specific quantity rules applied to order lines.
//
// A rule matches a line by manufacturer and product name and states how many
// serial numbers make up one billable unit. The built-in rule covers NetApp
// FAS/AFF high-availability controller pairs, where two serials are one unit.
//
// Rules can also be loaded from CUE files:
//
//	rule: "netapp-ha-pair": {
//	    manufacturer:     "(?i)netapp"
//	    product:          "(?i)\\b(FAS|AFF)\\s*-?\\s*[A-Z]?\\d"
//	    serials_per_unit: 2
//	}
package rules

import (
	"fmt"
	"regexp"
)

// Rule is a compiled quantity rule.
type Rule struct {
	Name           string
	Manufacturer   *regexp.Regexp
	Product        *regexp.Regexp
	SerialsPerUnit int
}

// Matches reports whether the rule applies to the given product metadata.
// Unknown (empty) manufacturer or product never matches.
func (r Rule) Matches(manufacturer, productName string) bool {
	if manufacturer == "" || productName == "" {
		return false
	}
	return r.Manufacturer.MatchString(manufacturer) && r.Product.MatchString(productName)
}

// Set is an ordered list of rules. The first matching rule wins.
type Set struct {
	rules []Rule
}

// HAPairRuleName names the built-in NetApp rule.
const HAPairRuleName = "netapp-ha-pair"

// Default returns the built-in rule set.
func Default() *Set {
	return NewSet(Rule{
		Name:           HAPairRuleName,
		Manufacturer:   regexp.MustCompile(`(?i)\bnetapp\b`),
		Product:        regexp.MustCompile(`(?i)\b(FAS|AFF)\s*-?\s*[A-Z]?\d`),
		SerialsPerUnit: 2,
	})
}

// NewSet creates a rule set. Rule order is preserved.
func NewSet(rules ...Rule) *Set {
	return &Set{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the rules in evaluation order.
func (s *Set) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Match returns the first rule that applies to the product metadata.
func (s *Set) Match(manufacturer, productName string) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	for _, r := range s.rules {
		if r.Matches(manufacturer, productName) {
			return r, true
		}
	}
	return Rule{}, false
}

// ExpectedQuantity returns the quantity a line with serialCount serials should
// carry: ceil(serialCount / SerialsPerUnit) for a matching rule, otherwise
// serialCount.
func (s *Set) ExpectedQuantity(serialCount int, manufacturer, productName string) int {
	r, ok := s.Match(manufacturer, productName)
	if !ok || r.SerialsPerUnit <= 1 {
		return serialCount
	}
	return (serialCount + r.SerialsPerUnit - 1) / r.SerialsPerUnit
}

// newRule compiles the patterns of a rule definition.
func newRule(name, manufacturer, product string, perUnit int) (Rule, error) {
	if perUnit < 1 {
		return Rule{}, fmt.Errorf("rule %s: serials_per_unit must be at least 1, got %d", name, perUnit)
	}
	m, err := regexp.Compile(manufacturer)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: manufacturer pattern: %w", name, err)
	}
	p, err := regexp.Compile(product)
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: product pattern: %w", name, err)
	}
	return Rule{Name: name, Manufacturer: m, Product: p, SerialsPerUnit: perUnit}, nil
}
