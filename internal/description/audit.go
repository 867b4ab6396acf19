package description

import (
	"fmt"
	"strings"

	"github.com/roach88/snrecon/internal/rules"
)

// HealthStatus classifies the structural state of a description.
type HealthStatus string

const (
	StatusOK                  HealthStatus = "ok"
	StatusNoDescription       HealthStatus = "noDescription"
	StatusInvalidDate         HealthStatus = "invalidDate"
	StatusBadSerialDelimiter  HealthStatus = "badSerialDelimiter"
	StatusLanguageMixed       HealthStatus = "languageMixed"
	StatusLabelOrderViolation HealthStatus = "labelOrderViolation"
	StatusMissingServiceDates HealthStatus = "missingServiceDates"
	StatusMissingSerials      HealthStatus = "missingSerials"
	StatusQuantityMismatch    HealthStatus = "quantityMismatch"
)

// Health is an audit outcome with a human-readable reason.
type Health struct {
	Status HealthStatus `json:"status"`
	Reason string       `json:"reason,omitempty"`
}

// OK reports whether the description passed every check.
func (h Health) OK() bool {
	return h.Status == StatusOK
}

// QuantityRules computes the quantity a line should carry for its serials.
type QuantityRules interface {
	ExpectedQuantity(serialCount int, manufacturer, productName string) int
}

// Auditor checks descriptions against the structural rules.
// It is stateless and safe to reuse.
type Auditor struct {
	rules QuantityRules
}

// NewAuditor creates an Auditor. A nil rules value uses rules.Default().
func NewAuditor(r QuantityRules) *Auditor {
	if r == nil {
		r = rules.Default()
	}
	return &Auditor{rules: r}
}

// Audit classifies d with the built-in quantity rules.
func Audit(d *LineDescription, quantity int, manufacturer, productName string) Health {
	return NewAuditor(nil).Audit(d, quantity, manufacturer, productName)
}

// Audit evaluates the checks in precedence order and returns the first failure.
// manufacturer and productName may be empty when product metadata is unknown.
func (a *Auditor) Audit(d *LineDescription, quantity int, manufacturer, productName string) Health {
	if d == nil || d.IsEmpty() {
		return Health{Status: StatusNoDescription, Reason: "description is empty"}
	}

	for _, f := range []struct {
		name  string
		field Field
	}{
		{"Service Start", d.StartField},
		{"Service End", d.EndField},
	} {
		if !f.field.Present || IsPlaceholder(f.field.Value) {
			continue
		}
		if _, ok := ParseDate(f.field.Value); !ok {
			return Health{
				Status: StatusInvalidDate,
				Reason: fmt.Sprintf("%s value %q is not a valid DD.MM.YYYY date", f.name, f.field.Value),
			}
		}
	}

	if d.SerialField.Present && hasBadDelimiter(d.SerialField.Value) {
		return Health{
			Status: StatusBadSerialDelimiter,
			Reason: fmt.Sprintf("S/N value %q must separate serials with \", \"", d.SerialField.Value),
		}
	}

	if d.Language == LangMixed {
		return Health{Status: StatusLanguageMixed, Reason: "description mixes German and English labels"}
	}

	if prev, next, ok := orderViolation(d.LabelOrder); ok {
		return Health{
			Status: StatusLabelOrderViolation,
			Reason: fmt.Sprintf("label %s appears after %s", next, prev),
		}
	}

	if !d.StartField.Present || !d.EndField.Present {
		var missing []string
		if !d.StartField.Present {
			missing = append(missing, "Service Start")
		}
		if !d.EndField.Present {
			missing = append(missing, token(LabelServiceEnd, d.Language))
		}
		return Health{
			Status: StatusMissingServiceDates,
			Reason: "missing " + strings.Join(missing, " and "),
		}
	}

	if len(d.Serials) == 0 {
		return Health{Status: StatusMissingSerials, Reason: "no serial numbers found"}
	}

	expected := a.rules.ExpectedQuantity(len(d.Serials), manufacturer, productName)
	if quantity != expected {
		return Health{
			Status: StatusQuantityMismatch,
			Reason: fmt.Sprintf("quantity %d does not match %d serial(s), expected %d", quantity, len(d.Serials), expected),
		}
	}

	return Health{Status: StatusOK}
}

// hasBadDelimiter reports a semicolon, or a comma not followed by a space.
func hasBadDelimiter(value string) bool {
	if strings.Contains(value, ";") {
		return true
	}
	for i := 0; i < len(value); i++ {
		if value[i] == ',' && (i+1 == len(value) || value[i+1] != ' ') {
			return true
		}
	}
	return false
}

// orderViolation finds the first pair of labels out of canonical order.
func orderViolation(order []Label) (prev, next Label, found bool) {
	for i := 1; i < len(order); i++ {
		if order[i] < order[i-1] {
			return order[i-1], order[i], true
		}
	}
	return LabelNone, LabelNone, false
}
