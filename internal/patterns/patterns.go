// Package patterns holds the canonical validation pattern library for the
// Udyam registration form: one well-known regular expression and user-facing
// message per semantic field category. The table is read-only shared data and
// safe for concurrent use; an optional YAML overlay can extend or override it
// per run.
package patterns

import (
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// CanonicalRule is a category's reference pattern with its message
type CanonicalRule struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Message string `json:"message" yaml:"message"`
}

var canonical = map[domain.FieldCategory]CanonicalRule{
	domain.CategoryIdentityAadhaar: {
		Pattern: `^[0-9]{12}$`,
		Message: "Aadhaar number must be 12 digits",
	},
	domain.CategoryIdentityPAN: {
		Pattern: `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`,
		Message: "PAN must be in the format ABCDE1234F",
	},
	domain.CategoryVerificationOTP: {
		Pattern: `^[0-9]{6}$`,
		Message: "OTP must be 6 digits",
	},
	domain.CategoryContactMobile: {
		Pattern: `^[6-9][0-9]{9}$`,
		Message: "Mobile number must be a valid 10-digit Indian number",
	},
	domain.CategoryContactEmail: {
		Pattern: `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`,
		Message: "Enter a valid email address",
	},
	domain.CategoryLocationPincode: {
		Pattern: `^[0-9]{6}$`,
		Message: "PIN code must be 6 digits",
	},
}

// Library is the pattern table consulted during inference and synthesis.
// The zero value is unusable; obtain one via Default or Load.
type Library struct {
	rules map[domain.FieldCategory]CanonicalRule
}

// Default returns a library holding only the built-in canonical rules
func Default() *Library {
	rules := make(map[domain.FieldCategory]CanonicalRule, len(canonical))
	for cat, rule := range canonical {
		rules[cat] = rule
	}
	return &Library{rules: rules}
}

// Canonical returns the canonical rule for a category, if one exists
func (l *Library) Canonical(cat domain.FieldCategory) (CanonicalRule, bool) {
	rule, ok := l.rules[cat]
	return rule, ok
}

// PatternRule builds the ValidationRule form of a category's canonical rule
func (l *Library) PatternRule(cat domain.FieldCategory) (domain.ValidationRule, bool) {
	rule, ok := l.rules[cat]
	if !ok {
		return domain.ValidationRule{}, false
	}
	return domain.ValidationRule{
		Type:    domain.RulePattern,
		Value:   rule.Pattern,
		Message: rule.Message,
	}, true
}

// GlobalRules returns the full reference table keyed by category. This is the
// canonical table shipped with every schema, independent of what was actually
// found on the page.
func (l *Library) GlobalRules() map[domain.FieldCategory]domain.ValidationRule {
	out := make(map[domain.FieldCategory]domain.ValidationRule, len(l.rules))
	for cat, rule := range l.rules {
		out[cat] = domain.ValidationRule{
			Type:    domain.RulePattern,
			Value:   rule.Pattern,
			Message: rule.Message,
		}
	}
	return out
}
