package domain

import (
	"encoding/json"
	"fmt"
)

// RuleType categorizes a validation rule
type RuleType string

const (
	RuleRequired RuleType = "required"
	RulePattern  RuleType = "pattern"
	RuleLength   RuleType = "length"
	RuleCustom   RuleType = "custom"
)

// IsValid checks if the rule type is a defined enum value
func (t RuleType) IsValid() bool {
	switch t {
	case RuleRequired, RulePattern, RuleLength, RuleCustom:
		return true
	}
	return false
}

// LengthBounds is the value of a length rule. A zero bound means the bound
// is absent.
type LengthBounds struct {
	Min int `json:"min,omitempty"`
	Max int `json:"max,omitempty"`
}

// ValidationRule is a single constraint on a field with a user-facing message.
// Value holds a bool for required rules, a regex string for pattern rules and
// a LengthBounds for length rules.
type ValidationRule struct {
	Type    RuleType `json:"type"`
	Value   any      `json:"value"`
	Message string   `json:"message"`
}

// Key returns the deduplication key for the rule. Two rules with the same
// type and serialized value are considered identical regardless of message.
func (r ValidationRule) Key() string {
	data, err := json.Marshal(r.Value)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", r.Value))
	}
	return string(r.Type) + "|" + string(data)
}

// DedupRules removes rules sharing a (type, value) key, keeping the first
// occurrence. Input order is preserved.
func DedupRules(rules []ValidationRule) []ValidationRule {
	if len(rules) < 2 {
		return rules
	}
	seen := make(map[string]bool, len(rules))
	out := rules[:0]
	for _, r := range rules {
		key := r.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// HasPatternRule reports whether the rule set already contains a pattern rule
// of any value.
func HasPatternRule(rules []ValidationRule) bool {
	for _, r := range rules {
		if r.Type == RulePattern {
			return true
		}
	}
	return false
}
