package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
)

// stubHints serves canned attribute hints per field id
type stubHints struct {
	byID  map[string]*AttributeHints
	err   error
	calls int
}

func (s *stubHints) AttributeHints(_ context.Context, identifier, _ string) (*AttributeHints, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[identifier], nil
}

// stubEvidence serves canned inline-script patterns per field id
type stubEvidence struct {
	byID map[string][]string
	err  error
}

func (s *stubEvidence) InlinePatterns(_ context.Context, identifier string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byID[identifier], nil
}

func newTestInferencer(hints HintProvider, evidence EvidenceProvider) *RuleInferencer {
	return NewRuleInferencer(zap.NewNop(), patterns.Default(), hints, evidence, nil, DefaultConfig())
}

func findRule(t *testing.T, rules []domain.ValidationRule, ruleType domain.RuleType) domain.ValidationRule {
	t.Helper()
	for _, r := range rules {
		if r.Type == ruleType {
			return r
		}
	}
	t.Fatalf("no %s rule in %v", ruleType, rules)
	return domain.ValidationRule{}
}

func countRulesOfType(rules []domain.ValidationRule, ruleType domain.RuleType) int {
	n := 0
	for _, r := range rules {
		if r.Type == ruleType {
			n++
		}
	}
	return n
}

func TestInferRules_AadhaarHeuristics(t *testing.T) {
	field := domain.NormalizedField{
		ID:       "txtaadhaarnumber",
		Name:     "aadhaarnumber",
		Label:    "Aadhaar Number",
		Required: true,
		Kind:     domain.KindText,
	}

	category, rules := newTestInferencer(nil, nil).InferRules(field, nil, nil)

	assert.Equal(t, domain.CategoryIdentityAadhaar, category)

	required := findRule(t, rules, domain.RuleRequired)
	assert.Equal(t, true, required.Value)
	assert.Equal(t, "Aadhaar Number is required", required.Message)

	pattern := findRule(t, rules, domain.RulePattern)
	assert.Equal(t, "^[0-9]{12}$", pattern.Value)
	assert.Equal(t, "Aadhaar number must be 12 digits", pattern.Message)
}

func TestInferRules_HintPatternSuppressesCanonical(t *testing.T) {
	// a live-read pattern on a PIN code field must not be duplicated by the
	// category's canonical rule
	field := domain.NormalizedField{
		ID:    "txtpincode",
		Label: "PIN Code",
		Kind:  domain.KindText,
	}
	hints := &AttributeHints{Pattern: "^[0-9]{6}$"}

	category, rules := newTestInferencer(nil, nil).InferRules(field, hints, nil)

	assert.Equal(t, domain.CategoryLocationPincode, category)
	assert.Equal(t, 1, countRulesOfType(rules, domain.RulePattern))
	pattern := findRule(t, rules, domain.RulePattern)
	assert.Equal(t, "^[0-9]{6}$", pattern.Value)
}

func TestInferRules_DistinctHintPatternKeepsCanonicalOut(t *testing.T) {
	// even a hint pattern that differs from the canonical one blocks stage 3
	// from adding a second pattern rule
	field := domain.NormalizedField{ID: "txtmobile", Label: "Mobile", Kind: domain.KindText}
	hints := &AttributeHints{Pattern: "^[0-9]{10}$"}

	_, rules := newTestInferencer(nil, nil).InferRules(field, hints, nil)
	assert.Equal(t, 1, countRulesOfType(rules, domain.RulePattern))
}

func TestInferRules_LengthMessages(t *testing.T) {
	tests := []struct {
		name  string
		hints AttributeHints
		want  string
	}{
		{"exact", AttributeHints{MinLength: 12, MaxLength: 12}, "Must be exactly 12 characters"},
		{"range", AttributeHints{MinLength: 2, MaxLength: 50}, "Must be between 2 and 50 characters"},
		{"at least", AttributeHints{MinLength: 3}, "Must be at least 3 characters"},
		{"at most", AttributeHints{MaxLength: 100}, "Must be at most 100 characters"},
	}

	field := domain.NormalizedField{ID: "txtmisc", Label: "Misc", Kind: domain.KindText}
	ri := newTestInferencer(nil, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := tt.hints
			_, rules := ri.InferRules(field, &hints, nil)
			length := findRule(t, rules, domain.RuleLength)
			assert.Equal(t, tt.want, length.Message)
		})
	}
}

func TestInferRules_RequiredInvariant(t *testing.T) {
	ri := newTestInferencer(nil, nil)

	optional := domain.NormalizedField{ID: "txtemail", Label: "Email", Kind: domain.KindText}
	_, rules := ri.InferRules(optional, nil, nil)
	assert.Equal(t, 0, countRulesOfType(rules, domain.RuleRequired))

	mandatory := optional
	mandatory.Required = true
	_, rules = ri.InferRules(mandatory, nil, nil)
	assert.Equal(t, 1, countRulesOfType(rules, domain.RuleRequired))
}

func TestInferRules_NoDuplicateRuleKeys(t *testing.T) {
	field := domain.NormalizedField{
		ID:       "txtotp",
		Label:    "OTP",
		Required: true,
		Kind:     domain.KindText,
	}
	// hint pattern matches the canonical OTP pattern exactly
	hints := &AttributeHints{Pattern: "^[0-9]{6}$", MinLength: 6, MaxLength: 6}

	_, rules := newTestInferencer(nil, nil).InferRules(field, hints, nil)

	seen := map[string]bool{}
	for _, r := range rules {
		key := r.Key()
		assert.False(t, seen[key], "duplicate rule key %q", key)
		seen[key] = true
	}
	assert.Equal(t, 1, countRulesOfType(rules, domain.RulePattern))
}

func TestInferRules_EvidenceFallback(t *testing.T) {
	field := domain.NormalizedField{ID: "txtudyam", Label: "Registration Token", Kind: domain.KindText}

	t.Run("used when hints unavailable", func(t *testing.T) {
		_, rules := newTestInferencer(nil, nil).InferRules(field, nil, func() []string {
			return []string{`^UDYAM-[A-Z]{2}-[0-9]{2}$`}
		})
		pattern := findRule(t, rules, domain.RulePattern)
		assert.Equal(t, `^UDYAM-[A-Z]{2}-[0-9]{2}$`, pattern.Value)
	})

	t.Run("skipped when hints present", func(t *testing.T) {
		hints := &AttributeHints{Pattern: "^[A-Z0-9-]+$"}
		_, rules := newTestInferencer(nil, nil).InferRules(field, hints, func() []string {
			t.Fatal("evidence scan must not run when live hints are available")
			return nil
		})
		assert.Equal(t, 1, countRulesOfType(rules, domain.RulePattern))
	})

	t.Run("skipped when a category pattern exists", func(t *testing.T) {
		aadhaar := domain.NormalizedField{ID: "txtaadhaar", Label: "Aadhaar", Kind: domain.KindText}
		_, rules := newTestInferencer(nil, nil).InferRules(aadhaar, nil, func() []string {
			return []string{"^.*$"}
		})
		pattern := findRule(t, rules, domain.RulePattern)
		assert.Equal(t, "^[0-9]{12}$", pattern.Value, "canonical rule wins over evidence")
	})
}

func TestInferAll_HintLookupFailureDegradesToHeuristics(t *testing.T) {
	provider := &stubHints{err: errors.New("page went away")}
	ri := newTestInferencer(provider, nil)

	fields := []domain.NormalizedField{{
		ID:       "txtaadhaarnumber",
		Label:    "Aadhaar Number",
		Required: true,
		Kind:     domain.KindText,
	}}

	out := ri.InferAll(context.Background(), NewRunContext(), fields)
	require.Len(t, out, 1)

	// the fallback path must still produce required + category pattern rules
	assert.Equal(t, domain.CategoryIdentityAadhaar, out[0].FieldCategory)
	assert.Equal(t, 1, countRulesOfType(out[0].ValidationRules, domain.RuleRequired))
	pattern := findRule(t, out[0].ValidationRules, domain.RulePattern)
	assert.Equal(t, "^[0-9]{12}$", pattern.Value)
}

func TestInferAll_UsesLiveHints(t *testing.T) {
	provider := &stubHints{byID: map[string]*AttributeHints{
		"txtpan": {Pattern: "^[A-Z]{5}[0-9]{4}[A-Z]{1}$", MaxLength: 10},
	}}
	ri := newTestInferencer(provider, nil)

	fields := []domain.NormalizedField{{
		ID:       "txtpan",
		Label:    "PAN Number",
		Required: true,
		Kind:     domain.KindText,
	}}

	out := ri.InferAll(context.Background(), NewRunContext(), fields)
	require.Len(t, out, 1)
	assert.Equal(t, domain.CategoryIdentityPAN, out[0].FieldCategory)
	assert.Equal(t, 1, countRulesOfType(out[0].ValidationRules, domain.RulePattern))
	assert.Equal(t, 1, countRulesOfType(out[0].ValidationRules, domain.RuleLength))
	length := findRule(t, out[0].ValidationRules, domain.RuleLength)
	assert.Equal(t, "Must be at most 10 characters", length.Message)
}

func TestInferAll_MemoizesLookupsPerRun(t *testing.T) {
	provider := &stubHints{byID: map[string]*AttributeHints{}}
	ri := newTestInferencer(provider, nil)
	run := NewRunContext()

	same := domain.NormalizedField{ID: "txtmobile", Name: "mobile", Label: "Mobile", Kind: domain.KindText}
	ri.InferAll(context.Background(), run, []domain.NormalizedField{same})
	ri.InferAll(context.Background(), run, []domain.NormalizedField{same})

	assert.Equal(t, 1, provider.calls, "second lookup for the same field must hit the run cache")
}

func TestInferAll_PreservesOrderAndLength(t *testing.T) {
	ri := newTestInferencer(nil, nil)

	fields := make([]domain.NormalizedField, 20)
	for i := range fields {
		fields[i] = domain.NormalizedField{
			ID:         "fld" + string(rune('a'+i)),
			Kind:       domain.KindText,
			FieldIndex: i,
		}
	}

	out := ri.InferAll(context.Background(), NewRunContext(), fields)
	require.Len(t, out, len(fields))
	for i := range out {
		assert.Equal(t, fields[i].ID, out[i].ID, "worker pool must not reorder fields")
	}
}

func TestInferAll_EmptyInput(t *testing.T) {
	ri := newTestInferencer(nil, nil)
	assert.Empty(t, ri.InferAll(context.Background(), NewRunContext(), nil))
}
