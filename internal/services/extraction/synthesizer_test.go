package extraction

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestSynthesizer() *Synthesizer {
	return NewSynthesizer("1.0.0", "https://udyamregistration.gov.in/UdyamRegistration.aspx",
		patterns.Default(), fixedClock{at: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)})
}

func annotatedField(id, label string, kind domain.FieldKind, category domain.FieldCategory, rules ...domain.ValidationRule) domain.NormalizedField {
	return domain.NormalizedField{
		ID:              id,
		Name:            id,
		Kind:            kind,
		Label:           label,
		FieldCategory:   category,
		ValidationRules: rules,
	}
}

func twoStepInput() map[string][]domain.NormalizedField {
	required := domain.ValidationRule{Type: domain.RuleRequired, Value: true, Message: "required"}
	aadhaarPattern := domain.ValidationRule{Type: domain.RulePattern, Value: "^[0-9]{12}$", Message: "12 digits"}
	panPattern := domain.ValidationRule{Type: domain.RulePattern, Value: "^[A-Z]{5}[0-9]{4}[A-Z]{1}$", Message: "PAN format"}

	return map[string][]domain.NormalizedField{
		StepAadhaar: {
			annotatedField("txtadharno", "Aadhaar Number", domain.KindText, domain.CategoryIdentityAadhaar, required, aadhaarPattern),
			annotatedField("txtownername", "Name of Entrepreneur", domain.KindText, domain.CategoryPersonalName, required),
		},
		StepPAN: {
			annotatedField("txtpan", "PAN Number", domain.KindText, domain.CategoryIdentityPAN, required, panPattern),
			annotatedField("ddlorgtype", "Type of Organisation", domain.KindSelect, domain.CategoryBusinessName, required),
			annotatedField("txtemail", "Email", domain.KindText, domain.CategoryContactEmail),
		},
	}
}

func TestSynthesize_SchemaShape(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(twoStepInput())
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", schema.Version)
	assert.Equal(t, "https://udyamregistration.gov.in/UdyamRegistration.aspx", schema.SourceIdentifier)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), schema.GeneratedAt)

	assert.Equal(t, 2, schema.Metadata.TotalSteps)
	assert.Equal(t, 5, schema.Metadata.TotalFields)
	want := map[string]int{StepAadhaar: 2, StepPAN: 3}
	if diff := cmp.Diff(want, schema.Metadata.StepFieldCounts); diff != "" {
		t.Errorf("step field counts mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Aadhaar Number & OTP Verification", schema.Metadata.StepDescriptions[StepAadhaar])
	assert.Equal(t, "PAN Verification & Business Details", schema.Metadata.StepDescriptions[StepPAN])

	require.Len(t, schema.GlobalValidationRules, 6)
	assert.Equal(t, "^[0-9]{12}$", schema.GlobalValidationRules[domain.CategoryIdentityAadhaar].Value)
}

func TestSynthesize_StatisticsConsistency(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(twoStepInput())
	require.NoError(t, err)

	assert.Equal(t, schema.Metadata.TotalFields, schema.Statistics.TotalFields)

	byKind := 0
	for _, n := range schema.Statistics.FieldsByKind {
		byKind += n
	}
	assert.Equal(t, schema.Statistics.TotalFields, byKind, "kind counts must partition the fields")

	byCategory := 0
	for _, n := range schema.Statistics.FieldsByCategory {
		byCategory += n
	}
	assert.Equal(t, schema.Statistics.TotalFields, byCategory, "category counts must partition the fields")

	rules := 0
	for _, fields := range schema.Steps {
		for _, f := range fields {
			rules += len(f.ValidationRules)
		}
	}
	byType := 0
	for _, n := range schema.Statistics.RulesByType {
		byType += n
	}
	assert.Equal(t, rules, byType)
	assert.Equal(t, 4, schema.Statistics.RulesByType[domain.RuleRequired])
	assert.Equal(t, 2, schema.Statistics.RulesByType[domain.RulePattern])
}

func TestSynthesize_CategoryBuckets(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(twoStepInput())
	require.NoError(t, err)

	// every field lands in exactly one broad bucket, referenced by step.id
	bucketed := 0
	seen := map[string]string{}
	for bucket, refs := range schema.FieldCategories {
		for _, ref := range refs {
			if prev, dup := seen[ref]; dup {
				t.Errorf("field %s in both %s and %s", ref, prev, bucket)
			}
			seen[ref] = bucket
			bucketed++
		}
	}
	assert.Equal(t, schema.Metadata.TotalFields, bucketed)

	assert.Contains(t, schema.FieldCategories["identity"], StepAadhaar+".txtadharno")
	assert.Contains(t, schema.FieldCategories["identity"], StepPAN+".txtpan")
	assert.Contains(t, schema.FieldCategories["personal"], StepAadhaar+".txtownername")
	assert.Contains(t, schema.FieldCategories["business"], StepPAN+".ddlorgtype")
	assert.Contains(t, schema.FieldCategories["contact"], StepPAN+".txtemail")

	// emitted fields carry the step they were synthesized under even when
	// the caller never set it
	for step, fields := range schema.Steps {
		for _, f := range fields {
			assert.Equal(t, step, f.StepName)
		}
	}
}

func TestSynthesize_UIHints(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(twoStepInput())
	require.NoError(t, err)

	byID := map[string]domain.NormalizedField{}
	for _, fields := range schema.Steps {
		for _, f := range fields {
			byID[f.ID] = f
		}
	}

	aadhaar := byID["txtadharno"].UIHints
	assert.Equal(t, "numeric", aadhaar["inputMode"])
	assert.Equal(t, "[0-9]*", aadhaar["pattern"])
	assert.Equal(t, "12", aadhaar["maxLength"])

	pan := byID["txtpan"].UIHints
	assert.Equal(t, "10", pan["maxLength"])
	assert.Equal(t, "uppercase", pan["textTransform"])

	email := byID["txtemail"].UIHints
	assert.Equal(t, "email", email["inputMode"])
	assert.Equal(t, "email", email["autocomplete"])

	name := byID["txtownername"].UIHints
	assert.Equal(t, "true", name["spellcheck"])

	// selects still get the neutral defaults
	organisation := byID["ddlorgtype"].UIHints
	assert.Equal(t, "text", organisation["inputMode"])
	assert.Equal(t, "false", organisation["spellcheck"])
}

func TestSynthesize_OwnPlaceholderWins(t *testing.T) {
	field := annotatedField("txtadharno", "Aadhaar Number", domain.KindText, domain.CategoryIdentityAadhaar)
	field.Placeholder = "Your Aadhaar No"

	schema, err := newTestSynthesizer().Synthesize(map[string][]domain.NormalizedField{
		StepAadhaar: {field},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your Aadhaar No", schema.Steps[StepAadhaar][0].UIHints["placeholder"])
}

func TestSynthesize_MalformedStep(t *testing.T) {
	_, err := newTestSynthesizer().Synthesize(map[string][]domain.NormalizedField{
		StepAadhaar: {},
		"step7":     {annotatedField("x", "X", domain.KindText, domain.CategoryGeneral)},
	})
	require.Error(t, err)

	var derr *domain.DomainError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, domain.ErrCodeMalformedStep, derr.Code)
	assert.Contains(t, err.Error(), "step7")
}

func TestSynthesize_EmptyInput(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(map[string][]domain.NormalizedField{})
	require.NoError(t, err)
	assert.Equal(t, 0, schema.Metadata.TotalSteps)
	assert.Equal(t, 0, schema.Metadata.TotalFields)
	assert.Empty(t, schema.Steps)
}

func TestSynthesize_RecognizedStepWithNoFields(t *testing.T) {
	schema, err := newTestSynthesizer().Synthesize(map[string][]domain.NormalizedField{
		StepAadhaar: {},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, schema.Metadata.TotalSteps)
	assert.Equal(t, 0, schema.Metadata.StepFieldCounts[StepAadhaar])
	assert.Equal(t, 0, schema.Statistics.TotalFields)
}

func TestSynthesize_DoesNotMutateInput(t *testing.T) {
	input := twoStepInput()
	original := input[StepAadhaar][0]

	_, err := newTestSynthesizer().Synthesize(input)
	require.NoError(t, err)

	assert.Nil(t, input[StepAadhaar][0].UIHints, "input slices must not be annotated in place")
	if diff := cmp.Diff(original, input[StepAadhaar][0]); diff != "" {
		t.Errorf("input field mutated (-want +got):\n%s", diff)
	}
}
