package extraction

import (
	"sort"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
)

// Synthesizer aggregates rule-annotated fields across steps into one
// versioned FormSchema. Synthesis is a pure single-pass aggregation: it
// either returns a complete schema or a structural error for malformed
// step data, never a partial document.
type Synthesizer struct {
	version string
	source  string
	library *patterns.Library
	clock   Clock
}

// NewSynthesizer creates a synthesizer stamping the given version and source
// identifier. A nil clock defaults to the system clock.
func NewSynthesizer(version, source string, library *patterns.Library, clock Clock) *Synthesizer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Synthesizer{
		version: version,
		source:  source,
		library: library,
		clock:   clock,
	}
}

// Synthesize builds the schema document from per-step field sequences. Every
// step name must be recognized; an empty field sequence for a recognized
// step is valid and contributes zero counts.
func (s *Synthesizer) Synthesize(stepFields map[string][]domain.NormalizedField) (*domain.FormSchema, error) {
	stepNames := make([]string, 0, len(stepFields))
	for step := range stepFields {
		if !IsRecognizedStep(step) {
			return nil, domain.MalformedStepError(step)
		}
		stepNames = append(stepNames, step)
	}
	sort.Strings(stepNames)

	schema := &domain.FormSchema{
		Version:          s.version,
		GeneratedAt:      s.clock.Now(),
		SourceIdentifier: s.source,
		Steps:            make(map[string][]domain.NormalizedField, len(stepFields)),
		Metadata: domain.SchemaMetadata{
			TotalSteps:       len(stepNames),
			StepFieldCounts:  make(map[string]int, len(stepNames)),
			StepDescriptions: make(map[string]string, len(stepNames)),
		},
		GlobalValidationRules: s.library.GlobalRules(),
		FieldCategories:       make(map[string][]string),
		Statistics: domain.SchemaStatistics{
			FieldsByKind:     make(map[domain.FieldKind]int),
			FieldsByCategory: make(map[domain.FieldCategory]int),
			RulesByType:      make(map[domain.RuleType]int),
		},
	}

	for _, step := range stepNames {
		fields := make([]domain.NormalizedField, len(stepFields[step]))
		copy(fields, stepFields[step])

		for i := range fields {
			// the step key is authoritative, callers may leave StepName unset
			fields[i].StepName = step
			fields[i].UIHints = uiHints(fields[i])
			// rule-less fields still serialize an empty array, not null
			if fields[i].ValidationRules == nil {
				fields[i].ValidationRules = []domain.ValidationRule{}
			}

			schema.Statistics.FieldsByKind[fields[i].Kind]++
			schema.Statistics.FieldsByCategory[fields[i].FieldCategory]++
			for _, rule := range fields[i].ValidationRules {
				schema.Statistics.RulesByType[rule.Type]++
			}

			bucket := patterns.BroadCategory(fields[i].FieldCategory)
			schema.FieldCategories[bucket] = append(schema.FieldCategories[bucket], fields[i].Ref())
		}

		schema.Steps[step] = fields
		schema.Metadata.StepFieldCounts[step] = len(fields)
		schema.Metadata.StepDescriptions[step] = StepDescriptions[step]
		schema.Metadata.TotalFields += len(fields)
	}

	schema.Statistics.TotalFields = schema.Metadata.TotalFields
	return schema, nil
}

// uiHints computes renderer hints for a field from its category. Numeric
// categories get a digit-only input mode, known fixed-length categories get
// a maxlength, and everything else receives the neutral default set.
func uiHints(field domain.NormalizedField) map[string]string {
	hints := map[string]string{
		"inputMode":  "text",
		"spellcheck": "false",
	}

	switch field.FieldCategory {
	case domain.CategoryIdentityAadhaar:
		hints["inputMode"] = "numeric"
		hints["pattern"] = "[0-9]*"
		hints["maxLength"] = "12"
		hints["placeholder"] = "Enter 12-digit Aadhaar number"
	case domain.CategoryVerificationOTP:
		hints["inputMode"] = "numeric"
		hints["pattern"] = "[0-9]*"
		hints["maxLength"] = "6"
		hints["placeholder"] = "Enter 6-digit OTP"
	case domain.CategoryContactMobile:
		hints["inputMode"] = "numeric"
		hints["pattern"] = "[0-9]*"
		hints["maxLength"] = "10"
	case domain.CategoryLocationPincode:
		hints["inputMode"] = "numeric"
		hints["pattern"] = "[0-9]*"
		hints["maxLength"] = "6"
	case domain.CategoryIdentityPAN:
		hints["maxLength"] = "10"
		hints["textTransform"] = "uppercase"
		hints["placeholder"] = "ABCDE1234F"
	case domain.CategoryContactEmail:
		hints["inputMode"] = "email"
		hints["autocomplete"] = "email"
	case domain.CategoryPersonalName:
		hints["spellcheck"] = "true"
		hints["autocomplete"] = "name"
	}

	// the control's own placeholder wins over the category default
	if field.Placeholder != "" {
		hints["placeholder"] = field.Placeholder
	}

	return hints
}
