package extraction

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/observability"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/patterns"
)

// RuleInferencer derives validation rules for normalized fields from a
// fixed-priority cascade: requiredness, then explicit attribute hints, then
// the category's canonical pattern. Hint lookups degrade to heuristics
// on any failure; no per-field error ever aborts a batch.
type RuleInferencer struct {
	logger   *zap.Logger
	library  *patterns.Library
	hints    HintProvider     // optional
	evidence EvidenceProvider // optional
	metrics  *observability.Metrics
	config   Config
}

// NewRuleInferencer creates a rule inferencer. Hint and evidence providers
// and metrics may be nil; inference then runs on heuristics alone.
func NewRuleInferencer(logger *zap.Logger, library *patterns.Library, hints HintProvider, evidence EvidenceProvider, metrics *observability.Metrics, config Config) *RuleInferencer {
	if config.HintWorkers <= 0 {
		config.HintWorkers = DefaultConfig().HintWorkers
	}
	if config.HintTimeout <= 0 {
		config.HintTimeout = DefaultConfig().HintTimeout
	}
	return &RuleInferencer{
		logger:   logger,
		library:  library,
		hints:    hints,
		evidence: evidence,
		metrics:  metrics,
		config:   config,
	}
}

// InferAll annotates every field of a step with its category and validation
// rules. Hint lookups run through a bounded worker pool since they may block
// on the page-rendering collaborator; everything else is CPU-only and runs
// inline. Fields are independent, so workers write only to their own index.
func (ri *RuleInferencer) InferAll(ctx context.Context, run *RunContext, fields []domain.NormalizedField) []domain.NormalizedField {
	if len(fields) == 0 {
		return fields
	}

	out := make([]domain.NormalizedField, len(fields))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < ri.config.HintWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = ri.inferField(ctx, run, fields[i])
			}
		}()
	}

	dispatched := make([]bool, len(fields))
	for i := range fields {
		select {
		case <-ctx.Done():
			// abandon remaining lookups; already-dispatched fields finish
		case jobs <- i:
			dispatched[i] = true
			continue
		}
		break
	}
	close(jobs)
	wg.Wait()

	// fields abandoned mid-run still get heuristic-only inference
	for i := range fields {
		if !dispatched[i] {
			out[i] = ri.fallback(fields[i])
		}
	}

	return out
}

// inferField runs the full cascade for one field, recovering from any
// unexpected failure at the field boundary
func (ri *RuleInferencer) inferField(ctx context.Context, run *RunContext, field domain.NormalizedField) (result domain.NormalizedField) {
	defer func() {
		if r := recover(); r != nil {
			ri.logger.Warn("rule inference recovered",
				zap.String("field", field.Ref()),
				zap.Any("panic", r),
			)
			if ri.metrics != nil {
				ri.metrics.InferenceFallbacks.Inc()
			}
			result = ri.fallback(field)
		}
	}()

	hints := ri.lookupHints(ctx, run, field)

	category, rules := ri.InferRules(field, hints, func() []string {
		return ri.lookupEvidence(ctx, field)
	})

	field.FieldCategory = category
	field.ValidationRules = rules
	ri.countRules(rules)
	return field
}

// InferRules runs the rule cascade for one field and returns its category
// and deduplicated rule set. The evidence callback is consulted only when
// hints are entirely unavailable (stage 4); it may be nil.
//
// Later stages never remove rules added by earlier ones, and a pattern rule
// is added only when no rule with the same (type, value) exists yet.
func (ri *RuleInferencer) InferRules(field domain.NormalizedField, hints *AttributeHints, evidence func() []string) (domain.FieldCategory, []domain.ValidationRule) {
	var rules []domain.ValidationRule

	// stage 1: requiredness
	if field.Required {
		rules = append(rules, requiredRule(field))
	}

	// stage 2: explicit attribute rules
	if hints != nil {
		if hints.Pattern != "" {
			rules = append(rules, domain.ValidationRule{
				Type:    domain.RulePattern,
				Value:   hints.Pattern,
				Message: fmt.Sprintf("%s format is invalid", labelOrName(field)),
			})
		}
		if hints.MinLength > 0 || hints.MaxLength > 0 {
			rules = append(rules, lengthRule(hints.MinLength, hints.MaxLength))
		}
	}

	// stage 3: semantic category canonical rule
	category := patterns.Classify(field.ID, field.Name, field.Label)
	if category != domain.CategoryGeneral && !domain.HasPatternRule(rules) {
		if rule, ok := ri.library.PatternRule(category); ok {
			rules = append(rules, rule)
		}
	}

	// stage 4: client-evidence scan, only when live hints were unavailable
	if hints == nil && evidence != nil && !domain.HasPatternRule(rules) {
		for _, pattern := range evidence() {
			if pattern == "" {
				continue
			}
			rules = append(rules, domain.ValidationRule{
				Type:    domain.RulePattern,
				Value:   pattern,
				Message: fmt.Sprintf("%s format is invalid", labelOrName(field)),
			})
			break
		}
	}

	return category, domain.DedupRules(rules)
}

// fallback reproduces the minimal rule set without touching any collaborator:
// requiredness plus the category's canonical pattern
func (ri *RuleInferencer) fallback(field domain.NormalizedField) domain.NormalizedField {
	category, rules := ri.InferRules(field, nil, nil)
	field.FieldCategory = category
	field.ValidationRules = rules
	ri.countRules(rules)
	return field
}

// lookupHints obtains attribute hints with a per-field timeout, memoizing
// the result (including failure) in the run context. Any error yields nil,
// which disables stage 2 for the field.
func (ri *RuleInferencer) lookupHints(ctx context.Context, run *RunContext, field domain.NormalizedField) *AttributeHints {
	if ri.hints == nil {
		return nil
	}

	key := field.ID + "\x00" + field.Name
	if run != nil {
		if cached, ok := run.CachedHints(key); ok {
			return cached
		}
	}

	hintCtx, cancel := context.WithTimeout(ctx, ri.config.HintTimeout)
	defer cancel()

	hints, err := ri.hints.AttributeHints(hintCtx, field.ID, field.Name)
	if err != nil {
		ri.logger.Debug("attribute hint lookup failed",
			zap.String("field", field.Ref()),
			zap.Error(err),
		)
		if ri.metrics != nil {
			ri.metrics.HintLookups.WithLabelValues("error").Inc()
		}
		hints = nil
	} else if ri.metrics != nil {
		if hints == nil || hints.Empty() {
			ri.metrics.HintLookups.WithLabelValues("miss").Inc()
		} else {
			ri.metrics.HintLookups.WithLabelValues("hit").Inc()
		}
	}
	if hints != nil && hints.Empty() {
		hints = nil
	}

	if run != nil {
		run.StoreHints(key, hints)
	}
	return hints
}

// lookupEvidence scans auxiliary client-side validation evidence for the
// field; errors simply yield no evidence
func (ri *RuleInferencer) lookupEvidence(ctx context.Context, field domain.NormalizedField) []string {
	if ri.evidence == nil {
		return nil
	}
	identifier := field.ID
	if identifier == "" {
		identifier = field.Name
	}
	found, err := ri.evidence.InlinePatterns(ctx, identifier)
	if err != nil {
		ri.logger.Debug("evidence scan failed",
			zap.String("field", field.Ref()),
			zap.Error(err),
		)
		return nil
	}
	return found
}

func (ri *RuleInferencer) countRules(rules []domain.ValidationRule) {
	if ri.metrics == nil {
		return
	}
	for _, r := range rules {
		ri.metrics.RulesEmitted.WithLabelValues(string(r.Type)).Inc()
	}
}

// requiredRule builds the requiredness rule with its message
func requiredRule(field domain.NormalizedField) domain.ValidationRule {
	return domain.ValidationRule{
		Type:    domain.RuleRequired,
		Value:   true,
		Message: fmt.Sprintf("%s is required", labelOrName(field)),
	}
}

// lengthRule builds a single length rule covering the present bounds
func lengthRule(min, max int) domain.ValidationRule {
	var message string
	switch {
	case min > 0 && max > 0 && min == max:
		message = fmt.Sprintf("Must be exactly %d characters", min)
	case min > 0 && max > 0:
		message = fmt.Sprintf("Must be between %d and %d characters", min, max)
	case min > 0:
		message = fmt.Sprintf("Must be at least %d characters", min)
	case max > 0:
		message = fmt.Sprintf("Must be at most %d characters", max)
	default:
		message = "Invalid length"
	}
	return domain.ValidationRule{
		Type:    domain.RuleLength,
		Value:   domain.LengthBounds{Min: min, Max: max},
		Message: message,
	}
}

// labelOrName picks the best human-readable handle for rule messages
func labelOrName(field domain.NormalizedField) string {
	switch {
	case field.Label != "":
		return field.Label
	case field.Name != "":
		return field.Name
	default:
		return field.ID
	}
}
