package extraction

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/observability"
)

// generatedPrefix matches the framework-generated identifier segments the
// portal prepends to every control (ctl00_ContentPlaceHolder1_...)
var generatedPrefix = regexp.MustCompile(`(?i)^((ctl\d+|contentplaceholder\d+)_)+`)

// nonWord matches characters outside the identifier alphabet
var nonWord = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// whitespaceRun collapses label whitespace
var whitespaceRun = regexp.MustCompile(`\s+`)

// denyList holds substrings that mark a control as noise: anti-automation
// tokens and navigation/search widgets. Matched case-insensitively against
// identifier, name and class text.
var denyList = []string{
	"captcha",
	"csrf",
	"viewstate",
	"eventtarget",
	"eventargument",
	"eventvalidation",
	"honeypot",
	"search",
	"navbar",
	"sidebar",
	"menu",
	"breadcrumb",
}

// submitKeywords decide whether a button represents a submission action
var submitKeywords = []string{
	"submit",
	"validate",
	"verify",
	"continue",
	"next",
	"save",
	"generate otp",
}

// kindTable maps raw element kinds to the closed FieldKind set
var kindTable = map[string]domain.FieldKind{
	"text":       domain.KindText,
	"email":      domain.KindText,
	"tel":        domain.KindText,
	"number":     domain.KindText,
	"password":   domain.KindText,
	"textarea":   domain.KindText,
	"select":     domain.KindSelect,
	"select-one": domain.KindSelect,
	"radio":      domain.KindRadio,
	"checkbox":   domain.KindCheckbox,
	"button":     domain.KindButton,
	"submit":     domain.KindButton,
}

// Normalizer converts raw element snapshots into clean field records
type Normalizer struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewNormalizer creates a new normalizer. Metrics may be nil.
func NewNormalizer(logger *zap.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{logger: logger, metrics: metrics}
}

// Normalize filters, cleans and deduplicates the raw elements of one step.
// Output order matches input order minus filtered and duplicated entries;
// field indexes are assigned after filtering, starting at 0.
func (n *Normalizer) Normalize(raw []domain.RawElement, stepName string) []domain.NormalizedField {
	fields := make([]domain.NormalizedField, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, el := range raw {
		if reason, drop := n.shouldDrop(el); drop {
			n.countDrop(reason)
			continue
		}

		field := domain.NormalizedField{
			ID:          CleanIdentifier(el.Identifier),
			Name:        CleanIdentifier(el.Name),
			Kind:        mapKind(el.ElementKind),
			Label:       CleanLabel(el.AssociatedLabel),
			Placeholder: strings.TrimSpace(el.Placeholder),
			Required:    el.IsRequired,
			Options:     cleanOptions(el.Options),
			StepName:    stepName,
		}

		if field.Kind == domain.KindButton {
			if field.Label == "" {
				field.Label = CleanLabel(el.CurrentValue)
			}
			if !isSubmitAction(field.Label) {
				n.countDrop("non_submit_button")
				continue
			}
		}

		// a field must carry at least one machine handle; elements that
		// survived the filter on their label alone get one derived from it
		if field.ID == "" && field.Name == "" {
			field.ID = CleanIdentifier(field.Label)
		}

		dedupKey := field.ID + "\x00" + field.Name + "\x00" + string(field.Kind)
		if seen[dedupKey] {
			n.countDrop("duplicate")
			continue
		}
		seen[dedupKey] = true

		field.FieldIndex = len(fields)
		fields = append(fields, field)
	}

	n.logger.Debug("normalized step elements",
		zap.String("step", stepName),
		zap.Int("raw", len(raw)),
		zap.Int("fields", len(fields)),
	)
	if n.metrics != nil {
		n.metrics.FieldsNormalized.Add(float64(len(fields)))
	}

	return fields
}

// shouldDrop applies the noise filters, returning the drop reason
func (n *Normalizer) shouldDrop(el domain.RawElement) (string, bool) {
	if el.Hidden || strings.EqualFold(el.ElementKind, "hidden") {
		return "hidden", true
	}
	if el.Identifier == "" && el.Name == "" && el.AssociatedLabel == "" {
		return "no_identity", true
	}
	haystack := strings.ToLower(el.Identifier + " " + el.Name + " " + el.CSSClasses)
	for _, token := range denyList {
		if strings.Contains(haystack, token) {
			return "deny_list", true
		}
	}
	return "", false
}

func (n *Normalizer) countDrop(reason string) {
	if n.metrics != nil {
		n.metrics.FieldsDropped.WithLabelValues(reason).Inc()
	}
}

// CleanIdentifier strips generated-framework prefixes, replaces characters
// outside [a-zA-Z0-9_] with underscores and lower-cases the result. Cleaning
// is idempotent.
func CleanIdentifier(raw string) string {
	// normalize separators first so $-joined names lose their prefix too
	s := nonWord.ReplaceAllString(raw, "_")
	s = generatedPrefix.ReplaceAllString(s, "")
	return strings.ToLower(s)
}

// CleanLabel collapses whitespace runs, strips trailing required/colon
// markers and trims the label
func CleanLabel(raw string) string {
	s := whitespaceRun.ReplaceAllString(raw, " ")
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "*: ")
	return strings.TrimSpace(s)
}

// mapKind maps a raw element kind through the fixed table; unknown kinds
// default to text
func mapKind(raw string) domain.FieldKind {
	if kind, ok := kindTable[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return kind
	}
	return domain.KindText
}

// cleanOptions copies the option list with empty-value entries removed
func cleanOptions(opts []domain.Option) []domain.Option {
	if len(opts) == 0 {
		return nil
	}
	out := make([]domain.Option, 0, len(opts))
	for _, opt := range opts {
		if strings.TrimSpace(opt.Value) == "" {
			continue
		}
		out = append(out, domain.Option{
			Value: opt.Value,
			Text:  strings.TrimSpace(opt.Text),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// isSubmitAction reports whether a button label contains a submission keyword
func isSubmitAction(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range submitKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
