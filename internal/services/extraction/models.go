package extraction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

// Step names recognized by the pipeline, with their fixed descriptions
const (
	StepAadhaar = "step1"
	StepPAN     = "step2"
)

// StepDescriptions maps recognized step names to human-readable descriptions
var StepDescriptions = map[string]string{
	StepAadhaar: "Aadhaar Number & OTP Verification",
	StepPAN:     "PAN Verification & Business Details",
}

// IsRecognizedStep reports whether the pipeline knows the step name
func IsRecognizedStep(step string) bool {
	_, ok := StepDescriptions[step]
	return ok
}

// Config contains configuration for an extraction run
type Config struct {
	// SchemaVersion is stamped into every generated schema, fixed per build
	SchemaVersion string
	// HintWorkers bounds the worker pool used for attribute hint lookups
	HintWorkers int
	// HintTimeout is the per-field deadline for one hint lookup
	HintTimeout time.Duration
}

// DefaultConfig returns default extraction configuration
func DefaultConfig() Config {
	return Config{
		SchemaVersion: "1.0.0",
		HintWorkers:   4,
		HintTimeout:   5 * time.Second,
	}
}

// AttributeHints is optional live-read validation metadata for one field,
// obtained from the page-rendering collaborator. Zero values mean the
// attribute was absent on the control.
type AttributeHints struct {
	Pattern   string
	MinLength int
	MaxLength int
}

// Empty reports whether no usable hint was found on the control
func (h AttributeHints) Empty() bool {
	return h.Pattern == "" && h.MinLength == 0 && h.MaxLength == 0
}

// HintProvider reads validation attributes from the live control identified
// by id or name. Implementations may fail or time out; inference treats any
// error as "no hints" and degrades to heuristics.
type HintProvider interface {
	AttributeHints(ctx context.Context, identifier, name string) (*AttributeHints, error)
}

// EvidenceProvider scans auxiliary client-side validation evidence, such as
// inline script-declared patterns associated with a field's identifier. Used
// only as a fallback when live attribute hints are entirely unavailable.
type EvidenceProvider interface {
	InlinePatterns(ctx context.Context, identifier string) ([]string, error)
}

// SnapshotProvider supplies already-structured element records for a step.
// The core never parses markup itself.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, step string) ([]domain.RawElement, error)
}

// Clock abstracts time for schema stamping
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// RunContext scopes per-run state to a single extraction pass. Hint lookups
// are memoized here rather than in any process-wide cache so runs stay
// independent and testable in isolation.
type RunContext struct {
	RunID uuid.UUID

	mu    sync.Mutex
	hints map[string]*AttributeHints
}

// NewRunContext creates run-scoped state with a fresh run ID
func NewRunContext() *RunContext {
	return &RunContext{
		RunID: uuid.New(),
		hints: make(map[string]*AttributeHints),
	}
}

// CachedHints returns memoized hints for a field key, if present
func (rc *RunContext) CachedHints(key string) (*AttributeHints, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	h, ok := rc.hints[key]
	return h, ok
}

// StoreHints memoizes a hint lookup result for the rest of the run. A nil
// value records a failed lookup so it is not retried.
func (rc *RunContext) StoreHints(key string, h *AttributeHints) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.hints[key] = h
}
