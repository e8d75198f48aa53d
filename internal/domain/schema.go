package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// SchemaMetadata describes the steps and field counts of a schema
type SchemaMetadata struct {
	TotalSteps       int               `json:"total_steps"`
	TotalFields      int               `json:"total_fields"`
	StepFieldCounts  map[string]int    `json:"step_field_counts"`
	StepDescriptions map[string]string `json:"step_descriptions"`
}

// SchemaStatistics aggregates counts across all steps combined
type SchemaStatistics struct {
	TotalFields      int                   `json:"total_fields"`
	FieldsByKind     map[FieldKind]int     `json:"fields_by_kind"`
	FieldsByCategory map[FieldCategory]int `json:"fields_by_category"`
	RulesByType      map[RuleType]int      `json:"rules_by_type"`
}

// FormSchema is the final versioned, step-organized, statistics-annotated
// output document. Assembled once per run and immutable afterward.
type FormSchema struct {
	Version               string                           `json:"version"`
	GeneratedAt           time.Time                        `json:"generated_at"`
	SourceIdentifier      string                           `json:"source_identifier"`
	Metadata              SchemaMetadata                   `json:"metadata"`
	Steps                 map[string][]NormalizedField     `json:"steps"`
	GlobalValidationRules map[FieldCategory]ValidationRule `json:"global_validation_rules"`
	FieldCategories       map[string][]string              `json:"field_categories"`
	Statistics            SchemaStatistics                 `json:"statistics"`
}

// SchemaSnapshot is one persisted extraction result, kept for history and
// drift comparison across runs
type SchemaSnapshot struct {
	ID          uuid.UUID   `json:"id"`
	Source      string      `json:"source"`
	Version     string      `json:"version"`
	DOMHash     string      `json:"dom_hash"`
	FieldsFound int         `json:"fields_found"`
	Schema      *FormSchema `json:"schema"`
	CreatedAt   time.Time   `json:"created_at"`
}

// HashDOM creates a short hash of page content for change detection
func HashDOM(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:8])
}
