// Package schemacheck validates generated schema documents against the
// project's embedded JSON Schema, catching structural regressions before a
// document ever reaches a writer.
package schemacheck

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Himanshu-Kasyap/openbiz-sub001/internal/domain"
)

//go:embed schema/formschema.json
var schemaFS embed.FS

const schemaPath = "schema/formschema.json"

// Validator validates FormSchema documents
type Validator struct {
	compiled *jsonschema.Schema
}

// NewValidator compiles the embedded JSON Schema
func NewValidator() (*Validator, error) {
	data, err := schemaFS.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("reading embedded schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaPath, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}

	compiled, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	return &Validator{compiled: compiled}, nil
}

// Validate checks a schema document for structural validity
func (v *Validator) Validate(schema *domain.FormSchema) error {
	data, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("marshaling schema: %w", err)
	}
	return v.ValidateJSON(data)
}

// ValidateJSON checks a serialized schema document for structural validity
func (v *Validator) ValidateJSON(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing schema document: %w", err)
	}
	if err := v.compiled.Validate(doc); err != nil {
		return domain.SchemaInvalidError(err)
	}
	return nil
}
