package validation

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ExtractionSchema describes the JSON object the language model must return.
// Field values are normalized afterwards, so types are kept permissive where
// models are known to vary (numbers as strings, explicit nulls).
const ExtractionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent":        {"type": ["string", "null"]},
    "medicine_name": {"type": ["string", "null"]},
    "quantity":      {"type": ["number", "string", "null"]},
    "delta":         {"type": ["number", "string", "null"]},
    "customer_id":   {"type": ["string", "number", "null"]}
  }
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks documents against a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles a JSON schema document.
func NewValidator(schema string) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

var (
	extractionOnce      sync.Once
	extractionValidator *Validator
	extractionErr       error
)

// Extraction returns the shared validator for ExtractionSchema.
func Extraction() (*Validator, error) {
	extractionOnce.Do(func() {
		extractionValidator, extractionErr = NewValidator(ExtractionSchema)
	})
	return extractionValidator, extractionErr
}

// Validate checks a decoded JSON document.
func (v *Validator) Validate(document interface{}) (*ValidationResult, error) {
	return v.validate(gojsonschema.NewGoLoader(document))
}

// ValidateJSON checks a raw JSON payload.
func (v *Validator) ValidateJSON(raw []byte) (*ValidationResult, error) {
	return v.validate(gojsonschema.NewBytesLoader(raw))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	return out, nil
}

// Summary joins the error descriptions for logging.
func (r *ValidationResult) Summary() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return out
}
