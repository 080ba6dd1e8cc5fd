// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/pkg/registry"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator checks job variables and request bodies against the input
// schemas declared in the activity registry.
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewValidator compiles every input schema in reg. Activities without an
// input schema accept any input.
func NewValidator(reg *registry.ActivityRegistry) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(reg.Activities))}
	for _, a := range reg.Activities {
		if len(a.InputSchema) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(a.InputSchema))
		if err != nil {
			return nil, fmt.Errorf("compile input schema for %s: %w", a.TaskType, err)
		}
		v.schemas[a.TaskType] = schema
	}
	return v, nil
}

// ValidateInput validates input, a decoded JSON value or a Go struct with
// json tags, against the schema for taskType.
func (v *Validator) ValidateInput(taskType string, input interface{}) *ValidationResult {
	schema, ok := v.schemas[taskType]
	if !ok {
		return &ValidationResult{Valid: true}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_DOCUMENT",
		}}}
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return &ValidationResult{Errors: errs}
}

// Validate is ValidateInput reduced to a VALIDATION_FAILED error.
func (v *Validator) Validate(taskType string, input interface{}) error {
	result := v.ValidateInput(taskType, input)
	if result.Valid {
		return nil
	}
	return apperrors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
