// Package validation checks untyped payloads against a JSON schema and
// reports violations per field.
package validation

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// JSONSchema defines the structure for input/output schemas
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties *bool               `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Minimum     *float64      `json:"minimum,omitempty"`
	Maximum     *float64      `json:"maximum,omitempty"`
	Enum        []interface{} `json:"enum,omitempty"`
}

// Violation codes.
const (
	CodeRequired     = "REQUIRED_FIELD_MISSING"
	CodeInvalidType  = "INVALID_TYPE"
	CodeInvalidEnum  = "INVALID_ENUM_VALUE"
	CodeMinViolation = "MINIMUM_VIOLATION"
	CodeMaxViolation = "MAXIMUM_VIOLATION"
	CodeExtraField   = "EXTRA_FIELD"
	CodeOther        = "SCHEMA_VIOLATION"
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

// Validator holds a compiled schema. It is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
	order  map[string]int
}

// NewValidator compiles schema. Properties are reported in the order given by
// fieldOrder; fields not listed sort after it alphabetically.
func NewValidator(schema JSONSchema, fieldOrder []string) (*Validator, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	order := make(map[string]int, len(fieldOrder))
	for i, f := range fieldOrder {
		order[f] = i
	}
	return &Validator{schema: compiled, order: order}, nil
}

// MustNewValidator is NewValidator for package-level schemas.
func MustNewValidator(schema JSONSchema, fieldOrder []string) *Validator {
	v, err := NewValidator(schema, fieldOrder)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks input. An error is returned only when input cannot be
// serialised for validation at all (NaN, channels, ...).
func (v *Validator) Validate(input map[string]interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validate input: %w", err)
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, toValidationError(re))
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return v.less(errs[i].Field, errs[j].Field)
	})

	return &ValidationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}, nil
}

func (v *Validator) less(a, b string) bool {
	ia, okA := v.order[a]
	ib, okB := v.order[b]
	switch {
	case okA && okB:
		return ia < ib
	case okA:
		return true
	case okB:
		return false
	default:
		return a < b
	}
}

func toValidationError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	details := re.Details()

	switch re.Type() {
	case "required":
		if prop, ok := details["property"].(string); ok {
			field = prop
		}
		return ValidationError{Field: field, Message: "required attribute is missing", Code: CodeRequired}
	case "invalid_type":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("expected %v, got %v", details["expected"], details["given"]),
			Code:    CodeInvalidType,
		}
	case "enum":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be one of %v", details["allowed"]),
			Code:    CodeInvalidEnum,
		}
	case "number_gte", "number_gt":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be >= %v", details["min"]),
			Code:    CodeMinViolation,
		}
	case "number_lte", "number_lt":
		return ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be <= %v", details["max"]),
			Code:    CodeMaxViolation,
		}
	case "additional_property_not_allowed":
		if prop, ok := details["property"].(string); ok {
			field = prop
		}
		return ValidationError{Field: field, Message: "field not allowed in schema", Code: CodeExtraField}
	default:
		return ValidationError{Field: field, Message: re.Description(), Code: CodeOther}
	}
}

// Float64 returns a pointer to f, for Minimum/Maximum.
func Float64(f float64) *float64 {
	return &f
}
