package features

import (
	"encoding/json"
	"fmt"
	"math"

	"credit-scoring/internal/common/validation"
)

// maxExactInt is the largest integer a float64 holds without loss.
const maxExactInt = 1 << 53

// Schema is the JSON schema every raw payload is checked against.
func Schema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: append([]string(nil), CanonicalOrder...),
		Properties: map[string]validation.Property{
			IncomeLevel:         {Type: "number", Description: "annual income proxy", Minimum: validation.Float64(0)},
			DebtLevel:           {Type: "number", Minimum: validation.Float64(0)},
			CreditUtilization:   {Type: "number", Minimum: validation.Float64(0), Maximum: validation.Float64(1)},
			CreditHistoryLength: {Type: "integer", Description: "months", Minimum: validation.Float64(0)},
			NumCreditAccounts:   {Type: "integer", Minimum: validation.Float64(0)},
			NumCreditInquiries:  {Type: "integer", Minimum: validation.Float64(0)},
			Age:                 {Type: "integer", Minimum: validation.Float64(MinAge), Maximum: validation.Float64(MaxAge)},
			PaymentHistory:      {Type: "string", Enum: enum(PaymentHistoryValues)},
			EmploymentStatus:    {Type: "string", Enum: enum(EmploymentStatusValues)},
			EducationLevel:      {Type: "string", Enum: enum(EducationLevelValues)},
		},
	}
}

func enum(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// Normalizer validates raw payloads and builds FeatureRecords. It holds only
// the compiled schema and is safe for concurrent use.
type Normalizer struct {
	validator *validation.Validator
}

// NewNormalizer compiles the feature schema.
func NewNormalizer() (*Normalizer, error) {
	v, err := validation.NewValidator(Schema(), CanonicalOrder)
	if err != nil {
		return nil, fmt.Errorf("feature schema: %w", err)
	}
	return &Normalizer{validator: v}, nil
}

var defaultNormalizer = &Normalizer{validator: validation.MustNewValidator(Schema(), CanonicalOrder)}

// Normalize validates raw with the package normalizer.
func Normalize(raw map[string]interface{}) (FeatureRecord, error) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize converts raw into a FeatureRecord. Unknown attributes are
// ignored. Any violation yields a *ValidationError and a zero record.
func (n *Normalizer) Normalize(raw map[string]interface{}) (FeatureRecord, error) {
	// only known attributes reach the schema, so extras can never fail serialisation
	known := make(map[string]interface{}, len(CanonicalOrder))
	var pre []Violation
	for _, name := range CanonicalOrder {
		v, ok := raw[name]
		if !ok {
			continue
		}
		if !isJSONValue(v) {
			pre = append(pre, Violation{Field: name, Reason: ReasonWrongType, Message: fmt.Sprintf("unsupported value of type %T", v)})
			continue
		}
		if f, isFloat := asFloat(v); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
			pre = append(pre, Violation{Field: name, Reason: ReasonWrongType, Message: "expected a finite number"})
			continue
		}
		known[name] = v
	}

	result, err := n.validator.Validate(known)
	if err != nil {
		return FeatureRecord{}, newValidationError([]Violation{{
			Field:   "payload",
			Reason:  ReasonWrongType,
			Message: err.Error(),
		}})
	}

	violations := mergeViolations(pre, result.Errors)
	if len(violations) > 0 {
		return FeatureRecord{}, newValidationError(violations)
	}

	return n.build(known)
}

// mergeViolations keeps one violation per attribute, in canonical order.
func mergeViolations(pre []Violation, schemaErrs []validation.ValidationError) []Violation {
	byField := make(map[string]Violation, len(pre)+len(schemaErrs))
	for _, v := range pre {
		byField[v.Field] = v
	}
	for _, e := range schemaErrs {
		if _, seen := byField[e.Field]; seen {
			continue
		}
		byField[e.Field] = Violation{Field: e.Field, Reason: reasonFor(e.Code), Message: e.Message}
	}

	out := make([]Violation, 0, len(byField))
	for _, name := range CanonicalOrder {
		if v, ok := byField[name]; ok {
			out = append(out, v)
			delete(byField, name)
		}
	}
	// schema errors not tied to an attribute
	for _, v := range byField {
		out = append(out, v)
	}
	return out
}

func reasonFor(code string) Reason {
	switch code {
	case validation.CodeRequired:
		return ReasonMissing
	case validation.CodeInvalidEnum:
		return ReasonInvalidCategory
	case validation.CodeMinViolation, validation.CodeMaxViolation:
		return ReasonOutOfDomain
	default:
		return ReasonWrongType
	}
}

// build extracts typed values from a payload that already passed the schema.
func (n *Normalizer) build(values map[string]interface{}) (FeatureRecord, error) {
	var (
		rec        FeatureRecord
		violations []Violation
	)

	number := func(name string) float64 {
		f, ok := asFloat(values[name])
		if !ok {
			violations = append(violations, Violation{Field: name, Reason: ReasonWrongType, Message: "expected a number"})
		}
		return f
	}
	integer := func(name string) int {
		f, ok := asFloat(values[name])
		switch {
		case !ok:
			violations = append(violations, Violation{Field: name, Reason: ReasonWrongType, Message: "expected an integer"})
			return 0
		case f != math.Trunc(f):
			violations = append(violations, Violation{Field: name, Reason: ReasonWrongType, Message: "expected a whole number"})
			return 0
		case math.Abs(f) > maxExactInt:
			violations = append(violations, Violation{Field: name, Reason: ReasonOutOfDomain, Message: "value is too large"})
			return 0
		}
		return int(f)
	}
	category := func(name string) string {
		s, _ := values[name].(string)
		return s
	}

	rec.IncomeLevel = number(IncomeLevel)
	rec.DebtLevel = number(DebtLevel)
	rec.CreditUtilization = number(CreditUtilization)
	rec.CreditHistoryLength = integer(CreditHistoryLength)
	rec.NumCreditAccounts = integer(NumCreditAccounts)
	rec.NumCreditInquiries = integer(NumCreditInquiries)
	rec.Age = integer(Age)
	rec.PaymentHistory = category(PaymentHistory)
	rec.EmploymentStatus = category(EmploymentStatus)
	rec.EducationLevel = category(EducationLevel)

	if len(violations) > 0 {
		return FeatureRecord{}, newValidationError(violations)
	}
	return rec, nil
}

// isJSONValue reports whether v is something a decoded payload can carry.
func isJSONValue(v interface{}) bool {
	switch v.(type) {
	case nil, bool, string, map[string]interface{}, []interface{}:
		return true
	}
	_, ok := asFloat(v)
	return ok
}

// asFloat accepts the numeric types a decoded payload can carry.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
