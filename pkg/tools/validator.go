package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Value   any    `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ToLLMMessage renders the error so the model can fix its next call.
func (e ValidationError) ToLLMMessage() string {
	var sb strings.Builder
	if e.Field != "" {
		sb.WriteString("Field '")
		sb.WriteString(e.Field)
		sb.WriteString("': ")
	}
	sb.WriteString(e.Message)
	if e.Value != nil {
		sb.WriteString(" Got value: ")
		sb.WriteString(fmt.Sprintf("%v", e.Value))
	}
	return sb.String()
}

type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Error()
	}
	return strings.Join(messages, "; ")
}

func (errs ValidationErrors) ToLLMMessage() string {
	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.ToLLMMessage()
	}
	return strings.Join(messages, "\n")
}

// Validator checks model supplied arguments against a tool's schema. Scalars are
// coerced where the intent is unambiguous (e.g. "3" for an integer).
type Validator struct {
	rejectUnknown bool
}

func NewValidator(opts ...func(*Validator)) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func withRejectUnknownFields(reject bool) func(*Validator) {
	return func(v *Validator) {
		v.rejectUnknown = reject
	}
}

func (v *Validator) Validate(schema ParameterSchema, params map[string]any) (map[string]any, ValidationErrors) {
	var errors ValidationErrors
	result := make(map[string]any, len(params))

	for _, fieldName := range schema.Required {
		if _, exists := params[fieldName]; !exists {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
				Code:    "required",
			})
		}
	}

	for key, value := range params {
		propSchema, hasSchema := schema.Properties[key]
		if !hasSchema {
			if v.rejectUnknown {
				errors = append(errors, ValidationError{
					Field:   key,
					Message: "unknown field not allowed by schema",
					Code:    "unknown_field",
					Value:   value,
				})
			}
			result[key] = value
			continue
		}

		validated, err := validateProperty(key, value, propSchema)
		if err != nil {
			errors = append(errors, *err)
		}
		result[key] = validated
	}

	return result, errors
}

func validateProperty(path string, value any, schema PropertySchema) (any, *ValidationError) {
	mismatch := func(want string) *ValidationError {
		return &ValidationError{
			Field:   path,
			Message: fmt.Sprintf("expected %s, got %T", want, value),
			Code:    "type_mismatch",
			Value:   value,
		}
	}

	switch schema.Type {
	case "string":
		var str string
		switch val := value.(type) {
		case string:
			str = val
		case nil:
			str = ""
		case bool, float64, int, int64:
			str = fmt.Sprintf("%v", val)
		default:
			return value, mismatch("string")
		}
		if len(schema.Enum) > 0 && !contains(schema.Enum, str) {
			return value, &ValidationError{
				Field:   path,
				Message: fmt.Sprintf("value must be one of: %s", strings.Join(schema.Enum, ", ")),
				Code:    "enum_violation",
				Value:   str,
			}
		}
		return str, nil

	case "integer":
		switch val := value.(type) {
		case int:
			return int64(val), nil
		case int64:
			return val, nil
		case float64:
			if val == math.Trunc(val) && !math.IsInf(val, 0) {
				return int64(val), nil
			}
		case string:
			if parsed, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64); err == nil {
				return parsed, nil
			}
		}
		return value, mismatch("integer")

	case "number":
		switch val := value.(type) {
		case float64:
			return val, nil
		case int:
			return float64(val), nil
		case int64:
			return float64(val), nil
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return parsed, nil
			}
		}
		return value, mismatch("number")

	case "boolean":
		switch val := value.(type) {
		case bool:
			return val, nil
		case string:
			if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
				return parsed, nil
			}
		}
		return value, mismatch("boolean")
	}

	return value, nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
