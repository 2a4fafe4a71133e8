// Package schema provides a small JSON Schema subset used to declare and
// validate tool parameters and normalized provider payloads.
//
// Schemas are built with the composable helpers (Object, String, Int, ...)
// and checked with Validate. Only the features the planner and adapters
// need are supported: primitive types, arrays, objects with required
// properties, enums, numeric ranges, string length, and patterns.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
)

// JSON represents a JSON Schema definition.
type JSON struct {
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Properties  map[string]JSON `json:"properties,omitempty"`
	Required    []string        `json:"required,omitempty"`
	Items       *JSON           `json:"items,omitempty"`
	Enum        []any           `json:"enum,omitempty"`
	Default     any             `json:"default,omitempty"`
	Minimum     *float64        `json:"minimum,omitempty"`
	Maximum     *float64        `json:"maximum,omitempty"`
	MinLength   *int            `json:"minLength,omitempty"`
	MaxLength   *int            `json:"maxLength,omitempty"`
	Pattern     string          `json:"pattern,omitempty"`
}

// Any creates a schema that accepts any value.
func Any() JSON {
	return JSON{}
}

// String creates a schema for a string value.
func String() JSON {
	return JSON{Type: "string"}
}

// StringWithDesc creates a string schema with a description.
func StringWithDesc(desc string) JSON {
	return JSON{Type: "string", Description: desc}
}

// Int creates a schema for an integer value.
func Int() JSON {
	return JSON{Type: "integer"}
}

// IntWithDesc creates an integer schema with a description.
func IntWithDesc(desc string) JSON {
	return JSON{Type: "integer", Description: desc}
}

// Number creates a schema for a numeric value.
func Number() JSON {
	return JSON{Type: "number"}
}

// Bool creates a schema for a boolean value.
func Bool() JSON {
	return JSON{Type: "boolean"}
}

// Array creates a schema for an array with the given item schema.
func Array(items JSON) JSON {
	return JSON{Type: "array", Items: &items}
}

// Object creates a schema for an object with the given properties and
// required property names.
func Object(properties map[string]JSON, required ...string) JSON {
	return JSON{Type: "object", Properties: properties, Required: required}
}

// Enum creates a schema restricted to the given values.
func Enum(values ...any) JSON {
	return JSON{Enum: values}
}

// WithDescription returns a copy of the schema with a description attached.
func (s JSON) WithDescription(desc string) JSON {
	s.Description = desc
	return s
}

// WithRange returns a copy of the schema with numeric bounds attached.
func (s JSON) WithRange(min, max float64) JSON {
	s.Minimum = &min
	s.Maximum = &max
	return s
}

// ToMap converts the schema to the generic map form expected by
// llm.ToolDef parameters.
func (s JSON) ToMap() map[string]any {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Validate validates the given value against this schema.
// It returns an error describing the first violation found.
func (s JSON) Validate(value any) error {
	if value == nil {
		if s.Type != "" {
			return fmt.Errorf("expected type %s, got nil", s.Type)
		}
		return nil
	}

	if len(s.Enum) > 0 {
		return s.validateEnum(value)
	}

	switch s.Type {
	case "":
		return nil
	case "string":
		return s.validateString(value)
	case "integer":
		return s.validateInteger(value)
	case "number":
		return s.validateNumber(value)
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
		return nil
	case "array":
		return s.validateArray(value)
	case "object":
		return s.validateObject(value)
	default:
		return fmt.Errorf("unknown schema type %q", s.Type)
	}
}

func (s JSON) validateEnum(value any) error {
	for _, allowed := range s.Enum {
		if reflect.DeepEqual(value, allowed) {
			return nil
		}
	}
	return fmt.Errorf("value %v is not one of the allowed values %v", value, s.Enum)
}

func (s JSON) validateString(value any) error {
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}

	if s.MinLength != nil && len(str) < *s.MinLength {
		return fmt.Errorf("string length %d is less than minimum %d", len(str), *s.MinLength)
	}
	if s.MaxLength != nil && len(str) > *s.MaxLength {
		return fmt.Errorf("string length %d is greater than maximum %d", len(str), *s.MaxLength)
	}

	if s.Pattern != "" {
		matched, err := regexp.MatchString(s.Pattern, str)
		if err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("string does not match pattern %s", s.Pattern)
		}
	}

	return nil
}

func (s JSON) validateInteger(value any) error {
	num, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("expected integer, got %T", value)
	}
	// JSON decoding turns all numbers into float64, so whole floats count.
	if num != float64(int64(num)) {
		return fmt.Errorf("expected integer, got float with decimal: %v", value)
	}
	return s.validateNumericConstraints(num)
}

func (s JSON) validateNumber(value any) error {
	num, ok := asFloat(value)
	if !ok {
		return fmt.Errorf("expected number, got %T", value)
	}
	return s.validateNumericConstraints(num)
}

func (s JSON) validateNumericConstraints(num float64) error {
	if s.Minimum != nil && num < *s.Minimum {
		return fmt.Errorf("value %v is less than minimum %v", num, *s.Minimum)
	}
	if s.Maximum != nil && num > *s.Maximum {
		return fmt.Errorf("value %v is greater than maximum %v", num, *s.Maximum)
	}
	return nil
}

func (s JSON) validateArray(value any) error {
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Errorf("expected array, got %T", value)
	}

	if s.Items != nil {
		for i := 0; i < v.Len(); i++ {
			if err := s.Items.Validate(v.Index(i).Interface()); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	}

	return nil
}

func (s JSON) validateObject(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}

	for _, req := range s.Required {
		if _, present := m[req]; !present {
			return fmt.Errorf("missing required property %q", req)
		}
	}

	for key, val := range m {
		propSchema, declared := s.Properties[key]
		if !declared {
			// Undeclared properties pass through: providers attach
			// fields the schema does not care about.
			continue
		}
		if err := propSchema.Validate(val); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
	}

	return nil
}

func asFloat(value any) (float64, bool) {
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	default:
		return 0, false
	}
}
