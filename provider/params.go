package provider

import (
	"fmt"
	"strconv"
)

// Params wraps a validated tool parameter map with typed accessors.
// Schema validation runs before handlers, so accessors only need to
// bridge JSON's numeric representation, not reject bad shapes.
type Params map[string]any

// String returns the string value for key, or fallback when absent.
func (p Params) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// Int returns the integer value for key, or fallback when absent.
// JSON-decoded numbers arrive as float64.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Bool returns the boolean value for key, or fallback when absent.
func (p Params) Bool(key string, fallback bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return fallback
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// ID returns the value for key rendered as a provider identifier
// string, accepting both numeric and string identifiers.
func (p Params) ID(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
