package util

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// ValidationError represents a structurally well-formed value that violates a
// semantic rule (a missing required payload field, a tool message without a
// call id, ...).
type ValidationError struct {
	Field   string `json:"field"`           // Field that failed validation
	Value   any    `json:"value,omitempty"` // Value that was provided
	Message string `json:"message"`         // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives a tool parameter schema from the exported fields of a
// struct (or pointer to struct). Fields tagged omitempty or of pointer type
// are optional; a `description` tag is copied into the property.
func CreateSchema(structType any) map[string]any {
	t := reflect.TypeOf(structType)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return emptyObjectSchema()
	}

	schema := emptyObjectSchema()
	properties := schema["properties"].(map[string]any)
	var required []string

	for i := range t.NumField() {
		field := t.Field(i)
		name, optional, ok := schemaField(field)
		if !ok {
			continue
		}

		prop := map[string]any{"type": jsonSchemaType(field.Type)}
		if description := field.Tag.Get("description"); description != "" {
			prop["description"] = description
		}
		properties[name] = prop

		if !optional {
			required = append(required, name)
		}
	}

	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// schemaField resolves the property name of field from its json tag and
// reports whether it is optional. ok is false for skipped fields.
func schemaField(field reflect.StructField) (name string, optional, ok bool) {
	if !field.IsExported() {
		return "", false, false
	}
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, opt := range strings.Split(opts, ",") {
		if strings.TrimSpace(opt) == "omitempty" {
			optional = true
		}
	}
	return name, optional || field.Type.Kind() == reflect.Ptr, true
}

// ValidateParameters validates decoded JSON parameters against a JSON schema
// subset: required fields, property types and string enums. Unknown fields
// are allowed. Errors are reported in a deterministic (sorted) field order.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, fieldName := range requiredFields(schema) {
		if v, exists := params[fieldName]; !exists || v == nil {
			return &ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
			}
		}
	}

	properties, _ := schema["properties"].(map[string]any)

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, fieldName := range names {
		value := params[fieldName]
		propSchema, exists := properties[fieldName]
		if !exists {
			continue // Allow extra fields
		}

		propMap, ok := propSchema.(map[string]any)
		if !ok {
			continue
		}

		if !isValidType(value, propMap["type"]) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %s", describeType(propMap["type"]), jsonTypeOf(value)),
			}
		}

		if enum, ok := propMap["enum"].([]any); ok && value != nil && !inEnum(value, enum) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("value %v is not one of %v", value, enum),
			}
		}
	}

	return nil
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// requiredFields normalises the "required" entry which is []string when built
// in Go and []any when decoded from JSON or YAML.
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// jsonSchemaType maps a Go type to its JSON schema type name.
func jsonSchemaType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Ptr:
		return jsonSchemaType(t.Elem())
	default:
		return "string"
	}
}

// isValidType checks a value against a schema "type" entry, which may be a
// single type name or a list of alternatives (e.g. [string, array]).
func isValidType(value any, expected any) bool {
	switch exp := expected.(type) {
	case string:
		return isValidSingleType(value, exp)
	case []any:
		for _, alt := range exp {
			if s, ok := alt.(string); ok && isValidSingleType(value, s) {
				return true
			}
		}
		return len(exp) == 0
	case []string:
		for _, alt := range exp {
			if isValidSingleType(value, alt) {
				return true
			}
		}
		return len(exp) == 0
	default:
		return true
	}
}

func isValidSingleType(value any, expectedType string) bool {
	if value == nil {
		return expectedType == "null"
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling often produces float64 for numbers
			return v == float64(int64(v))
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	default:
		return true // Unknown types are assumed valid
	}
}

func inEnum(value any, enum []any) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}

func describeType(expected any) string {
	switch exp := expected.(type) {
	case string:
		return exp
	case []any:
		parts := make([]string, 0, len(exp))
		for _, e := range exp {
			parts = append(parts, fmt.Sprint(e))
		}
		return strings.Join(parts, "|")
	case []string:
		return strings.Join(exp, "|")
	default:
		return "any"
	}
}

func jsonTypeOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}
