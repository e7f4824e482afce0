package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var (
	errNotObject = errors.New("expected a JSON object")
	errNotArray  = errors.New("expected a JSON array")
	errNotString = errors.New("expected a JSON string")

	errStringOrArray = errors.New("expected a JSON string or array")
)

// isAbsent reports whether a raw field was missing or explicitly null.
func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func expectObject(path string, data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return &ParseError{Kind: ParseMalformedJSON, Field: path, Err: errors.New("empty input")}
	}
	if trimmed[0] != '{' {
		if !json.Valid(trimmed) {
			return &ParseError{Kind: ParseMalformedJSON, Field: path, Err: errors.New("invalid JSON")}
		}
		return NewInvalidTypeError(path, errNotObject)
	}
	return nil
}

// decodeObject decodes a required JSON object field.
func decodeObject(path string, raw json.RawMessage) (map[string]any, error) {
	if isAbsent(raw) {
		return nil, NewMissingFieldError(path)
	}
	if err := expectObject(path, raw); err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, WrapDecodeError(path, err)
	}
	return out, nil
}

// NormalizeJSON returns v in the form a JSON decode produces: numbers become
// float64 and nested values become map[string]any or []any. v is returned
// unchanged if it cannot be encoded.
func NormalizeJSON[T any](v T) T {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

func indexField(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

func ptr[T any](v T) *T { return &v }
