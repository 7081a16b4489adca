// Package jsonx pulls JSON objects out of free-form model output.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatError reports model output that does not contain a usable JSON
// object.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response format: %s: %v", e.Reason, e.Err)
	}
	return "invalid response format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ExtractJSONObject finds the first balanced {...} span in raw that is a
// valid JSON object. Braces inside JSON strings are ignored, so prose and
// code fences around the object are tolerated but a truncated object is not.
func ExtractJSONObject(raw string) (json.RawMessage, error) {
	var lastErr error
	found := false

	for start := strings.IndexByte(raw, '{'); start >= 0; {
		end := matchBrace(raw, start)
		if end < 0 {
			break
		}
		found = true

		candidate := raw[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
		lastErr = json.Unmarshal([]byte(candidate), new(map[string]any))

		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	if !found {
		return nil, &FormatError{Reason: "no JSON object found"}
	}
	return nil, &FormatError{Reason: "malformed JSON object", Err: lastErr}
}

// DecodeJSON extracts the first JSON object in raw and decodes it into v.
func DecodeJSON(raw string, v any) error {
	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return &FormatError{Reason: "unexpected JSON shape", Err: err}
	}
	return nil
}

// matchBrace returns the index of the brace closing the one at start, or -1
// when the input ends first.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
