package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractStructured decodes the outermost {...} span found in raw model text into T.
// It first tries the greedy span from the first '{' to the last '}', then the
// balanced span starting at the first '{' (prose with stray braces after the payload).
// Anything else fails with ErrMalformedResponse.
func ExtractStructured[T any](raw string) (T, error) {
	var out T
	s := stripFences(raw)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return out, fmt.Errorf("%w: no JSON object in response", ErrMalformedResponse)
	}

	greedyErr := json.Unmarshal([]byte(s[start:end+1]), &out)
	if greedyErr == nil {
		return out, nil
	}

	if span := ExtractJSON([]byte(s[start:])); span != nil {
		var balanced T
		if err := json.Unmarshal(span, &balanced); err == nil {
			return balanced, nil
		}
	}
	return out, fmt.Errorf("%w: %w", ErrMalformedResponse, greedyErr)
}

// ExtractJSON returns the balanced JSON object at the start of b, or nil.
// Braces inside string literals are ignored.
func ExtractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
