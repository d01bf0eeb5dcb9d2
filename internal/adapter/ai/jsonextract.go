package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractEvaluationJSON recovers a JSON object from an LLM response. It tries
// a strict parse first, then a fenced ```json block, then a brace-balanced
// scan over the raw text. ok is false when no parseable object exists.
func ExtractEvaluationJSON(text string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(text)

	if obj, ok := tryParse(trimmed); ok {
		return obj, true
	}

	if m := fencedJSONRe.FindStringSubmatch(trimmed); m != nil {
		if obj, ok := tryParse(m[1]); ok {
			return obj, true
		}
	}

	if candidate := balancedObject(trimmed); candidate != "" {
		if obj, ok := tryParse(candidate); ok {
			return obj, true
		}
	}

	return nil, false
}

func tryParse(s string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	return obj, true
}

// balancedObject returns the first brace-balanced {...} span in s, skipping
// braces inside string literals.
func balancedObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
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
				return s[start : i+1]
			}
		}
	}
	return ""
}
