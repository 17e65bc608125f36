package insight

import (
	"encoding/json"
	"strings"
)

// ParseError means the model output held no usable JSON object
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "parse error: " + e.Reason + ": " + e.Err.Error()
	}
	return "parse error: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ExtractJSONObject returns the first balanced {...} span of text that
// decodes as a JSON object. Braces inside JSON strings are ignored. When
// no balanced span decodes it tries the widest span from the first '{'
// to the last '}', and otherwise returns the first candidate found so the
// caller can report why it is invalid.
func ExtractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", &ParseError{Reason: "no JSON object found in response"}
	}

	firstBalanced := ""
	for s := start; s >= 0; {
		if end := balancedEnd(text, s); end > 0 {
			span := text[s:end]
			if isObject(span) {
				return span, nil
			}
			if firstBalanced == "" {
				firstBalanced = span
			}
		}
		next := strings.IndexByte(text[s+1:], '{')
		if next < 0 {
			break
		}
		s += next + 1
	}

	last := strings.LastIndexByte(text, '}')
	widest := ""
	if last > start {
		widest = text[start : last+1]
		if isObject(widest) {
			return widest, nil
		}
	}
	switch {
	case firstBalanced != "":
		return firstBalanced, nil
	case widest != "":
		return widest, nil
	}
	return "", &ParseError{Reason: "no JSON object found in response"}
}

func isObject(span string) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal([]byte(span), &obj) == nil && obj != nil
}

// balancedEnd returns the index just past the brace closing the object
// opened at text[start], or -1
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i + 1
			}
		}
	}
	return -1
}
