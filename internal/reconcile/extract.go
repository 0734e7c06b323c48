package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNoObject           = errors.New("no '{' found in text")
	errUnterminatedObject = errors.New("object is never closed")
)

// ExtractionError is returned when no attempt produced a JSON object. Raw is
// the unmodified model output, kept for diagnostics.
type ExtractionError struct {
	Raw      string
	Attempts []error
}

func (e *ExtractionError) Error() string {
	msgs := make([]string, 0, len(e.Attempts))
	for _, err := range e.Attempts {
		msgs = append(msgs, err.Error())
	}
	return "could not extract a JSON object from model output: " + strings.Join(msgs, "; ")
}

func (e *ExtractionError) Unwrap() []error {
	return e.Attempts
}

// attempt is one parser in the fallback chain.
type attempt struct {
	name  string
	parse func(text string) (map[string]any, error)
}

var chain = []attempt{
	{name: "strict", parse: parseStrict},
	{name: "first_object", parse: parseFirstObject},
	{name: "repaired", parse: parseRepaired},
}

// Extract runs the fallback chain over the fence-stripped text and returns
// the first object any attempt produces, together with the attempt's name.
func Extract(raw string) (map[string]any, string, error) {
	text := StripFences(raw)

	attempts := make([]error, 0, len(chain))
	for _, a := range chain {
		doc, err := a.parse(text)
		if err == nil {
			return doc, a.name, nil
		}
		attempts = append(attempts, fmt.Errorf("%s: %w", a.name, err))
	}

	return nil, "", &ExtractionError{Raw: raw, Attempts: attempts}
}

// StripFences removes a leading ``` marker (with an optional language tag)
// and a trailing ``` marker.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = text[3:]
		if i := strings.IndexByte(text, '\n'); i >= 0 && isLanguageTag(text[:i]) {
			text = text[i+1:]
		} else if strings.HasPrefix(strings.ToLower(text), "json") {
			text = text[4:]
		}
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) > 16 {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func parseStrict(text string) (map[string]any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, err
	}

	doc, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %T, not an object", value)
	}

	return doc, nil
}

func parseFirstObject(text string) (map[string]any, error) {
	object, err := FirstObject(text)
	if err != nil {
		return nil, err
	}
	return parseStrict(object)
}

func parseRepaired(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoObject
	}
	text = text[start:]

	doc, err := parseRepairedObject(Repair(text))
	if err == nil {
		return doc, nil
	}

	// Prose after a malformed object would otherwise end up inside it.
	if trimmed := TrimTrailingProse(text); trimmed != text {
		if doc, trimErr := parseRepairedObject(Repair(trimmed)); trimErr == nil {
			return doc, nil
		}
	}

	return nil, err
}

func parseRepairedObject(repaired string) (map[string]any, error) {
	doc, err := parseStrict(repaired)
	if err == nil {
		return doc, nil
	}

	if doc, objErr := parseFirstObject(repaired); objErr == nil {
		return doc, nil
	}

	return nil, err
}

// FirstObject returns the first complete top-level object in text, located
// by brace depth. Braces inside string literals do not count.
func FirstObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoObject
	}

	depth := 0
	var s stringState
	for i := start; i < len(text); i++ {
		ch := text[i]
		if s.consume(ch) {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", errUnterminatedObject
}

// stringState tracks whether a byte scanner is inside a JSON string literal.
type stringState struct {
	inString bool
	escaped  bool
}

// consume reports whether ch belongs to a string literal (including its
// opening and closing quotes) and advances the state.
func (s *stringState) consume(ch byte) bool {
	if s.inString {
		switch {
		case s.escaped:
			s.escaped = false
		case ch == '\\':
			s.escaped = true
		case ch == '"':
			s.inString = false
		}
		return true
	}

	if ch == '"' {
		s.inString = true
		return true
	}

	return false
}
