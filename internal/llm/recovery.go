package llm

import (
	"encoding/json"
	"strings"
)

// RecoverObject salvages a single JSON object from noisy model output.
// Real responses come wrapped in code fences, preceded by prose, or
// followed by stray tokens; retrying the model is expensive, client-side
// salvage is cheap. Returns nil when no object can be recovered.
//
// The routine is a small state machine, not exception-driven retry:
//  1. strip fenced-code markers
//  2. discard everything before the first '{'
//  3. direct parse
//  4. brace-balance scan to the first index where balance returns to zero
func RecoverObject(raw string) map[string]any {
	s := stripFences(raw)
	i := strings.Index(s, "{")
	if i < 0 {
		return nil
	}
	s = s[i:]

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m
	}

	if end := balancedEnd(s); end > 0 {
		m = nil
		if err := json.Unmarshal([]byte(s[:end]), &m); err == nil {
			return m
		}
	}
	return nil
}

func stripFences(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// balancedEnd scans s (which starts at '{') tracking brace depth, skipping
// braces inside JSON strings, and returns the index one past the matching
// close brace, or 0 if the object never closes.
func balancedEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
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
				return i + 1
			}
		}
	}
	return 0
}
