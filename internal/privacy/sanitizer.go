// Package privacy implements the reversible pseudonymization layer applied
// to every text that leaves the process toward the LLM provider. Real names
// go out as [LABEL_N] placeholders and come back restored, so the model
// never sees client identifiers while the lawyer reads natural text.
package privacy

import (
	"fmt"
	"sort"
	"strings"
)

// Sanitizer holds one session's real↔placeholder mapping. It is owned by a
// single session and is not safe for concurrent use.
type Sanitizer struct {
	counter int
	forward map[string]string // real -> placeholder
	reverse map[string]string // placeholder -> real
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		forward: make(map[string]string),
		reverse: make(map[string]string),
	}
}

// Add registers a real string under label, assigning the next [LABEL_N]
// placeholder. Empty and already-seen values are ignored.
func (s *Sanitizer) Add(real, label string) {
	real = strings.TrimSpace(real)
	if real == "" {
		return
	}
	if _, seen := s.forward[real]; seen {
		return
	}
	s.counter++
	ph := fmt.Sprintf("[%s_%d]", strings.ToUpper(label), s.counter)
	s.forward[real] = ph
	s.reverse[ph] = real
}

// Sanitize replaces every registered real string (and its uppercased
// variant) with its placeholder. Longer keys are applied first so that
// "Mario Rossi" wins over a separate "Mario" entry.
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" || len(s.forward) == 0 {
		return text
	}
	keys := make([]string, 0, len(s.forward))
	for k := range s.forward {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		ph := s.forward[k]
		text = strings.ReplaceAll(text, k, ph)
		if up := strings.ToUpper(k); up != k {
			text = strings.ReplaceAll(text, up, ph)
		}
	}
	return text
}

// Restore replaces every placeholder with its original value.
func (s *Sanitizer) Restore(text string) string {
	if text == "" || len(s.reverse) == 0 {
		return text
	}
	for ph, real := range s.reverse {
		text = strings.ReplaceAll(text, ph, real)
	}
	return text
}

// Len reports how many real values are registered.
func (s *Sanitizer) Len() int {
	return len(s.forward)
}
