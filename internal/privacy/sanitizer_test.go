package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeAndRestore(t *testing.T) {
	s := NewSanitizer()
	s.Add("Mario Rossi", "CLIENT")
	s.Add("Acme SpA", "OPP")

	out := s.Sanitize("Mario Rossi vs Acme SpA")
	require.Equal(t, "[CLIENT_1] vs [OPP_2]", out)
	assert.Equal(t, "Mario Rossi vs Acme SpA", s.Restore(out))
}

func TestRoundTripIdentity(t *testing.T) {
	s := NewSanitizer()
	s.Add("Mario Rossi", "client")
	s.Add("Studio Bianchi", "counsel")

	texts := []string{
		"",
		"nothing to replace here",
		"Mario Rossi met Studio Bianchi, then MARIO ROSSI left.",
		"multiline\nMario Rossi\nend",
	}
	for _, in := range texts {
		restored := s.Restore(s.Sanitize(in))
		// uppercased variants restore to the canonical form
		if in == "Mario Rossi met Studio Bianchi, then MARIO ROSSI left." {
			assert.Equal(t, "Mario Rossi met Studio Bianchi, then Mario Rossi left.", restored)
			continue
		}
		assert.Equal(t, in, restored)
	}
}

func TestLongestKeyFirst(t *testing.T) {
	s := NewSanitizer()
	s.Add("Mario", "A")
	s.Add("Mario Rossi", "B")

	out := s.Sanitize("Mario Rossi and Mario")
	assert.Equal(t, "[B_2] and [A_1]", out)
	assert.Equal(t, "Mario Rossi and Mario", s.Restore(out))
}

func TestAddIdempotentAndInjective(t *testing.T) {
	s := NewSanitizer()
	s.Add("Acme SpA", "OPP")
	s.Add("Acme SpA", "OPP")
	s.Add("", "OPP")
	s.Add("  ", "OPP")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, len(s.forward), len(s.reverse))

	s.Add("Beta Srl", "OPP")
	assert.Equal(t, "[OPP_1] [OPP_2]", s.Sanitize("Acme SpA Beta Srl"))
	assert.Equal(t, len(s.forward), len(s.reverse))
}

func TestEmptyInput(t *testing.T) {
	s := NewSanitizer()
	assert.Equal(t, "", s.Sanitize(""))
	assert.Equal(t, "", s.Restore(""))
}
