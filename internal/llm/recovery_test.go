package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverValidObjectUnchanged(t *testing.T) {
	src := `{"phase":"strategia","title":"T","content":"multi\nline"}`
	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(src), &want))

	assert.Equal(t, want, RecoverObject(src))
	assert.Equal(t, want, RecoverObject("```json\n"+src+"\n```trailing garbage"))
}

func TestRecoverFencedWithNoiseAndTrailing(t *testing.T) {
	in := "noise ```json\n{\"a\":1}\n``` trailing {\"b\":2}"
	got := RecoverObject(in)
	require.NotNil(t, got)
	assert.Equal(t, map[string]any{"a": float64(1)}, got)
}

func TestRecoverLeadingProse(t *testing.T) {
	got := RecoverObject("Sure! Here is the document:\n{\"title\":\"X\",\"content\":\"Y\"} hope it helps")
	require.NotNil(t, got)
	assert.Equal(t, "X", got["title"])
}

func TestRecoverBracesInsideStrings(t *testing.T) {
	got := RecoverObject(`{"content":"a } b { c \" d"} extra`)
	require.NotNil(t, got)
	assert.Equal(t, `a } b { c " d`, got["content"])
}

func TestRecoverNestedObject(t *testing.T) {
	got := RecoverObject(`{"outer":{"inner":2}} and then some`)
	require.NotNil(t, got)
	inner, ok := got["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), inner["inner"])
}

func TestRecoverFailures(t *testing.T) {
	assert.Nil(t, RecoverObject("sorry, I can't"))
	assert.Nil(t, RecoverObject(""))
	assert.Nil(t, RecoverObject(`{"never":"closes"`))
	assert.Nil(t, RecoverObject("[1,2,3]"))
}
