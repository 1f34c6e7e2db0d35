package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildChatPayloadSchema returns the JSON-Schema (draft 2020-12 subset) the
// chat-mode payload must satisfy after recovery.
func BuildChatPayloadSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"phase":   map[string]any{"type": "string", "enum": []string{PhaseIntervista, PhaseStrategia, PhaseErrore}},
			"title":   map[string]any{"type": "string"},
			"content": map[string]any{"type": "string"},
		},
		"required": []string{"phase", "title", "content"},
	}
}

// ValidateAgainstSchema validates value against schemaMap.
func ValidateAgainstSchema(schemaMap map[string]any, value any) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
