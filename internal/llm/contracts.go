package llm

import "context"

// Workflow phases the chat payload may carry. The UI drives its flow off
// these strings; the core only produces them.
const (
	PhaseIntervista = "intervista"
	PhaseStrategia  = "strategia"
	PhaseErrore     = "errore"
)

// ChatPayload is the single JSON object the model must emit in chat mode.
type ChatPayload struct {
	Phase   string `json:"phase"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocPayload is one generated document in batch mode.
type DocPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Usage carries the token counts reported by the provider for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// ChatRequest is a single-turn generation request.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Fragments    []string // extracted file texts, attached after the prompt
	Temperature  float64
	ForceJSON    bool
}

// ChatResponse is the provider's answer. Feedback is the provider's opaque
// explanation when Text is empty (safety block); it is only ever surfaced
// inside error payloads.
type ChatResponse struct {
	Text     string
	Feedback string
	Usage    Usage
}

// Provider is the interface the pipeline depends on.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}
