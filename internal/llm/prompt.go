package llm

import (
	"fmt"
	"strings"
)

// ChatPromptInput carries the already-sanitized pieces of a chat turn.
// Nothing in here may contain a real client identifier.
type ChatPromptInput struct {
	CaseType       string
	ChatContext    string
	TechnicalNotes string
	PriceBand      string
	Aggressiveness int
	UserMessage    string
}

// BuildChatSystemPrompt composes the chat-mode system message: role
// statement, case context, technical notes, price band, aggressiveness and
// the user's latest message, plus the strict single-object output contract.
func BuildChatSystemPrompt(in ChatPromptInput) string {
	tone := toneFor(in.Aggressiveness)

	parts := []string{
		"You are a senior Italian litigation strategist assisting a law firm with a case file (fascicolo).",
		"Subject area: " + orDash(in.CaseType) + ".",
		"Interview the lawyer to collect missing facts; when the picture is complete, propose a strategy.",
		"Adopt a " + tone + " tone (aggressiveness " + fmt.Sprintf("%d", in.Aggressiveness) + " on a 1-10 scale).",
	}
	if ctx := strings.TrimSpace(in.ChatContext); ctx != "" {
		parts = append(parts, "Conversation so far:\n"+ctx)
	}
	if notes := strings.TrimSpace(in.TechnicalNotes); notes != "" {
		parts = append(parts, "Technical notes from the lawyer:\n"+notes)
	}
	if band := strings.TrimSpace(in.PriceBand); band != "" {
		parts = append(parts, "Document price band to mention if asked: "+band+".")
	}
	parts = append(parts,
		"Latest message from the lawyer:\n"+in.UserMessage,
		`Return ONLY one JSON object: {"phase":"strategia"|"intervista"|"errore","title":string,"content":string}.`,
		`Use phase "intervista" while questions remain, "strategia" once you can propose the full strategy.`,
		"Never output anything outside the JSON object.",
	)
	return strings.Join(parts, "\n\n")
}

// BuildBatchPrompt composes the hardened JSON-generator prompt for one
// document of the batch.
func BuildBatchPrompt(docKind, instruction, chatContext, technicalNotes string) string {
	parts := []string{
		"You are a JSON document generator. You output exactly one JSON object and nothing else.",
		`The object has exactly two string fields: {"title":string,"content":string}.`,
		"The content field is the full text of the requested legal document in Markdown (headings with #, bullet lists with -, tables with |).",
		"No code fences, no prose before or after the object, no comments.",
		"Document to produce: " + docKind + ".",
		"Drafting instructions:\n" + instruction,
	}
	if ctx := strings.TrimSpace(chatContext); ctx != "" {
		parts = append(parts, "Case discussion so far:\n"+ctx)
	}
	if notes := strings.TrimSpace(technicalNotes); notes != "" {
		parts = append(parts, "Technical notes:\n"+notes)
	}
	return strings.Join(parts, "\n\n")
}

// Temperature derives the sampling temperature from the case's
// aggressiveness knob.
func Temperature(aggressiveness int) float64 {
	return 0.7 + 0.03*float64(clampAggressiveness(aggressiveness))
}

func clampAggressiveness(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

func toneFor(aggr int) string {
	switch {
	case clampAggressiveness(aggr) <= 3:
		return "measured, conciliatory"
	case clampAggressiveness(aggr) <= 7:
		return "firm, assertive"
	default:
		return "combative, uncompromising"
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
