package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/studiolegale/fascicolo/internal/common"
	"github.com/studiolegale/fascicolo/internal/llm"
)

// ChatTurn runs one interview turn: sanitize the context and the user's
// message, call the model, recover the JSON payload, restore real names.
// Degraded outcomes come back as phase-"errore" payloads, never as errors.
func (o *Orchestrator) ChatTurn(ctx context.Context, sess *Session, userMessage string) llm.ChatPayload {
	start := time.Now()
	if o.model == "" {
		return errorPayload("Modello non disponibile", "no model configured")
	}

	san := sess.Sanitizer
	in := llm.ChatPromptInput{
		CaseType:       sess.Case.CaseType,
		ChatContext:    san.Sanitize(sess.contextText()),
		TechnicalNotes: san.Sanitize(sess.Case.TechnicalNotes),
		PriceBand:      o.priceBand(ctx),
		Aggressiveness: sess.Case.Aggressiveness,
		UserMessage:    san.Sanitize(userMessage),
	}

	resp, err := o.provider.Chat(ctx, llm.ChatRequest{
		Model:        o.model,
		SystemPrompt: llm.BuildChatSystemPrompt(in),
		Fragments:    sess.sanitizedFragments(),
		Temperature:  llm.Temperature(sess.Case.Aggressiveness),
		ForceJSON:    true,
	})
	if err != nil {
		o.logger.Error("pipeline.chat.call_failed", "case_id", sess.Case.ID, "error", err)
		return errorPayload("Errore tecnico", err.Error())
	}
	o.recordUsage(resp.Usage)

	if resp.Text == "" {
		o.logger.Warn("pipeline.chat.safety_block", "case_id", sess.Case.ID, "feedback", resp.Feedback)
		return errorPayload("Risposta bloccata", resp.Feedback)
	}

	obj := llm.RecoverObject(resp.Text)
	if obj == nil {
		o.logger.Warn("pipeline.chat.format_error", "case_id", sess.Case.ID, "raw_len", len(resp.Text))
		return errorPayload("Risposta non valida", common.Truncate(resp.Text, 500))
	}
	if err := llm.ValidateAgainstSchema(llm.BuildChatPayloadSchema(), obj); err != nil {
		o.logger.Warn("pipeline.chat.schema_mismatch", "case_id", sess.Case.ID, "error", err)
		return errorPayload("Risposta non valida", common.Truncate(resp.Text, 500))
	}

	var payload llm.ChatPayload
	b, _ := json.Marshal(obj)
	if err := json.Unmarshal(b, &payload); err != nil {
		return errorPayload("Risposta non valida", common.Truncate(resp.Text, 500))
	}
	payload.Title = san.Restore(payload.Title)
	payload.Content = san.Restore(payload.Content)

	sess.Append("user", userMessage)
	sess.Append("assistant", payload.Content)
	sess.Step = payload.Phase

	o.logger.Info("pipeline.chat.ok",
		"case_id", sess.Case.ID,
		"phase", payload.Phase,
		"in_tokens", resp.Usage.InputTokens,
		"out_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return payload
}
