package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/studiolegale/fascicolo/internal/common"
	"github.com/studiolegale/fascicolo/internal/llm"
	"github.com/studiolegale/fascicolo/internal/metrics"
	"github.com/studiolegale/fascicolo/internal/repository"
)

// DocRequest is one entry of a generation batch.
type DocRequest struct {
	Kind        string `json:"kind"`
	Instruction string `json:"instruction"`
}

// GeneratedDoc is one batch result, already restored. Degraded entries
// carry a "Format error" or "Technical error" title so the archive stays
// complete.
type GeneratedDoc struct {
	Kind    string
	Payload llm.DocPayload
	Usage   llm.Usage
}

// GenerateAll processes the batch serially in caller order, one model call
// per document, and records a priced snapshot per entry. A failed entry
// degrades to an error document; the batch never aborts.
func (o *Orchestrator) GenerateAll(ctx context.Context, sess *Session, reqs []DocRequest) []GeneratedDoc {
	san := sess.Sanitizer
	chatContext := san.Sanitize(sess.contextText())
	notes := san.Sanitize(sess.Case.TechnicalNotes)
	fragments := sess.sanitizedFragments()

	out := make([]GeneratedDoc, 0, len(reqs))
	for _, req := range reqs {
		start := time.Now()
		doc := GeneratedDoc{Kind: req.Kind}

		if o.model == "" {
			doc.Payload = llm.DocPayload{Title: "Technical error " + req.Kind, Content: "no model configured"}
			metrics.Global().LLMFailures.Inc()
			out = append(out, doc)
			continue
		}

		resp, err := o.provider.Chat(ctx, llm.ChatRequest{
			Model:        o.model,
			SystemPrompt: llm.BuildBatchPrompt(req.Kind, san.Sanitize(req.Instruction), chatContext, notes),
			Fragments:    fragments,
			Temperature:  llm.Temperature(sess.Case.Aggressiveness),
			ForceJSON:    true,
		})
		switch {
		case err != nil:
			o.logger.Error("pipeline.batch.call_failed", "kind", req.Kind, "error", err)
			metrics.Global().LLMFailures.Inc()
			doc.Payload = llm.DocPayload{Title: "Technical error " + req.Kind, Content: err.Error()}
		case resp.Text == "":
			o.recordUsage(resp.Usage)
			o.logger.Warn("pipeline.batch.safety_block", "kind", req.Kind, "feedback", resp.Feedback)
			doc.Usage = resp.Usage
			doc.Payload = llm.DocPayload{Title: "Format error " + req.Kind, Content: resp.Feedback}
		default:
			o.recordUsage(resp.Usage)
			doc.Usage = resp.Usage
			doc.Payload = o.decodeDocPayload(req.Kind, resp.Text)
		}

		doc.Payload.Title = san.Restore(doc.Payload.Title)
		doc.Payload.Content = san.Restore(doc.Payload.Content)
		out = append(out, doc)

		o.logger.Info("pipeline.batch.doc_done",
			"kind", req.Kind,
			"in_tokens", doc.Usage.InputTokens,
			"out_tokens", doc.Usage.OutputTokens,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}

	for _, doc := range out {
		o.store.RecordTransaction(ctx, sess.Case.ID, doc.Kind,
			doc.Payload.Title, doc.Payload.Content, repository.OriginAutoGenerated,
			o.model, doc.Usage, o.multiplier)
	}
	return out
}

func (o *Orchestrator) decodeDocPayload(kind, raw string) llm.DocPayload {
	obj := llm.RecoverObject(raw)
	if obj == nil {
		o.logger.Warn("pipeline.batch.format_error", "kind", kind, "raw_len", len(raw))
		metrics.Global().LLMFailures.Inc()
		return llm.DocPayload{Title: "Format error " + kind, Content: common.Truncate(raw, 500)}
	}
	title, _ := obj["title"].(string)
	content, _ := obj["content"].(string)
	if strings.TrimSpace(title) == "" && strings.TrimSpace(content) == "" {
		metrics.Global().LLMFailures.Inc()
		return llm.DocPayload{Title: "Format error " + kind, Content: common.Truncate(raw, 500)}
	}
	if title == "" {
		title = kind
	}
	return llm.DocPayload{Title: title, Content: content}
}

// TranscriptMarkdown renders the session transcript as a Markdown document
// for the chat_transcript archive entry.
func TranscriptMarkdown(sess *Session) string {
	var b strings.Builder
	b.WriteString("# Trascrizione colloquio\n")
	for _, m := range sess.Transcript {
		b.WriteString("## " + m.Role + "\n")
		b.WriteString(m.Content + "\n")
	}
	return b.String()
}
