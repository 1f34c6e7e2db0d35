package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiolegale/fascicolo/internal/llm"
	"github.com/studiolegale/fascicolo/internal/pricing"
	"github.com/studiolegale/fascicolo/internal/repository"
)

type fakeProvider struct {
	models    []string
	modelsErr error
	responses []llm.ChatResponse
	errs      []error
	calls     []llm.ChatRequest
}

func (f *fakeProvider) Chat(_ context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, req)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp llm.ChatResponse
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

func (f *fakeProvider) ListModels(_ context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

type fakeStore struct {
	prices   []pricing.Rates
	active   []repository.ModelRow
	recorded []repository.DocumentSnapshot
}

func (f *fakeStore) ListPriceRows(_ context.Context) []pricing.Rates { return f.prices }

func (f *fakeStore) ListActiveModels(_ context.Context) []repository.ModelRow { return f.active }

func (f *fakeStore) RecordTransaction(_ context.Context, _ uuid.UUID, kind, title, body, origin, model string, usage llm.Usage, mult float64) repository.DocumentSnapshot {
	var rates pricing.Rates
	for _, r := range f.prices {
		if r.Kind == kind {
			rates = r
		}
	}
	b := pricing.Transaction(usage.InputTokens, usage.OutputTokens, rates, model, mult)
	snap := repository.DocumentSnapshot{
		Title: title, Body: body, Origin: origin,
		Model: model, Multiplier: mult,
		InputTokens: usage.InputTokens, OutputTokens: usage.OutputTokens,
		FixedPart: b.FixedPart, VariablePart: b.VariablePart, FinalPrice: b.FinalPrice,
	}
	f.recorded = append(f.recorded, snap)
	return snap
}

func testSession() *Session {
	return NewSession(&repository.Case{
		ID:               uuid.New(),
		UserID:           uuid.New(),
		ReferenceName:    "Rossi c. Acme",
		CaseType:         repository.CaseTypeContracts,
		ClientName:       "Mario Rossi",
		CounterpartyName: "Acme SpA",
		TechnicalNotes:   "Mario Rossi firmò il contratto nel 2021.",
		Aggressiveness:   5,
	})
}

func selected(t *testing.T, p *fakeProvider, s *fakeStore) *Orchestrator {
	t.Helper()
	o := NewOrchestrator(p, s, nil)
	o.SelectModel(context.Background(), []string{"gpt-4o-mini"})
	require.Equal(t, "gpt-4o-mini", o.Model())
	return o
}

func activeModels() []repository.ModelRow {
	return []repository.ModelRow{
		{Name: "gpt-4o", IsActive: true, PriceMultiplier: 2.5},
		{Name: "gpt-4o-mini", IsActive: true, PriceMultiplier: 1},
	}
}

func TestSelectModelPrefersConfiguredThenMini(t *testing.T) {
	p := &fakeProvider{models: []string{"gpt-4o", "gpt-4o-mini", "whisper-1"}}
	s := &fakeStore{active: activeModels()}
	o := NewOrchestrator(p, s, nil)
	o.SelectModel(context.Background(), []string{"missing-model"})
	assert.Equal(t, "gpt-4o-mini", o.Model(), "falls back to the small-fast name")

	o2 := NewOrchestrator(p, s, nil)
	o2.SelectModel(context.Background(), []string{"gpt-4o"})
	assert.Equal(t, "gpt-4o", o2.Model())
}

func TestNoModelShortCircuits(t *testing.T) {
	p := &fakeProvider{models: nil}
	s := &fakeStore{}
	o := NewOrchestrator(p, s, nil)
	o.SelectModel(context.Background(), nil)

	payload := o.ChatTurn(context.Background(), testSession(), "ciao")
	assert.Equal(t, llm.PhaseErrore, payload.Phase)
	assert.Empty(t, p.calls, "no network call without a model")
}

func TestChatTurnHappyPath(t *testing.T) {
	p := &fakeProvider{
		models: []string{"gpt-4o-mini"},
		responses: []llm.ChatResponse{{
			Text:  `{"phase":"intervista","title":"Prima domanda","content":"Quando [CLIENTE_1] ha ricevuto la diffida?"}`,
			Usage: llm.Usage{InputTokens: 100, OutputTokens: 30},
		}},
	}
	s := &fakeStore{active: activeModels()}
	o := selected(t, p, s)

	sess := testSession()
	payload := o.ChatTurn(context.Background(), sess, "Il mio cliente è Mario Rossi")

	assert.Equal(t, llm.PhaseIntervista, payload.Phase)
	assert.Equal(t, "Quando Mario Rossi ha ricevuto la diffida?", payload.Content)

	// outbound prompt never carries the real names
	require.Len(t, p.calls, 1)
	assert.NotContains(t, p.calls[0].SystemPrompt, "Mario Rossi")
	assert.Contains(t, p.calls[0].SystemPrompt, "[CLIENTE_1]")
	assert.InDelta(t, 0.85, p.calls[0].Temperature, 1e-9)

	// transcript appended in order
	require.Len(t, sess.Transcript, 2)
	assert.Equal(t, "user", sess.Transcript[0].Role)
	assert.Equal(t, "assistant", sess.Transcript[1].Role)
	assert.Equal(t, llm.PhaseIntervista, sess.Step)
}

func TestChatTurnSafetyBlock(t *testing.T) {
	p := &fakeProvider{
		models:    []string{"gpt-4o-mini"},
		responses: []llm.ChatResponse{{Feedback: "blocked by provider"}},
	}
	s := &fakeStore{active: activeModels()}
	o := selected(t, p, s)

	payload := o.ChatTurn(context.Background(), testSession(), "msg")
	assert.Equal(t, llm.PhaseErrore, payload.Phase)
	assert.Equal(t, "blocked by provider", payload.Content)
}

func TestChatTurnFormatError(t *testing.T) {
	p := &fakeProvider{
		models:    []string{"gpt-4o-mini"},
		responses: []llm.ChatResponse{{Text: "sorry, I can't produce JSON"}},
	}
	s := &fakeStore{active: activeModels()}
	o := selected(t, p, s)

	payload := o.ChatTurn(context.Background(), testSession(), "msg")
	assert.Equal(t, llm.PhaseErrore, payload.Phase)
	assert.Contains(t, payload.Content, "sorry, I can't")
}

func TestChatTurnTechnicalError(t *testing.T) {
	p := &fakeProvider{
		models: []string{"gpt-4o-mini"},
		errs:   []error{fmt.Errorf("connection reset")},
	}
	s := &fakeStore{active: activeModels()}
	o := selected(t, p, s)

	payload := o.ChatTurn(context.Background(), testSession(), "msg")
	assert.Equal(t, llm.PhaseErrore, payload.Phase)
	assert.Contains(t, payload.Content, "connection reset")
}

func TestGenerateAllHappyAndDegraded(t *testing.T) {
	p := &fakeProvider{
		models: []string{"gpt-4o-mini"},
		responses: []llm.ChatResponse{
			{Text: "```json\n{\"title\":\"Sintesi\",\"content\":\"# H\\n- a\\n- b\"}\n```", Usage: llm.Usage{InputTokens: 1000, OutputTokens: 2000}},
			{Text: "sorry, I can't", Usage: llm.Usage{InputTokens: 900, OutputTokens: 10}},
		},
	}
	s := &fakeStore{
		active: activeModels(),
		prices: []pricing.Rates{{Kind: "Summary", FixedPrice: 10, RateInPer1K: 0.02, RateOutPer1K: 0.05}},
	}
	o := selected(t, p, s)

	sess := testSession()
	docs := o.GenerateAll(context.Background(), sess, []DocRequest{
		{Kind: "Summary", Instruction: "sintetizza il caso"},
		{Kind: "Brief", Instruction: "redigi la memoria"},
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "Summary", docs[0].Kind)
	assert.Equal(t, "Sintesi", docs[0].Payload.Title)
	assert.Equal(t, "Brief", docs[1].Kind)
	assert.Contains(t, docs[1].Payload.Title, "Format error")
	assert.Contains(t, docs[1].Payload.Content, "sorry, I can't")

	// snapshots recorded in batch order with pricing metadata
	require.Len(t, s.recorded, 2)
	assert.Equal(t, "Sintesi", s.recorded[0].Title)
	assert.Equal(t, 10.12, s.recorded[0].FinalPrice)
	assert.Equal(t, repository.OriginAutoGenerated, s.recorded[1].Origin)
}

func TestTranscriptMarkdown(t *testing.T) {
	sess := testSession()
	sess.Append("user", "domanda")
	sess.Append("assistant", "risposta")
	md := TranscriptMarkdown(sess)
	assert.Contains(t, md, "# Trascrizione colloquio")
	assert.Contains(t, md, "## user\ndomanda")
	assert.Contains(t, md, "## assistant\nrisposta")
}
