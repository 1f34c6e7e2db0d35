package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/studiolegale/fascicolo/internal/llm"
	"github.com/studiolegale/fascicolo/internal/metrics"
	"github.com/studiolegale/fascicolo/internal/pricing"
	"github.com/studiolegale/fascicolo/internal/repository"
)

// CaseStore is the slice of the repository the pipeline needs.
type CaseStore interface {
	ListPriceRows(ctx context.Context) []pricing.Rates
	ListActiveModels(ctx context.Context) []repository.ModelRow
	RecordTransaction(ctx context.Context, caseID uuid.UUID, kind, title, body, origin, model string, usage llm.Usage, modelMultiplier float64) repository.DocumentSnapshot
}

// Orchestrator drives chat turns and batch generation against one
// selected model.
type Orchestrator struct {
	provider   llm.Provider
	store      CaseStore
	logger     *slog.Logger
	model      string
	multiplier float64
}

func NewOrchestrator(provider llm.Provider, store CaseStore, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{provider: provider, store: store, logger: logger, multiplier: 1}
}

// Model reports the selected model identifier, empty when discovery found
// none.
func (o *Orchestrator) Model() string { return o.model }

// SelectModel intersects the provider's model list with the store's
// active rows and picks by preference order, then by small-fast naming,
// then any. With no candidate every later call returns an error payload
// without touching the network.
func (o *Orchestrator) SelectModel(ctx context.Context, preferred []string) {
	available, err := o.provider.ListModels(ctx)
	if err != nil {
		o.logger.Error("pipeline.model_discovery_failed", "error", err)
		return
	}
	active := o.store.ListActiveModels(ctx)

	avail := make(map[string]bool, len(available))
	for _, id := range available {
		avail[id] = true
	}
	var candidates []repository.ModelRow
	for _, m := range active {
		if avail[m.Name] {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		o.logger.Warn("pipeline.no_model", "available", len(available), "active", len(active))
		return
	}

	pick := func(match func(string) bool) bool {
		for _, m := range candidates {
			if match(m.Name) {
				o.model = m.Name
				o.multiplier = m.PriceMultiplier
				return true
			}
		}
		return false
	}
	for _, p := range preferred {
		if pick(func(name string) bool { return name == p }) {
			o.logger.Info("pipeline.model_selected", "model", o.model, "multiplier", o.multiplier)
			return
		}
	}
	if !pick(func(name string) bool { return strings.Contains(name, "mini") }) {
		pick(func(string) bool { return true })
	}
	o.logger.Info("pipeline.model_selected", "model", o.model, "multiplier", o.multiplier)
}

// errorPayload builds the uniform degraded-mode payload.
func errorPayload(title, content string) llm.ChatPayload {
	metrics.Global().LLMFailures.Inc()
	return llm.ChatPayload{Phase: llm.PhaseErrore, Title: title, Content: content}
}

// priceBand summarizes the price table for the chat prompt.
func (o *Orchestrator) priceBand(ctx context.Context) string {
	rows := o.store.ListPriceRows(ctx)
	if len(rows) == 0 {
		return ""
	}
	lo, hi := rows[0].FixedPrice, rows[0].FixedPrice
	for _, r := range rows[1:] {
		if r.FixedPrice < lo {
			lo = r.FixedPrice
		}
		if r.FixedPrice > hi {
			hi = r.FixedPrice
		}
	}
	return fmt.Sprintf("%.2f-%.2f EUR base per document", lo, hi)
}

func (o *Orchestrator) recordUsage(u llm.Usage) {
	m := metrics.Global()
	m.LLMRequests.Inc()
	m.InputTokens.Add(float64(u.InputTokens))
	m.OutputTokens.Add(float64(u.OutputTokens))
}
