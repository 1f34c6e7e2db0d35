package repository

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/studiolegale/fascicolo/internal/llm"
	"github.com/studiolegale/fascicolo/internal/pricing"
)

// AppendSnapshots appends entries to the case's generation history in
// order, stamping each with the current time. Read-modify-write under
// last-writer-wins; acceptable because a user runs one active session.
func (s *Store) AppendSnapshots(ctx context.Context, caseID uuid.UUID, snaps []DocumentSnapshot) {
	if len(snaps) == 0 {
		return
	}
	c := s.GetCase(ctx, caseID)
	if c == nil {
		s.fail("snapshots.append_case_missing", ErrCaseNotFound)
		return
	}

	now := time.Now().UTC()
	for _, snap := range snaps {
		if snap.CreatedAt.IsZero() {
			snap.CreatedAt = now
		}
		c.GeneratedDocs = append(c.GeneratedDocs, snap)
	}
	docs, err := json.Marshal(c.GeneratedDocs)
	if err != nil {
		s.fail("snapshots.append_encode_failed", err)
		return
	}

	q := s.sql.Update("cases").
		Set("generated_documents", string(docs)).
		Where(sq.Eq{"id": caseID.String()})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("snapshots.append_build_failed", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		s.fail("snapshots.append_failed", err)
	}
}

// RecordTransaction prices one generated document against its price row
// and the model multiplier, then appends the snapshot. Returns the
// snapshot that was appended (or attempted).
func (s *Store) RecordTransaction(ctx context.Context, caseID uuid.UUID, kind, title, body, origin, model string, usage llm.Usage, modelMultiplier float64) DocumentSnapshot {
	rates := s.GetPriceRow(ctx, kind)
	if rates == nil {
		rates = &pricing.Rates{Kind: kind, ComplexityMultiplier: 1}
	}
	b := pricing.Transaction(usage.InputTokens, usage.OutputTokens, *rates, model, modelMultiplier)

	snap := DocumentSnapshot{
		Title:        title,
		Body:         body,
		CreatedAt:    time.Now().UTC(),
		Origin:       origin,
		Model:        b.Model,
		Multiplier:   b.Multiplier,
		InputTokens:  b.InputTokens,
		OutputTokens: b.OutputTokens,
		FixedPart:    b.FixedPart,
		VariablePart: b.VariablePart,
		FinalPrice:   b.FinalPrice,
	}
	s.AppendSnapshots(ctx, caseID, []DocumentSnapshot{snap})
	return snap
}
