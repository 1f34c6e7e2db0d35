package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/studiolegale/fascicolo/internal/pricing"
)

var ErrCaseNotFound = errors.New("case not found")

// GetPriceRow fetches the price row for a document kind. Nil when missing
// or unavailable; the pricing package falls back to its flat quote.
func (s *Store) GetPriceRow(ctx context.Context, kind string) *pricing.Rates {
	q := s.sql.Select("document_kind", "fixed_price", "rate_in_per_1k",
		"rate_out_per_1k", "complexity_multiplier", "description").
		From("price_list").
		Where(sq.Eq{"document_kind": kind})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("price.get_build_failed", err)
		return nil
	}
	var r pricing.Rates
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&r.Kind, &r.FixedPrice, &r.RateInPer1K, &r.RateOutPer1K,
		&r.ComplexityMultiplier, &r.Description,
	); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail("price.get_failed", err)
		}
		return nil
	}
	return &r
}

// ListPriceRows fetches the full price table. Empty on failure.
func (s *Store) ListPriceRows(ctx context.Context) []pricing.Rates {
	q := s.sql.Select("document_kind", "fixed_price", "rate_in_per_1k",
		"rate_out_per_1k", "complexity_multiplier", "description").
		From("price_list").
		OrderBy("document_kind")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("price.list_build_failed", err)
		return nil
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		s.fail("price.list_failed", err)
		return nil
	}
	defer rows.Close()

	var out []pricing.Rates
	for rows.Next() {
		var r pricing.Rates
		if err := rows.Scan(&r.Kind, &r.FixedPrice, &r.RateInPer1K,
			&r.RateOutPer1K, &r.ComplexityMultiplier, &r.Description); err != nil {
			s.fail("price.list_scan_failed", err)
			return nil
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.fail("price.list_rows_failed", err)
		return nil
	}
	return out
}

// ListActiveModels fetches the models flagged active. Empty on failure.
func (s *Store) ListActiveModels(ctx context.Context) []ModelRow {
	q := s.sql.Select("model_name", "is_active", "price_multiplier").
		From("models").
		Where(sq.Eq{"is_active": true}).
		OrderBy("model_name")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("models.list_build_failed", err)
		return nil
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		s.fail("models.list_failed", err)
		return nil
	}
	defer rows.Close()

	var out []ModelRow
	for rows.Next() {
		var m ModelRow
		if err := rows.Scan(&m.Name, &m.IsActive, &m.PriceMultiplier); err != nil {
			s.fail("models.list_scan_failed", err)
			return nil
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		s.fail("models.list_rows_failed", err)
		return nil
	}
	return out
}

// ListCaseTypes fetches the subject-area display names. Empty on failure.
func (s *Store) ListCaseTypes(ctx context.Context) []CaseType {
	q := s.sql.Select("code", "display_name").From("case_types_config").OrderBy("code")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("casetypes.list_build_failed", err)
		return nil
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		s.fail("casetypes.list_failed", err)
		return nil
	}
	defer rows.Close()

	var out []CaseType
	for rows.Next() {
		var ct CaseType
		if err := rows.Scan(&ct.Code, &ct.DisplayName); err != nil {
			s.fail("casetypes.list_scan_failed", err)
			return nil
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		s.fail("casetypes.list_rows_failed", err)
		return nil
	}
	return out
}

// GetUserProfile fetches one user profile. Nil when missing or
// unavailable.
func (s *Store) GetUserProfile(ctx context.Context, id uuid.UUID) *UserProfile {
	q := s.sql.Select("id", "email", "studio_name", "role", "account_state").
		From("user_profiles").
		Where(sq.Eq{"id": id.String()})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("profiles.get_build_failed", err)
		return nil
	}
	var p UserProfile
	var rawID string
	if err := s.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&rawID, &p.Email, &p.StudioName, &p.Role, &p.AccountState,
	); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail("profiles.get_failed", err)
		}
		return nil
	}
	if p.ID, err = uuid.Parse(rawID); err != nil {
		s.fail("profiles.get_parse_failed", err)
		return nil
	}
	return &p
}
