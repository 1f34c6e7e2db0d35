package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var caseColumns = []string{
	"id", "user_id", "reference_name", "case_type", "client_name",
	"counterparty_name", "technical_notes", "aggressiveness", "state",
	"created_at", "generated_documents",
}

// ListCases returns the user's cases, newest first. Empty on failure.
func (s *Store) ListCases(ctx context.Context, userID uuid.UUID) []Case {
	q := s.sql.Select(caseColumns...).
		From("cases").
		Where(sq.Eq{"user_id": userID.String()}).
		OrderBy("created_at DESC")
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("cases.list_build_failed", err)
		return nil
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		s.fail("cases.list_failed", err)
		return nil
	}
	defer rows.Close()

	var out []Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			s.fail("cases.list_scan_failed", err)
			return nil
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		s.fail("cases.list_rows_failed", err)
		return nil
	}
	return out
}

// GetCase fetches one case. Nil when missing or unavailable.
func (s *Store) GetCase(ctx context.Context, id uuid.UUID) *Case {
	q := s.sql.Select(caseColumns...).From("cases").Where(sq.Eq{"id": id.String()})
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("cases.get_build_failed", err)
		return nil
	}
	row := s.db.QueryRowContext(ctx, sqlStr, args...)
	c, err := scanCase(row)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.fail("cases.get_failed", err)
		}
		return nil
	}
	return &c
}

// CreateCase inserts a new case and returns the stored record, or nil when
// the write did not happen.
func (s *Store) CreateCase(ctx context.Context, c Case) *Case {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.Aggressiveness = ClampAggressiveness(c.Aggressiveness)
	if c.State == "" {
		c.State = "open"
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.GeneratedDocs == nil {
		c.GeneratedDocs = []DocumentSnapshot{}
	}
	docs, err := json.Marshal(c.GeneratedDocs)
	if err != nil {
		s.fail("cases.create_encode_failed", err)
		return nil
	}

	q := s.sql.Insert("cases").
		Columns(caseColumns...).
		Values(c.ID.String(), c.UserID.String(), c.ReferenceName, c.CaseType,
			c.ClientName, c.CounterpartyName, c.TechnicalNotes,
			c.Aggressiveness, c.State, c.CreatedAt, string(docs))
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("cases.create_build_failed", err)
		return nil
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		s.fail("cases.create_failed", err)
		return nil
	}
	return &c
}

// CaseUpdate names the mutable fields of a case. Nil pointers are left
// untouched.
type CaseUpdate struct {
	ReferenceName    *string
	ClientName       *string
	CounterpartyName *string
	TechnicalNotes   *string
	Aggressiveness   *int
	State            *string
}

// UpdateCase applies the non-nil fields. A failed write is skipped.
func (s *Store) UpdateCase(ctx context.Context, id uuid.UUID, up CaseUpdate) {
	q := s.sql.Update("cases").Where(sq.Eq{"id": id.String()})
	set := false
	if up.ReferenceName != nil {
		q = q.Set("reference_name", *up.ReferenceName)
		set = true
	}
	if up.ClientName != nil {
		q = q.Set("client_name", *up.ClientName)
		set = true
	}
	if up.CounterpartyName != nil {
		q = q.Set("counterparty_name", *up.CounterpartyName)
		set = true
	}
	if up.TechnicalNotes != nil {
		q = q.Set("technical_notes", *up.TechnicalNotes)
		set = true
	}
	if up.Aggressiveness != nil {
		q = q.Set("aggressiveness", ClampAggressiveness(*up.Aggressiveness))
		set = true
	}
	if up.State != nil {
		q = q.Set("state", *up.State)
		set = true
	}
	if !set {
		return
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("cases.update_build_failed", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		s.fail("cases.update_failed", err)
	}
}

// DeleteCase removes a case. Only the owner or an admin may delete; a
// non-owner request is a silent no-op, like any failed write.
func (s *Store) DeleteCase(ctx context.Context, id, requesterID uuid.UUID, isAdmin bool) {
	q := s.sql.Delete("cases").Where(sq.Eq{"id": id.String()})
	if !isAdmin {
		q = q.Where(sq.Eq{"user_id": requesterID.String()})
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		s.fail("cases.delete_build_failed", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		s.fail("cases.delete_failed", err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(r rowScanner) (Case, error) {
	var c Case
	var id, userID, docsJSON string
	var createdAt time.Time
	if err := r.Scan(&id, &userID, &c.ReferenceName, &c.CaseType,
		&c.ClientName, &c.CounterpartyName, &c.TechnicalNotes,
		&c.Aggressiveness, &c.State, &createdAt, &docsJSON); err != nil {
		return Case{}, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return Case{}, fmt.Errorf("parse case id: %w", err)
	}
	if c.UserID, err = uuid.Parse(userID); err != nil {
		return Case{}, fmt.Errorf("parse user id: %w", err)
	}
	c.CreatedAt = createdAt
	if err := json.Unmarshal([]byte(docsJSON), &c.GeneratedDocs); err != nil {
		return Case{}, fmt.Errorf("decode generated_documents: %w", err)
	}
	return c, nil
}
