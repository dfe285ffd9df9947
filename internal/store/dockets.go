package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dgallion1/clusterdesk/internal/corpus"
)

// Docket returns the docket record, or corpus.ErrNotFound.
func (s *SQLiteStore) Docket(ctx context.Context, id string) (*corpus.Docket, error) {
	var (
		d          corpus.Docket
		count      sql.NullInt64
		start, end sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agency, doc_count, date_start, date_end FROM dockets WHERE id = ?`, id,
	).Scan(&d.ID, &d.Agency, &count, &start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("docket %s: %w", id, corpus.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get docket %s: %w", id, err)
	}
	if count.Valid {
		n := int(count.Int64)
		d.Count = &n
	}
	if start.Valid || end.Valid {
		d.DateRange = &corpus.DateRange{Start: start.String, End: end.String}
	}
	return &d, nil
}

// PutDocket inserts or replaces a docket record.
func (s *SQLiteStore) PutDocket(ctx context.Context, d *corpus.Docket) error {
	var count sql.NullInt64
	if d.Count != nil {
		count = sql.NullInt64{Int64: int64(*d.Count), Valid: true}
	}
	var start, end sql.NullString
	if d.DateRange != nil {
		start = sql.NullString{String: d.DateRange.Start, Valid: true}
		end = sql.NullString{String: d.DateRange.End, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dockets (id, agency, doc_count, date_start, date_end) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			agency = excluded.agency,
			doc_count = excluded.doc_count,
			date_start = excluded.date_start,
			date_end = excluded.date_end`,
		d.ID, d.Agency, count, start, end)
	if err != nil {
		return fmt.Errorf("put docket %s: %w", d.ID, err)
	}
	return nil
}

// AgencyName returns the display name for an agency code.
func (s *SQLiteStore) AgencyName(ctx context.Context, code string) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM agencies WHERE id = ?`, code).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("agency %s: %w", code, corpus.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get agency %s: %w", code, err)
	}
	return name, nil
}

// PutAgency inserts or renames an agency.
func (s *SQLiteStore) PutAgency(ctx context.Context, code, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO agencies (id, name) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		code, name)
	if err != nil {
		return fmt.Errorf("put agency %s: %w", code, err)
	}
	return nil
}
