package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/clusterdesk/internal/corpus"
)

const documentColumns = `id, docket_id, document_id, title, submitter_name, submitter_organization, text`

// Document returns a document with its text capped at MaxDocumentChars.
func (s *SQLiteStore) Document(ctx context.Context, docID int64) (*corpus.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, docID)
	d, err := s.scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", docID, corpus.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", docID, err)
	}
	return d, nil
}

// DocByDocumentID looks a document up by its public document identifier.
func (s *SQLiteStore) DocByDocumentID(ctx context.Context, documentID string) (*corpus.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE document_id = ? ORDER BY id LIMIT 1`, documentID)
	d, err := s.scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", documentID, corpus.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}
	return d, nil
}

func (s *SQLiteStore) scanDocument(row *sql.Row) (*corpus.Document, error) {
	var d corpus.Document
	err := row.Scan(&d.ID, &d.DocketID, &d.Metadata.DocumentID, &d.Metadata.Title,
		&d.Metadata.SubmitterName, &d.Metadata.SubmitterOrganization, &d.Text)
	if err != nil {
		return nil, err
	}
	d.Text = capRunes(d.Text, s.maxChars)
	return &d, nil
}

func capRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Metadata returns metadata for every known id in docIDs. Unknown ids are
// absent from the result.
func (s *SQLiteStore) Metadata(ctx context.Context, docIDs []int64) (map[int64]corpus.DocMeta, error) {
	out := make(map[int64]corpus.DocMeta, len(docIDs))
	for start := 0; start < len(docIDs); start += s.batchSize {
		batch := docIDs[start:min(start+s.batchSize, len(docIDs))]

		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		q := `SELECT id, title, document_id, submitter_name, submitter_organization
			FROM documents WHERE id IN (?` + strings.Repeat(",?", len(batch)-1) + `)`

		rows, err := s.db.QueryContext(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("query metadata: %w", err)
		}
		for rows.Next() {
			var (
				id int64
				m  corpus.DocMeta
			)
			if err := rows.Scan(&id, &m.Title, &m.DocumentID, &m.SubmitterName, &m.SubmitterOrganization); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan metadata: %w", err)
			}
			out[id] = m
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate metadata: %w", err)
		}
	}
	return out, nil
}

// PutDocument inserts or replaces a document. The full text is stored; the
// cap only applies on read. Replacing a document's text clears its phrase
// occurrences, since their offsets refer to the old text.
func (s *SQLiteStore) PutDocument(ctx context.Context, d *corpus.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var old string
	err = tx.QueryRowContext(ctx, `SELECT text FROM documents WHERE id = ?`, d.ID).Scan(&old)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("get document %d: %w", d.ID, err)
	case old != d.Text:
		if _, err := tx.ExecContext(ctx, `DELETE FROM phrase_occurrences WHERE doc_id = ?`, d.ID); err != nil {
			return fmt.Errorf("clear occurrences for %d: %w", d.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			docket_id = excluded.docket_id,
			document_id = excluded.document_id,
			title = excluded.title,
			submitter_name = excluded.submitter_name,
			submitter_organization = excluded.submitter_organization,
			text = excluded.text`,
		d.ID, d.DocketID, d.Metadata.DocumentID, d.Metadata.Title,
		d.Metadata.SubmitterName, d.Metadata.SubmitterOrganization, d.Text)
	if err != nil {
		return fmt.Errorf("put document %d: %w", d.ID, err)
	}
	return tx.Commit()
}

// CountDocuments returns the number of stored documents in a docket.
func (s *SQLiteStore) CountDocuments(ctx context.Context, docketID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE docket_id = ?`, docketID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents %s: %w", docketID, err)
	}
	return n, nil
}
