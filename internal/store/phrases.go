package store

import (
	"context"
	"fmt"

	"github.com/dgallion1/clusterdesk/internal/highlight"
)

// Occurrence is one stored phrase hit inside a document.
type Occurrence struct {
	Phrase string
	Start  int
	End    int
}

// PutPhraseOccurrences replaces every stored occurrence for docID.
func (s *SQLiteStore) PutPhraseOccurrences(ctx context.Context, docID int64, occs []Occurrence) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM phrase_occurrences WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("clear occurrences for %d: %w", docID, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO phrase_occurrences (doc_id, phrase, start_pos, end_pos) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, o := range occs {
		if _, err := stmt.ExecContext(ctx, docID, o.Phrase, o.Start, o.End); err != nil {
			return fmt.Errorf("insert occurrence %q for %d: %w", o.Phrase, docID, err)
		}
	}
	return tx.Commit()
}

// PhraseOverlap returns every phrase found in docID, weighted by the number
// of distinct documents in members that also contain it, together with the
// phrase's spans in docID. Phrases keep the order of their first span.
//
// Spans are limited to the capped text Document serves: spans starting at or
// past MaxDocumentChars are dropped and the rest end no later than the cap.
func (s *SQLiteStore) PhraseOverlap(ctx context.Context, docID int64, members []int64) ([]highlight.Phrase, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT phrase, start_pos, end_pos FROM phrase_occurrences
		WHERE doc_id = ? AND start_pos < ? ORDER BY start_pos, end_pos, phrase`, docID, s.maxChars)
	if err != nil {
		return nil, fmt.Errorf("query occurrences for %d: %w", docID, err)
	}

	var phrases []highlight.Phrase
	index := make(map[string]int)
	for rows.Next() {
		var (
			text string
			sp   highlight.Span
		)
		if err := rows.Scan(&text, &sp.Start, &sp.End); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		sp.End = min(sp.End, s.maxChars)
		i, ok := index[text]
		if !ok {
			i = len(phrases)
			index[text] = i
			phrases = append(phrases, highlight.Phrase{Text: text})
		}
		phrases[i].Occurrences = append(phrases[i].Occurrences, sp)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	if len(phrases) == 0 {
		return nil, nil
	}

	inCluster := make(map[int64]bool, len(members))
	for _, m := range members {
		inCluster[m] = true
	}

	shared, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT phrase, doc_id FROM phrase_occurrences
		WHERE phrase IN (SELECT phrase FROM phrase_occurrences WHERE doc_id = ?)`, docID)
	if err != nil {
		return nil, fmt.Errorf("query shared phrases for %d: %w", docID, err)
	}
	defer shared.Close()
	for shared.Next() {
		var (
			text string
			doc  int64
		)
		if err := shared.Scan(&text, &doc); err != nil {
			return nil, fmt.Errorf("scan shared phrase: %w", err)
		}
		if i, ok := index[text]; ok && inCluster[doc] {
			phrases[i].Weight++
		}
	}
	if err := shared.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared phrases: %w", err)
	}
	return phrases, nil
}
