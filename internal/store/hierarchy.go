package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
)

// Hierarchy decodes the docket's stored forest. Each call returns a fresh
// tree. Cluster phrase summaries are dropped unless withSummaries is set.
func (s *SQLiteStore) Hierarchy(ctx context.Context, docketID string, withSummaries bool) ([]hierarchy.Node, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT tree FROM hierarchies WHERE docket_id = ?`, docketID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("hierarchy for docket %s: %w", docketID, corpus.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get hierarchy %s: %w", docketID, err)
	}

	var roots []hierarchy.Node
	if err := json.Unmarshal([]byte(raw), &roots); err != nil {
		return nil, fmt.Errorf("decode hierarchy %s: %w", docketID, err)
	}
	if !withSummaries {
		stripPhrases(roots)
	}
	return roots, nil
}

func stripPhrases(nodes []hierarchy.Node) {
	for i := range nodes {
		nodes[i].Phrases = nil
		stripPhrases(nodes[i].Children)
	}
}

// PutHierarchy validates and stores a docket's forest, replacing any
// previous one.
func (s *SQLiteStore) PutHierarchy(ctx context.Context, docketID string, roots []hierarchy.Node) error {
	if err := hierarchy.Validate(roots); err != nil {
		return fmt.Errorf("hierarchy for docket %s: %w", docketID, err)
	}
	if roots == nil {
		roots = []hierarchy.Node{}
	}
	raw, err := json.Marshal(roots)
	if err != nil {
		return fmt.Errorf("encode hierarchy: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hierarchies (docket_id, tree) VALUES (?, ?)
		ON CONFLICT(docket_id) DO UPDATE SET tree = excluded.tree, updated_at = datetime('now')`,
		docketID, string(raw))
	if err != nil {
		return fmt.Errorf("put hierarchy %s: %w", docketID, err)
	}
	return nil
}
