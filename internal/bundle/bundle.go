// Package bundle loads a docket's clustering corpus from a directory and
// imports it into the store.
//
// Layout:
//
//	docket.yaml      docket record and agency
//	documents.yaml   document list with metadata and source file names
//	documents/       document sources (any format textract handles)
//	hierarchy.json   the cluster forest
//	phrases.json     per-document phrase occurrences, keyed by document id
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/store"
	"github.com/dgallion1/clusterdesk/internal/textract"
)

// DocketFile is the content of docket.yaml.
type DocketFile struct {
	ID         string            `yaml:"id"`
	Agency     string            `yaml:"agency"`
	AgencyName string            `yaml:"agency_name"`
	Count      *int              `yaml:"count"`
	DateRange  *corpus.DateRange `yaml:"date_range"`
}

// DocumentEntry is one item of documents.yaml.
type DocumentEntry struct {
	ID                    int64  `yaml:"id"`
	DocumentID            string `yaml:"document_id"`
	Title                 string `yaml:"title"`
	SubmitterName         string `yaml:"submitter_name"`
	SubmitterOrganization string `yaml:"submitter_organization"`
	File                  string `yaml:"file"`
	Text                  string `yaml:"text"` // Used when File is empty.
}

// OccurrenceEntry is one span in phrases.json.
type OccurrenceEntry struct {
	Phrase string `json:"phrase"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Bundle is a fully loaded corpus directory.
type Bundle struct {
	Docket    DocketFile
	Documents []corpus.Document
	Hierarchy []hierarchy.Node
	Phrases   map[int64][]store.Occurrence
}

// Writer is the write side of the store used by Import.
type Writer interface {
	PutAgency(ctx context.Context, code, name string) error
	PutDocket(ctx context.Context, d *corpus.Docket) error
	PutDocument(ctx context.Context, d *corpus.Document) error
	PutHierarchy(ctx context.Context, docketID string, roots []hierarchy.Node) error
	PutPhraseOccurrences(ctx context.Context, docID int64, occs []store.Occurrence) error
}

// maxConcurrentExtract bounds how many document sources are extracted at once.
const maxConcurrentExtract = 4

// Load reads and parses every file of the bundle in dir. phrases.json is
// optional; the others are required.
func Load(dir string) (*Bundle, error) {
	var b Bundle
	if err := readYAML(filepath.Join(dir, "docket.yaml"), &b.Docket); err != nil {
		return nil, err
	}
	if b.Docket.ID == "" {
		return nil, fmt.Errorf("docket.yaml: id is required")
	}

	var entries []DocumentEntry
	if err := readYAML(filepath.Join(dir, "documents.yaml"), &entries); err != nil {
		return nil, err
	}
	b.Documents = make([]corpus.Document, len(entries))
	var g errgroup.Group
	g.SetLimit(maxConcurrentExtract)
	for i, e := range entries {
		g.Go(func() error {
			doc, err := loadDocument(dir, b.Docket.ID, e)
			if err != nil {
				return err
			}
			b.Documents[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := readJSON(filepath.Join(dir, "hierarchy.json"), &b.Hierarchy); err != nil {
		return nil, err
	}

	var raw map[string][]OccurrenceEntry
	err := readJSON(filepath.Join(dir, "phrases.json"), &raw)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	b.Phrases = make(map[int64][]store.Occurrence, len(raw))
	for key, occs := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("phrases.json: bad document id %q: %w", key, err)
		}
		for _, o := range occs {
			b.Phrases[id] = append(b.Phrases[id], store.Occurrence{Phrase: o.Phrase, Start: o.Start, End: o.End})
		}
	}
	return &b, nil
}

func loadDocument(dir, docketID string, e DocumentEntry) (corpus.Document, error) {
	doc := corpus.Document{
		ID:       e.ID,
		DocketID: docketID,
		Text:     e.Text,
		Metadata: corpus.DocMeta{
			Title:                 e.Title,
			DocumentID:            e.DocumentID,
			SubmitterName:         e.SubmitterName,
			SubmitterOrganization: e.SubmitterOrganization,
		},
	}
	if e.File == "" {
		return doc, nil
	}
	path := filepath.Join(dir, "documents", filepath.Base(e.File))
	f, err := os.Open(path)
	if err != nil {
		return doc, fmt.Errorf("document %d: %w", e.ID, err)
	}
	defer f.Close()
	text, err := textract.Extract(path, f)
	if err != nil {
		return doc, fmt.Errorf("document %d: %w", e.ID, err)
	}
	doc.Text = text
	return doc, nil
}

// Import validates the bundle's hierarchy, then writes it into w: agency,
// docket, documents, phrase occurrences and finally the hierarchy.
func Import(ctx context.Context, w Writer, b *Bundle, log *slog.Logger) error {
	// Nothing is written for a bundle whose tree would be rejected.
	if err := hierarchy.Validate(b.Hierarchy); err != nil {
		return fmt.Errorf("docket %s hierarchy: %w", b.Docket.ID, err)
	}
	if b.Docket.Agency != "" && b.Docket.AgencyName != "" {
		if err := w.PutAgency(ctx, b.Docket.Agency, b.Docket.AgencyName); err != nil {
			return err
		}
	}
	d := &corpus.Docket{
		ID:        b.Docket.ID,
		Agency:    b.Docket.Agency,
		Count:     b.Docket.Count,
		DateRange: b.Docket.DateRange,
	}
	if err := w.PutDocket(ctx, d); err != nil {
		return err
	}
	for i := range b.Documents {
		if err := w.PutDocument(ctx, &b.Documents[i]); err != nil {
			return err
		}
	}
	for id, occs := range b.Phrases {
		if err := w.PutPhraseOccurrences(ctx, id, occs); err != nil {
			return err
		}
	}
	if err := w.PutHierarchy(ctx, b.Docket.ID, b.Hierarchy); err != nil {
		return err
	}
	log.Info("imported docket",
		"docket", b.Docket.ID,
		"documents", len(b.Documents),
		"roots", len(b.Hierarchy),
		"phrase_documents", len(b.Phrases),
	)
	return nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
