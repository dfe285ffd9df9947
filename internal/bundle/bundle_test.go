package bundle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docket.yaml"), `
id: FCC-2014-0001
agency: FCC
agency_name: Federal Communications Commission
count: 5
date_range:
  start: "2014-05-15"
  end: "2014-09-15"
`)
	writeFile(t, filepath.Join(dir, "documents.yaml"), `
- id: 1
  document_id: FCC-2014-0001-0001
  title: Comment 1
  submitter_name: Jane Roe
  file: one.md
- id: 2
  document_id: FCC-2014-0001-0002
  title: Comment 2
  text: keep the internet open
`)
	writeFile(t, filepath.Join(dir, "documents", "one.md"), "# Re: Docket\n\nKeep the internet open.\n")
	writeFile(t, filepath.Join(dir, "hierarchy.json"), `[
  {"id": 1, "cutoff": 0.5, "size": 2, "members": [1, 2], "children": [
    {"id": 1, "cutoff": 0.8, "size": 1, "members": [1], "children": []},
    {"id": 2, "cutoff": 0.8, "size": 1, "members": [2], "children": []}
  ]}
]`)
	writeFile(t, filepath.Join(dir, "phrases.json"), `{
  "1": [{"phrase": "keep the internet open", "start": 11, "end": 33}],
  "2": [{"phrase": "keep the internet open", "start": 0, "end": 22}]
}`)
	return dir
}

func TestLoad(t *testing.T) {
	b, err := Load(writeBundle(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Docket.ID != "FCC-2014-0001" || b.Docket.Count == nil || *b.Docket.Count != 5 {
		t.Errorf("unexpected docket %+v", b.Docket)
	}
	if len(b.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(b.Documents))
	}
	if got := b.Documents[0].Text; got != "Re: Docket\n\nKeep the internet open." {
		t.Errorf("expected markdown text extracted, got %q", got)
	}
	if b.Documents[1].Text != "keep the internet open" || b.Documents[1].DocketID != "FCC-2014-0001" {
		t.Errorf("unexpected inline document %+v", b.Documents[1])
	}
	if len(b.Hierarchy) != 1 || len(b.Hierarchy[0].Children) != 2 {
		t.Errorf("unexpected hierarchy %+v", b.Hierarchy)
	}
	if len(b.Phrases[2]) != 1 || b.Phrases[2][0].End != 22 {
		t.Errorf("unexpected phrases %+v", b.Phrases)
	}
}

func TestLoad_PhrasesOptional(t *testing.T) {
	dir := writeBundle(t)
	os.Remove(filepath.Join(dir, "phrases.json"))
	b, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Phrases) != 0 {
		t.Errorf("expected no phrases, got %v", b.Phrases)
	}
}

func TestLoad_MissingDocket(t *testing.T) {
	dir := writeBundle(t)
	os.Remove(filepath.Join(dir, "docket.yaml"))
	if _, err := Load(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestImport(t *testing.T) {
	b, err := Load(writeBundle(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	st, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := Import(ctx, st, b, log); err != nil {
		t.Fatalf("import: %v", err)
	}

	name, err := st.AgencyName(ctx, "FCC")
	if err != nil || name != "Federal Communications Commission" {
		t.Errorf("expected agency name, got %q, %v", name, err)
	}
	roots, err := st.Hierarchy(ctx, "FCC-2014-0001", false)
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	if n := hierarchy.Locate(roots, 2, 0.8); n == nil || n.Size != 1 {
		t.Errorf("expected doc 2 in a singleton at 0.8, got %+v", n)
	}
	phrases, err := st.PhraseOverlap(ctx, 1, []int64{1, 2})
	if err != nil {
		t.Fatalf("overlap: %v", err)
	}
	if len(phrases) != 1 || phrases[0].Weight != 2 {
		t.Errorf("unexpected overlap %+v", phrases)
	}
	doc, err := st.Document(ctx, 1)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Metadata.SubmitterName != "Jane Roe" {
		t.Errorf("unexpected metadata %+v", doc.Metadata)
	}
}

func TestImport_RejectsBadHierarchy(t *testing.T) {
	b, err := Load(writeBundle(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	b.Hierarchy[0].Children[0].Cutoff = 0.2

	st, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	err = Import(context.Background(), st, b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	var inv *hierarchy.InvariantError
	if !errors.As(err, &inv) {
		t.Errorf("expected InvariantError, got %v", err)
	}
	ctx := context.Background()
	if _, err := st.Hierarchy(ctx, "FCC-2014-0001", false); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected no hierarchy stored, got %v", err)
	}
	if _, err := st.Docket(ctx, "FCC-2014-0001"); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected no docket stored, got %v", err)
	}
	n, err := st.CountDocuments(ctx, "FCC-2014-0001")
	if err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no documents stored, got %d", n)
	}
	if _, err := st.AgencyName(ctx, "FCC"); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected no agency stored, got %v", err)
	}
}
