package cluster

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/clusterdesk/internal/cache"
	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/highlight"
	"github.com/dgallion1/clusterdesk/internal/viewstats"
)

const testDocket = "FCC-2014-0001"

// fakeCorpus is an in-memory Provider and DocketStore.
type fakeCorpus struct {
	dockets       map[string]*corpus.Docket
	agencies      map[string]string
	roots         []hierarchy.Node
	docs          map[int64]*corpus.Document
	phrases       map[int64][]highlight.Phrase
	metadataCalls int
}

func newFakeCorpus() *fakeCorpus {
	count := 10
	return &fakeCorpus{
		dockets: map[string]*corpus.Docket{
			testDocket: {ID: testDocket, Count: &count, DateRange: &corpus.DateRange{Start: "2014-05-15", End: "2014-09-15"}},
		},
		agencies: map[string]string{"FCC": "Federal Communications Commission"},
		roots:    fixture(),
		docs: map[int64]*corpus.Document{
			1: {ID: 1, DocketID: testDocket, Text: "abcdef", Metadata: corpus.DocMeta{Title: "Comment 1", DocumentID: "FCC-2014-0001-0001", SubmitterName: "Jane Roe", SubmitterOrganization: "EFF"}},
			3: {ID: 3, DocketID: testDocket, Text: "the internet", Metadata: corpus.DocMeta{DocumentID: "FCC-2014-0001-0003"}},
			9: {ID: 9, DocketID: "EPA-HQ-2013-0602", Text: "elsewhere"},
		},
		phrases: map[int64][]highlight.Phrase{
			1: {{Text: "abc", Weight: 2, Occurrences: []highlight.Span{{Start: 0, End: 3}}}},
			3: {{Text: "internet", Weight: 1, Occurrences: []highlight.Span{{Start: 4, End: 99}}}},
		},
	}
}

// fixture builds two roots at 0.5. The second refines straight to 0.9.
//
//	10 (0.5) {1,2,3,4}
//	  11 (0.8) {1,2,3}
//	    12 (0.9) {1,2}
//	    13 (0.9) {3}
//	  14 (0.8) {4}
//	20 (0.5) {5,6}
//	  21 (0.9) {5,6}
func fixture() []hierarchy.Node {
	return []hierarchy.Node{
		{ID: 20, Cutoff: 0.5, Size: 2, Members: []int64{5, 6}, Children: []hierarchy.Node{
			{ID: 21, Cutoff: 0.9, Size: 2, Members: []int64{5, 6}},
		}},
		{ID: 10, Cutoff: 0.5, Size: 4, Members: []int64{1, 2, 3, 4}, Children: []hierarchy.Node{
			{ID: 11, Cutoff: 0.8, Size: 3, Members: []int64{1, 2, 3}, Children: []hierarchy.Node{
				{ID: 12, Cutoff: 0.9, Size: 2, Members: []int64{1, 2}},
				{ID: 13, Cutoff: 0.9, Size: 1, Members: []int64{3}},
			}},
			{ID: 14, Cutoff: 0.8, Size: 1, Members: []int64{4}},
		}},
	}
}

func (f *fakeCorpus) Docket(_ context.Context, id string) (*corpus.Docket, error) {
	d, ok := f.dockets[id]
	if !ok {
		return nil, corpus.ErrNotFound
	}
	return d, nil
}

func (f *fakeCorpus) AgencyName(_ context.Context, code string) (string, error) {
	name, ok := f.agencies[code]
	if !ok {
		return "", corpus.ErrNotFound
	}
	return name, nil
}

func (f *fakeCorpus) Hierarchy(_ context.Context, docketID string, _ bool) ([]hierarchy.Node, error) {
	if _, ok := f.dockets[docketID]; !ok {
		return nil, corpus.ErrNotFound
	}
	return f.roots, nil
}

func (f *fakeCorpus) Document(_ context.Context, id int64) (*corpus.Document, error) {
	d, ok := f.docs[id]
	if !ok {
		return nil, corpus.ErrNotFound
	}
	return d, nil
}

func (f *fakeCorpus) PhraseOverlap(_ context.Context, docID int64, _ []int64) ([]highlight.Phrase, error) {
	return f.phrases[docID], nil
}

func (f *fakeCorpus) Metadata(_ context.Context, ids []int64) (map[int64]corpus.DocMeta, error) {
	f.metadataCalls++
	out := make(map[int64]corpus.DocMeta)
	for _, id := range ids {
		if d, ok := f.docs[id]; ok {
			out[id] = d.Metadata
		}
	}
	return out, nil
}

func (f *fakeCorpus) DocByDocumentID(_ context.Context, documentID string) (*corpus.Document, error) {
	for _, d := range f.docs {
		if d.Metadata.DocumentID == documentID {
			return d, nil
		}
	}
	return nil, corpus.ErrNotFound
}

func newTestService(t *testing.T, f *fakeCorpus, opts Options) (*Service, *viewstats.Stats) {
	t.Helper()
	if opts.DefaultCutoff == 0 {
		opts.DefaultCutoff = 0.9
	}
	stats := viewstats.New(0)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(f, f, cache.NewMemory(0, 0), stats, log, opts), stats
}

func ptr[T any](v T) *T { return &v }

func TestDocketHierarchy_Defaults(t *testing.T) {
	svc, stats := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.DocketHierarchy(context.Background(), testDocket, HierarchyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Stats.Clustered != 6 {
		t.Errorf("expected 6 clustered, got %d", resp.Stats.Clustered)
	}
	if resp.Stats.Unclustered == nil || *resp.Stats.Unclustered != 4 {
		t.Errorf("expected 4 unclustered, got %v", resp.Stats.Unclustered)
	}
	if resp.Stats.DateRange == nil || resp.Stats.DateRange.End != "2014-09-15" {
		t.Errorf("unexpected date range %+v", resp.Stats.DateRange)
	}
	want := Agency{ID: "FCC", Name: "Federal Communications Commission", URL: "/agency/FCC"}
	if resp.Stats.Agency == nil || *resp.Stats.Agency != want {
		t.Errorf("expected agency %+v, got %+v", want, resp.Stats.Agency)
	}

	if len(resp.ClusterHierarchy) != 2 || resp.ClusterHierarchy[0].ID != 10 || resp.ClusterHierarchy[1].ID != 20 {
		t.Fatalf("expected roots sorted by size [10 20], got %+v", resp.ClusterHierarchy)
	}
	pp := resp.Prepopulate
	if pp == nil || *pp != (hierarchy.Prepopulation{Document: 1, Cluster: 10, Cutoff: 0.5}) {
		t.Errorf("unexpected prepopulation %+v", pp)
	}
	if _, ok := stats.Snapshot()["docket_hierarchy"]; !ok {
		t.Error("expected docket_hierarchy latency to be recorded")
	}
}

func TestDocketHierarchy_PrepopulateDocument(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.DocketHierarchy(context.Background(), testDocket, HierarchyRequest{PrepopulateDocument: ptr[int64](5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pp := resp.Prepopulate; pp == nil || *pp != (hierarchy.Prepopulation{Document: 5, Cluster: 21, Cutoff: 0.9}) {
		t.Errorf("unexpected prepopulation %+v", pp)
	}

	resp, err = svc.DocketHierarchy(context.Background(), testDocket, HierarchyRequest{
		PrepopulateDocument: ptr[int64](3),
		Cutoff:              ptr(0.8),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pp := resp.Prepopulate; pp == nil || pp.Cluster != 11 || pp.Cutoff != 0.8 {
		t.Errorf("unexpected prepopulation %+v", pp)
	}
}

func TestDocketHierarchy_UnknownAgency(t *testing.T) {
	f := newFakeCorpus()
	f.agencies = nil
	svc, _ := newTestService(t, f, Options{})
	resp, err := svc.DocketHierarchy(context.Background(), testDocket, HierarchyRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Stats.Agency != nil {
		t.Errorf("expected nil agency, got %+v", resp.Stats.Agency)
	}
}

func TestDocketHierarchy_Errors(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	ctx := context.Background()

	if _, err := svc.DocketHierarchy(ctx, "NOPE", HierarchyRequest{}); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.DocketHierarchy(ctx, testDocket, HierarchyRequest{Cutoff: ptr(1.5)}); !errors.Is(err, hierarchy.ErrCutoffRange) {
		t.Errorf("expected ErrCutoffRange, got %v", err)
	}
}

func TestTeaser_Docket(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.Teaser(context.Background(), testDocket, ItemDocket)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := resp.DocketTeaser["0.5"].Count; got != 2 {
		t.Errorf("expected 2 clusters at 0.5, got %d", got)
	}
	// Root 20 jumps from 0.5 to 0.9 and contributes nothing at 0.8.
	if got := resp.DocketTeaser["0.8"].Count; got != 2 {
		t.Errorf("expected 2 clusters at 0.8, got %d", got)
	}
	if resp.DocumentTeaser != nil {
		t.Errorf("expected no document teaser, got %+v", resp.DocumentTeaser)
	}
}

func TestTeaser_Document(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.Teaser(context.Background(), "FCC-2014-0001-0003", ItemDocument)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DocumentTeaser == nil {
		t.Fatal("expected document teaser")
	}
	dt := *resp.DocumentTeaser
	if dt["0.5"] != (DocTeaser{Count: 4, ID: 3}) {
		t.Errorf("unexpected 0.5 teaser %+v", dt["0.5"])
	}
	if dt["0.8"] != (DocTeaser{Count: 3, ID: 3}) {
		t.Errorf("unexpected 0.8 teaser %+v", dt["0.8"])
	}

	if _, err := svc.Teaser(context.Background(), "missing", ItemDocument); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTeaser_DocumentNotClustered(t *testing.T) {
	f := newFakeCorpus()
	f.docs[7] = &corpus.Document{ID: 7, DocketID: testDocket, Metadata: corpus.DocMeta{DocumentID: "FCC-2014-0001-0007"}}
	svc, _ := newTestService(t, f, Options{})
	resp, err := svc.Teaser(context.Background(), "FCC-2014-0001-0007", ItemDocument)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.DocumentTeaser == nil || len(*resp.DocumentTeaser) != 0 {
		t.Errorf("expected empty document teaser, got %+v", resp.DocumentTeaser)
	}
}

func TestSingleCluster(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.SingleCluster(context.Background(), testDocket, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != 12 || len(resp.Documents) != 2 {
		t.Fatalf("expected cluster 12 with 2 documents, got %+v", resp)
	}
	first := resp.Documents[0]
	if first.ID != 1 || first.Title == nil || *first.Title != "Comment 1" {
		t.Errorf("unexpected first row %+v", first)
	}
	if first.Submitter == nil || *first.Submitter != "Jane Roe, EFF" {
		t.Errorf("unexpected submitter %v", first.Submitter)
	}
	if second := resp.Documents[1]; second.ID != 2 || second.Title != nil || second.Submitter != nil {
		t.Errorf("expected doc 2 without metadata, got %+v", second)
	}
}

func TestSingleCluster_ByNodeID(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.SingleCluster(context.Background(), testDocket, 14, ptr(0.8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != 14 || len(resp.Documents) != 1 || resp.Documents[0].ID != 4 {
		t.Errorf("unexpected cluster %+v", resp)
	}

	if _, err := svc.SingleCluster(context.Background(), testDocket, 999, nil); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSingleCluster_CachesLargeClusters(t *testing.T) {
	f := newFakeCorpus()
	svc, _ := newTestService(t, f, Options{LargeClusterThreshold: 1})
	ctx := context.Background()
	for range 3 {
		if _, err := svc.SingleCluster(ctx, testDocket, 1, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.metadataCalls != 1 {
		t.Errorf("expected 1 metadata fetch for a cached cluster, got %d", f.metadataCalls)
	}
}

func TestSingleCluster_SmallClustersNotCached(t *testing.T) {
	f := newFakeCorpus()
	svc, _ := newTestService(t, f, Options{})
	ctx := context.Background()
	for range 3 {
		if _, err := svc.SingleCluster(ctx, testDocket, 1, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.metadataCalls != 3 {
		t.Errorf("expected 3 metadata fetches, got %d", f.metadataCalls)
	}
}

// sizedRoot is a childless root whose members are first, first+1, ...
func sizedRoot(first int64, size int) hierarchy.Node {
	members := make([]int64, size)
	for i := range members {
		members[i] = first + int64(i)
	}
	return hierarchy.Node{ID: first, Cutoff: 0.5, Size: size, Members: members}
}

func TestSingleCluster_CacheThreshold(t *testing.T) {
	const threshold = 1000
	tests := []struct {
		name      string
		size      int
		wantCalls int
	}{
		{"at threshold", threshold, 3},
		{"above threshold", threshold + 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeCorpus()
			f.roots = []hierarchy.Node{sizedRoot(1, tt.size)}
			svc, _ := newTestService(t, f, Options{})
			ctx := context.Background()
			for range 3 {
				resp, err := svc.SingleCluster(ctx, testDocket, 1, ptr(0.5))
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(resp.Documents) != tt.size {
					t.Fatalf("expected %d documents, got %d", tt.size, len(resp.Documents))
				}
			}
			if f.metadataCalls != tt.wantCalls {
				t.Errorf("expected %d metadata fetches, got %d", tt.wantCalls, f.metadataCalls)
			}
		})
	}
}

func TestDocumentCluster(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	resp, err := svc.DocumentCluster(context.Background(), testDocket, 1, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Metadata.Title == nil || *resp.Metadata.Title != "Comment 1" {
		t.Errorf("unexpected title %v", resp.Metadata.Title)
	}
	if resp.Metadata.Submitter != "Jane Roe, EFF" {
		t.Errorf("unexpected submitter %q", resp.Metadata.Submitter)
	}
	if resp.Metadata.DocumentID == nil || *resp.Metadata.DocumentID != "FCC-2014-0001-0001" {
		t.Errorf("unexpected document id %v", resp.Metadata.DocumentID)
	}

	// Cluster 12 has two members and "abc" is shared by both.
	want := []highlight.Segment{
		{Weight: 2, Intensity: 1, Text: "abc"},
		{Weight: 0, Intensity: 0, Text: "def"},
	}
	if len(resp.Segments) != len(want) {
		t.Fatalf("expected %d segments, got %+v", len(want), resp.Segments)
	}
	for i := range want {
		if resp.Segments[i] != want[i] {
			t.Errorf("segment %d: expected %+v, got %+v", i, want[i], resp.Segments[i])
		}
	}
	if !strings.Contains(resp.HTML, "rgba(160,211,216,1)") {
		t.Errorf("expected full intensity span, got %q", resp.HTML)
	}
	if resp.Truncated {
		t.Error("expected short text not to be truncated")
	}
}

func TestDocumentCluster_Truncated(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{MaxDocumentChars: 6})
	resp, err := svc.DocumentCluster(context.Background(), testDocket, 1, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Truncated {
		t.Error("expected text at the cap to be flagged truncated")
	}
}

func TestDocumentCluster_Errors(t *testing.T) {
	svc, _ := newTestService(t, newFakeCorpus(), Options{})
	ctx := context.Background()

	if _, err := svc.DocumentCluster(ctx, testDocket, 3, 3, nil); !errors.Is(err, highlight.ErrSpanOutOfBounds) {
		t.Errorf("expected ErrSpanOutOfBounds, got %v", err)
	}
	if _, err := svc.DocumentCluster(ctx, testDocket, 1, 9, nil); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected ErrNotFound for a document of another docket, got %v", err)
	}
	if _, err := svc.DocumentCluster(ctx, testDocket, 1, 404, nil); !errors.Is(err, corpus.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.DocumentCluster(ctx, testDocket, 1, 1, ptr(-0.1)); !errors.Is(err, hierarchy.ErrCutoffRange) {
		t.Errorf("expected ErrCutoffRange, got %v", err)
	}
}

func TestClusterChain(t *testing.T) {
	f := newFakeCorpus()
	f.roots[1].Children[0].Cutoff = 0.80000001
	svc, _ := newTestService(t, f, Options{})
	resp, err := svc.ClusterChain(context.Background(), testDocket, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []hierarchy.Step{
		{Cutoff: 0.5, ID: 10, Size: 4},
		{Cutoff: 0.8, ID: 11, Size: 3},
		{Cutoff: 0.9, ID: 13, Size: 1},
	}
	if len(resp.Clusters) != len(want) {
		t.Fatalf("expected %d steps, got %+v", len(want), resp.Clusters)
	}
	for i := range want {
		if resp.Clusters[i] != want[i] {
			t.Errorf("step %d: expected %+v, got %+v", i, want[i], resp.Clusters[i])
		}
	}

	resp, err = svc.ClusterChain(context.Background(), testDocket, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Clusters == nil || len(resp.Clusters) != 0 {
		t.Errorf("expected empty chain, got %+v", resp.Clusters)
	}
}
