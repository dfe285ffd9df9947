// Package cluster composes the corpus, the hierarchy navigator and the
// overlap highlighter into the payloads served for each clustering view.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgallion1/clusterdesk/internal/cache"
	"github.com/dgallion1/clusterdesk/internal/corpus"
	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/highlight"
	"github.com/dgallion1/clusterdesk/internal/metrics"
	"github.com/dgallion1/clusterdesk/internal/viewstats"
)

// TeaserCutoffs are the granularities summarized by teasers.
var TeaserCutoffs = []float64{0.5, 0.8}

// Options are the clustering parameters applied to every view.
type Options struct {
	DefaultCutoff float64
	// Metadata for clusters with more members than this is cached.
	LargeClusterThreshold int
	// MaxDocumentChars is the provider text cap used to flag truncation.
	MaxDocumentChars int
}

// Service serves the clustering views of every docket.
type Service struct {
	corpus  corpus.Provider
	dockets corpus.DocketStore
	cache   cache.Cache
	stats   *viewstats.Stats
	log     *slog.Logger
	opts    Options
}

func NewService(p corpus.Provider, ds corpus.DocketStore, c cache.Cache, stats *viewstats.Stats, log *slog.Logger, opts Options) *Service {
	if opts.LargeClusterThreshold <= 0 {
		opts.LargeClusterThreshold = 1000
	}
	if opts.MaxDocumentChars <= 0 {
		opts.MaxDocumentChars = highlight.DefaultCap
	}
	return &Service{
		corpus:  p,
		dockets: ds,
		cache:   c,
		stats:   stats,
		log:     log,
		opts:    opts,
	}
}

func (s *Service) observe(view string, start time.Time) {
	d := time.Since(start)
	metrics.ViewDuration.WithLabelValues(view).Observe(d.Seconds())
	if s.stats != nil {
		s.stats.Record(view, d)
	}
}

// cutoff resolves an optional override against the default.
func (s *Service) cutoff(override *float64) (float64, error) {
	c := s.opts.DefaultCutoff
	if override != nil {
		c = *override
	}
	if err := hierarchy.ValidateCutoff(c); err != nil {
		return 0, err
	}
	return c, nil
}

// HierarchyRequest carries the optional parameters of DocketHierarchy.
type HierarchyRequest struct {
	Cutoff              *float64
	PrepopulateDocument *int64
	RequireSummaries    bool
}

// Agency is the resolved agency of a docket.
type Agency struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Stats is the stats block of a docket summary.
type Stats struct {
	Clustered   int               `json:"clustered"`
	Unclustered *int              `json:"unclustered"`
	DateRange   *corpus.DateRange `json:"date_range"`
	Agency      *Agency           `json:"agency"`
}

// HierarchyResponse is the docket summary payload.
type HierarchyResponse struct {
	ClusterHierarchy []hierarchy.View        `json:"cluster_hierarchy"`
	Stats            Stats                   `json:"stats"`
	Prepopulate      *hierarchy.Prepopulation `json:"prepopulate"`
}

// DocketHierarchy returns the docket's counts, the size-sorted cluster
// listing without members, and the cluster/document to show first.
func (s *Service) DocketHierarchy(ctx context.Context, docketID string, req HierarchyRequest) (*HierarchyResponse, error) {
	defer s.observe("docket_hierarchy", time.Now())

	cutoff, err := s.cutoff(req.Cutoff)
	if err != nil {
		return nil, err
	}
	docket, err := s.dockets.Docket(ctx, docketID)
	if err != nil {
		return nil, err
	}
	roots, err := s.corpus.Hierarchy(ctx, docketID, req.RequireSummaries)
	if err != nil {
		return nil, err
	}

	sum := hierarchy.Summarize(roots, hierarchy.SummaryOptions{
		Total:    docket.Count,
		Cutoff:   cutoff,
		Document: req.PrepopulateDocument,
	})

	agency, err := s.agency(ctx, docket)
	if err != nil {
		return nil, err
	}

	return &HierarchyResponse{
		ClusterHierarchy: sum.Listing,
		Stats: Stats{
			Clustered:   sum.Clustered,
			Unclustered: sum.Unclustered,
			DateRange:   docket.DateRange,
			Agency:      agency,
		},
		Prepopulate: sum.Prepopulate,
	}, nil
}

// agency resolves the docket's agency; an unknown code yields nil.
func (s *Service) agency(ctx context.Context, d *corpus.Docket) (*Agency, error) {
	code := corpus.AgencyCode(d)
	if code == "" {
		return nil, nil
	}
	name, err := s.dockets.AgencyName(ctx, code)
	if errors.Is(err, corpus.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Agency{ID: code, Name: name, URL: "/agency/" + code}, nil
}

// ItemType selects what a teaser's item id refers to.
type ItemType int

const (
	ItemDocket ItemType = iota
	ItemDocument
)

// TeaserCount is the cluster count at one cutoff.
type TeaserCount struct {
	Count int `json:"count"`
}

// DocTeaser is the size of a document's cluster at one cutoff.
type DocTeaser struct {
	Count int   `json:"count"`
	ID    int64 `json:"id"`
}

// DocumentTeaser maps a formatted cutoff to the document's cluster.
type DocumentTeaser map[string]DocTeaser

// TeaserResponse is the teaser payload.
type TeaserResponse struct {
	DocketTeaser   map[string]TeaserCount `json:"docket_teaser"`
	DocumentTeaser *DocumentTeaser        `json:"document_teaser,omitempty"`
}

// Teaser counts the docket's clusters at each teaser cutoff. For a document
// item it also reports the size of the document's cluster at 0.5 and, when
// that resolves, at 0.8.
func (s *Service) Teaser(ctx context.Context, itemID string, kind ItemType) (*TeaserResponse, error) {
	defer s.observe("hierarchy_teaser", time.Now())

	docketID := itemID
	var doc *corpus.Document
	if kind == ItemDocument {
		d, err := s.corpus.DocByDocumentID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		doc = d
		docketID = d.DocketID
	}

	roots, err := s.corpus.Hierarchy(ctx, docketID, false)
	if err != nil {
		return nil, err
	}

	out := &TeaserResponse{DocketTeaser: make(map[string]TeaserCount, len(TeaserCutoffs))}
	for _, c := range TeaserCutoffs {
		count, skipped := hierarchy.CountAtCutoff(roots, c)
		if skipped > 0 {
			metrics.TeaserSkipped.Add(float64(skipped))
			s.log.Warn("hierarchy skips teaser cutoff",
				"docket", docketID,
				"cutoff", c,
				"skipped_nodes", skipped,
			)
		}
		out.DocketTeaser[cutoffKey(c)] = TeaserCount{Count: count}
	}

	if doc != nil {
		dt := DocumentTeaser{}
		for _, c := range TeaserCutoffs {
			n := hierarchy.Locate(roots, doc.ID, c)
			if n == nil {
				break
			}
			dt[cutoffKey(c)] = DocTeaser{Count: n.Size, ID: doc.ID}
		}
		out.DocumentTeaser = &dt
	}
	return out, nil
}

func cutoffKey(c float64) string {
	return strconv.FormatFloat(c, 'f', -1, 64)
}

// DocumentSummary is one member row of a single-cluster payload.
type DocumentSummary struct {
	ID        int64   `json:"id"`
	Title     *string `json:"title"`
	Submitter *string `json:"submitter"`
}

// ClusterResponse is the single-cluster payload.
type ClusterResponse struct {
	ID        int64             `json:"id"`
	Documents []DocumentSummary `json:"documents"`
}

// SingleCluster lists the members of a cluster at cutoff with their titles
// and submitters, in corpus order.
func (s *Service) SingleCluster(ctx context.Context, docketID string, clusterID int64, cutoffOverride *float64) (*ClusterResponse, error) {
	defer s.observe("single_cluster", time.Now())

	cutoff, err := s.cutoff(cutoffOverride)
	if err != nil {
		return nil, err
	}
	roots, err := s.corpus.Hierarchy(ctx, docketID, false)
	if err != nil {
		return nil, err
	}
	n := hierarchy.Resolve(roots, clusterID, cutoff)
	if n == nil {
		return nil, fmt.Errorf("cluster %d in docket %s: %w", clusterID, docketID, corpus.ErrNotFound)
	}

	metas, err := s.memberMetadata(ctx, docketID, clusterID, n.Members)
	if err != nil {
		return nil, err
	}

	out := &ClusterResponse{ID: n.ID, Documents: make([]DocumentSummary, 0, len(n.Members))}
	for _, id := range n.Members {
		row := DocumentSummary{ID: id}
		if m, ok := metas[id]; ok {
			title, submitter := m.Title, m.Submitter()
			row.Title, row.Submitter = &title, &submitter
		}
		out.Documents = append(out.Documents, row)
	}
	return out, nil
}

// memberMetadata fetches member metadata, memoizing it for large clusters.
// Small clusters are always fetched fresh.
func (s *Service) memberMetadata(ctx context.Context, docketID string, clusterID int64, members []int64) (map[int64]corpus.DocMeta, error) {
	if len(members) <= s.opts.LargeClusterThreshold || s.cache == nil {
		return s.corpus.Metadata(ctx, members)
	}

	key := cache.MemberKey(docketID, clusterID, members)
	if v, ok := s.cache.Get(key); ok {
		if metas, ok := v.(map[int64]corpus.DocMeta); ok {
			metrics.MetadataCache.WithLabelValues("hit").Inc()
			return metas, nil
		}
	}
	metrics.MetadataCache.WithLabelValues("miss").Inc()

	metas, err := s.corpus.Metadata(ctx, members)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, metas)
	return metas, nil
}

// DocumentMetadata is the metadata block of a document-overlap payload.
type DocumentMetadata struct {
	Title      *string `json:"title"`
	Submitter  string  `json:"submitter"`
	DocumentID *string `json:"document_id"`
}

// DocumentClusterResponse is the document-overlap payload.
type DocumentClusterResponse struct {
	Metadata DocumentMetadata `json:"metadata"`
	highlight.Annotation
}

// DocumentCluster annotates a document's text with the phrases it shares
// with the members of a cluster, weighted by how many members share each.
func (s *Service) DocumentCluster(ctx context.Context, docketID string, clusterID, docID int64, cutoffOverride *float64) (*DocumentClusterResponse, error) {
	defer s.observe("document_cluster", time.Now())

	cutoff, err := s.cutoff(cutoffOverride)
	if err != nil {
		return nil, err
	}
	roots, err := s.corpus.Hierarchy(ctx, docketID, false)
	if err != nil {
		return nil, err
	}
	n := hierarchy.Resolve(roots, clusterID, cutoff)
	if n == nil {
		return nil, fmt.Errorf("cluster %d in docket %s: %w", clusterID, docketID, corpus.ErrNotFound)
	}

	doc, err := s.corpus.Document(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.DocketID != docketID {
		return nil, fmt.Errorf("document %d in docket %s: %w", docID, docketID, corpus.ErrNotFound)
	}

	phrases, err := s.corpus.PhraseOverlap(ctx, docID, n.Members)
	if err != nil {
		return nil, err
	}
	ann, err := highlight.Annotate(doc.Text, phrases, float64(len(n.Members)), s.opts.MaxDocumentChars)
	if err != nil {
		s.log.Error("phrase occurrences do not fit document text",
			"docket", docketID,
			"cluster", clusterID,
			"document", docID,
			"error", err,
		)
		return nil, fmt.Errorf("annotate document %d: %w", docID, err)
	}

	return &DocumentClusterResponse{
		Metadata: DocumentMetadata{
			Title:      nonEmpty(doc.Metadata.Title),
			Submitter:  doc.Metadata.Submitter(),
			DocumentID: nonEmpty(doc.Metadata.DocumentID),
		},
		Annotation: ann,
	}, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ChainResponse is the cluster-chain payload.
type ChainResponse struct {
	Clusters []hierarchy.Step `json:"clusters"`
}

// ClusterChain lists every cluster containing the document from coarsest
// to finest, with cutoffs rounded for display.
func (s *Service) ClusterChain(ctx context.Context, docketID string, docID int64) (*ChainResponse, error) {
	defer s.observe("cluster_chain", time.Now())

	roots, err := s.corpus.Hierarchy(ctx, docketID, false)
	if err != nil {
		return nil, err
	}
	chain := hierarchy.Trace(roots, docID)
	out := &ChainResponse{Clusters: make([]hierarchy.Step, len(chain))}
	for i, st := range chain {
		st.Cutoff = hierarchy.RoundCutoff(st.Cutoff)
		out.Clusters[i] = st
	}
	return out, nil
}
