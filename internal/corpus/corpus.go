// Package corpus defines the collaborators that supply docket data to the
// clustering views: the corpus provider and the docket/agency store.
package corpus

import (
	"context"
	"errors"
	"strings"

	"github.com/dgallion1/clusterdesk/internal/hierarchy"
	"github.com/dgallion1/clusterdesk/internal/highlight"
)

// ErrNotFound is returned when a docket, document or cluster has no data.
var ErrNotFound = errors.New("not found")

// DateRange is the span of comment dates in a docket.
type DateRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Docket is the stored record for a regulatory docket.
type Docket struct {
	ID        string
	Agency    string     // Empty when the docket does not record one.
	Count     *int       // Total documents; nil when unknown.
	DateRange *DateRange // nil when unknown.
}

// DocMeta is the per-document metadata shown next to cluster members.
type DocMeta struct {
	Title                 string `json:"title"`
	DocumentID            string `json:"document_id"`
	SubmitterName         string `json:"submitter_name,omitempty"`
	SubmitterOrganization string `json:"submitter_organization,omitempty"`
}

// Submitter joins the non-empty submitter fields with ", ".
func (m DocMeta) Submitter() string {
	var parts []string
	for _, f := range []string{m.SubmitterName, m.SubmitterOrganization} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, ", ")
}

// Document is a corpus document with its (possibly capped) text.
type Document struct {
	ID       int64
	DocketID string
	Text     string
	Metadata DocMeta
}

// Provider supplies per-docket clustering data.
type Provider interface {
	// Hierarchy returns a freshly built forest the caller may own.
	Hierarchy(ctx context.Context, docketID string, withSummaries bool) ([]hierarchy.Node, error)
	Document(ctx context.Context, docID int64) (*Document, error)
	// PhraseOverlap returns the phrases of docID weighted by how many of
	// members share them, with their spans inside docID's text.
	PhraseOverlap(ctx context.Context, docID int64, members []int64) ([]highlight.Phrase, error)
	Metadata(ctx context.Context, docIDs []int64) (map[int64]DocMeta, error)
	// DocByDocumentID maps a public document identifier to a corpus id.
	DocByDocumentID(ctx context.Context, documentID string) (*Document, error)
}

// DocketStore supplies docket records and agency names.
type DocketStore interface {
	Docket(ctx context.Context, id string) (*Docket, error)
	// AgencyName returns ErrNotFound for an unknown agency code.
	AgencyName(ctx context.Context, code string) (string, error)
}

// AgencyCode returns the docket's recorded agency, or the leading token of
// its id before the first "-".
func AgencyCode(d *Docket) string {
	if d.Agency != "" {
		return d.Agency
	}
	code, _, _ := strings.Cut(d.ID, "-")
	return code
}
