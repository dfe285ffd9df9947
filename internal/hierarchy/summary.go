package hierarchy

import (
	"slices"
)

// SummaryOptions controls Summarize.
type SummaryOptions struct {
	// Total is the docket's document count; nil when unknown.
	Total *int
	// Cutoff is the effective cutoff for an explicitly requested document.
	Cutoff float64
	// Document, when set, is preferred as the prepopulated selection.
	Document *int64
}

// Prepopulation is the default cluster/document selection.
type Prepopulation struct {
	Document int64   `json:"document"`
	Cluster  int64   `json:"cluster"`
	Cutoff   float64 `json:"cutoff"`
}

// Summary is the aggregate view of a docket's hierarchy.
type Summary struct {
	Clustered   int            `json:"clustered"`
	Unclustered *int           `json:"unclustered"`
	Listing     []View         `json:"cluster_hierarchy"`
	Prepopulate *Prepopulation `json:"prepopulate"`
}

// Summarize computes the clustered counts, the size-sorted listing and the
// prepopulated selection. Member lists are consumed before the listing is
// projected, and roots itself is never modified.
func Summarize(roots []Node, opts SummaryOptions) Summary {
	var s Summary
	for _, r := range roots {
		s.Clustered += r.Size
	}
	if opts.Total != nil {
		u := *opts.Total - s.Clustered
		s.Unclustered = &u
	}

	sorted := slices.Clone(roots)
	slices.SortStableFunc(sorted, func(a, b Node) int {
		return b.Size - a.Size
	})

	if opts.Document != nil {
		if n := Locate(roots, *opts.Document, opts.Cutoff); n != nil {
			s.Prepopulate = &Prepopulation{
				Document: *opts.Document,
				Cluster:  n.ID,
				Cutoff:   opts.Cutoff,
			}
		}
	}
	if s.Prepopulate == nil && s.Clustered > 0 {
		// The largest root resolves to itself at its own cutoff.
		top := sorted[0]
		if len(top.Members) > 0 {
			s.Prepopulate = &Prepopulation{
				Document: top.Members[0],
				Cluster:  top.ID,
				Cutoff:   top.Cutoff,
			}
		}
	}

	s.Listing = Project(sorted)
	return s
}
