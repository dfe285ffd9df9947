// Package hierarchy walks and aggregates the cutoff-indexed cluster tree
// (dendrogram) of a docket.
//
// A hierarchy is a forest: the roots partition every clustered document of
// the docket at the lowest cutoff, and every child refines its parent at a
// strictly higher cutoff. Nothing in this package mutates a caller's tree.
package hierarchy

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Node is one cluster in the dendrogram.
type Node struct {
	ID       int64    `json:"id"`
	Cutoff   float64  `json:"cutoff"`
	Size     int      `json:"size"`
	Members  []int64  `json:"members"`
	Children []Node   `json:"children"`
	Phrases  []string `json:"phrases,omitempty"` // Only present when summaries were requested.
}

// View is a Node with its member list stripped, for transport.
type View struct {
	ID       int64    `json:"id"`
	Cutoff   float64  `json:"cutoff"`
	Size     int      `json:"size"`
	Children []View   `json:"children"`
	Phrases  []string `json:"phrases,omitempty"`
}

// Step is one level of a document's cluster chain.
type Step struct {
	Cutoff float64 `json:"cutoff"`
	ID     int64   `json:"id"`
	Size   int     `json:"size"`
}

// ErrCutoffRange is returned for a cutoff that is not a number in [0, 1].
var ErrCutoffRange = errors.New("cutoff out of range")

// Contains reports whether doc is a member of n.
func (n *Node) Contains(doc int64) bool {
	return slices.Contains(n.Members, doc)
}

// ValidateCutoff rejects cutoffs outside [0, 1].
func ValidateCutoff(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: %v", ErrCutoffRange, c)
	}
	return nil
}

// RoundCutoff rounds a cutoff to two decimals for display.
func RoundCutoff(c float64) float64 {
	return math.Round(c*100) / 100
}

// Project returns a deep, order-preserving copy of roots without member
// lists. The input is left untouched.
func Project(roots []Node) []View {
	out := make([]View, len(roots))
	for i, n := range roots {
		out[i] = View{
			ID:       n.ID,
			Cutoff:   n.Cutoff,
			Size:     n.Size,
			Children: Project(n.Children),
			Phrases:  slices.Clone(n.Phrases),
		}
	}
	return out
}
