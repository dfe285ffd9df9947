package hierarchy

import (
	"fmt"
)

// InvariantError describes a structural defect in a hierarchy.
type InvariantError struct {
	Cluster int64
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("cluster %d: %s", e.Cluster, e.Reason)
}

// Validate checks that cutoffs strictly increase with depth, that sizes
// match member counts, and that children partition their parent's members.
// Roots must be pairwise disjoint.
func Validate(roots []Node) error {
	seen := make(map[int64]int64)
	for i := range roots {
		for _, m := range roots[i].Members {
			if other, dup := seen[m]; dup {
				return &InvariantError{Cluster: roots[i].ID, Reason: fmt.Sprintf("document %d also in root %d", m, other)}
			}
			seen[m] = roots[i].ID
		}
		if err := validateNode(&roots[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateNode(n *Node) error {
	if err := ValidateCutoff(n.Cutoff); err != nil {
		return &InvariantError{Cluster: n.ID, Reason: err.Error()}
	}
	if n.Size != len(n.Members) {
		return &InvariantError{Cluster: n.ID, Reason: fmt.Sprintf("size %d but %d members", n.Size, len(n.Members))}
	}
	if len(n.Children) == 0 {
		return nil
	}

	parent := make(map[int64]bool, len(n.Members))
	for _, m := range n.Members {
		parent[m] = true
	}
	covered := 0
	for i := range n.Children {
		c := &n.Children[i]
		if c.Cutoff <= n.Cutoff {
			return &InvariantError{Cluster: c.ID, Reason: fmt.Sprintf("cutoff %v not above parent %d cutoff %v", c.Cutoff, n.ID, n.Cutoff)}
		}
		for _, m := range c.Members {
			if !parent[m] {
				return &InvariantError{Cluster: c.ID, Reason: fmt.Sprintf("document %d not in parent %d or claimed twice", m, n.ID)}
			}
			delete(parent, m)
			covered++
		}
		if err := validateNode(c); err != nil {
			return err
		}
	}
	if covered != n.Size {
		return &InvariantError{Cluster: n.ID, Reason: fmt.Sprintf("children cover %d of %d members", covered, n.Size)}
	}
	return nil
}
