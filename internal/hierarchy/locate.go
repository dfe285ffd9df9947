package hierarchy

// Locate returns the most specific node containing doc whose cutoff does not
// pass the target: starting from the root that holds doc, it descends into
// the child holding doc while the current node's cutoff is below the target.
// It returns nil when no root contains doc.
func Locate(roots []Node, doc int64, cutoff float64) *Node {
	cur := find(roots, doc)
	for cur != nil && cur.Cutoff < cutoff && len(cur.Children) > 0 {
		next := find(cur.Children, doc)
		if next == nil {
			// Children do not cover the parent; the parent is the best answer.
			break
		}
		cur = next
	}
	return cur
}

// Trace returns every node containing doc, from the coarsest root to the
// finest leaf. It returns nil when doc is not clustered.
func Trace(roots []Node, doc int64) []Step {
	var chain []Step
	for cur := find(roots, doc); cur != nil; cur = find(cur.Children, doc) {
		chain = append(chain, Step{Cutoff: cur.Cutoff, ID: cur.ID, Size: cur.Size})
	}
	return chain
}

func find(nodes []Node, doc int64) *Node {
	for i := range nodes {
		if nodes[i].Contains(doc) {
			return &nodes[i]
		}
	}
	return nil
}
