package hierarchy

// CountAtCutoff counts the clusters visible at cutoff: nodes whose cutoff
// equals it, reached only through ancestors with a lower cutoff.
//
// A child with a higher cutoff than requested under a parent with a lower
// one means the tree skipped the requested level, which a well-formed
// dendrogram never does. Such nodes are neither counted nor descended into;
// skipped reports how many were found so the caller can flag the tree.
// Roots finer than the cutoff are simply not visible and are not reported.
func CountAtCutoff(roots []Node, cutoff float64) (count, skipped int) {
	return countAt(roots, cutoff, false)
}

func countAt(nodes []Node, cutoff float64, nested bool) (count, skipped int) {
	for i := range nodes {
		n := &nodes[i]
		switch {
		case n.Cutoff == cutoff:
			count++
		case n.Cutoff < cutoff:
			c, s := countAt(n.Children, cutoff, true)
			count += c
			skipped += s
		case nested:
			skipped++
		}
	}
	return count, skipped
}
