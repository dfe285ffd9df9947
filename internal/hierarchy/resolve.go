package hierarchy

// Resolve finds the cluster a caller addressed by id at the given cutoff.
//
// Corpora name a cluster after one of its member documents, so clusterID is
// first located as a document at cutoff. When no cluster holds such a
// document the tree is searched for a node carrying clusterID itself.
func Resolve(roots []Node, clusterID int64, cutoff float64) *Node {
	if n := Locate(roots, clusterID, cutoff); n != nil {
		return n
	}
	return byID(roots, clusterID)
}

func byID(nodes []Node, id int64) *Node {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if n := byID(nodes[i].Children, id); n != nil {
			return n
		}
	}
	return nil
}
