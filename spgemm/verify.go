package spgemm

import (
	"fmt"
	"math/rand"

	"psi/crs"
	"psi/seqgraph"
)

// VerifyCompression samples a fraction p of the graph's nodes and
// checks that the distance matrix has no set bit between two positions
// inside the same node's character interval. Such bits are witnessed by
// every path through the node and must have been compressed away.
func VerifyCompression(m *crs.Matrix, g *seqgraph.Graph, p float64, seed int64) error {
	rng := rand.New(rand.NewSource(seed))
	var bad error
	g.ForEachNode(func(rank, id uint64) bool {
		if rng.Float64() >= p {
			return true
		}
		base := g.CoordinateID(id)
		l := uint64(g.NodeLength(id))
		for i := uint64(0); i < l; i++ {
			for j := i + 1; j < l; j++ {
				set, err := m.At(base+i, base+j)
				if err != nil {
					bad = err
					return false
				}
				if set {
					bad = fmt.Errorf("VerifyCompression: redundant bit (%d,%d) inside node %d", base+i, base+j, id)
					return false
				}
			}
		}
		return true
	}, 1)
	return bad
}
