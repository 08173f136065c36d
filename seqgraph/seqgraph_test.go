package seqgraph

import (
	"strings"
	"testing"
)

func buildTiny(t *testing.T) *Graph {
	t.Helper()
	g := New()
	nodes := []struct {
		id  uint64
		seq string
	}{
		{20, "TGCT"},
		{21, "A"},
		{23, "GGTA"},
		{25, "TT"},
	}
	for _, n := range nodes {
		if err := g.AddNode(n.id, n.seq); err != nil {
			t.Fatalf("AddNode(%d): %v", n.id, err)
		}
	}
	edges := [][2]uint64{{20, 21}, {20, 23}, {21, 23}, {23, 25}}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1], EdgeForward); err != nil {
			t.Fatalf("AddEdge(%d,%d): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestRankIDBijection(t *testing.T) {
	g := buildTiny(t)
	if g.NodeCount() != 4 {
		t.Fatalf("NodeCount = %d, want 4", g.NodeCount())
	}
	for r := uint64(1); r <= g.NodeCount(); r++ {
		id := g.RankToID(r)
		if got := g.IDToRank(id); got != r {
			t.Errorf("IDToRank(RankToID(%d)) = %d", r, got)
		}
	}
	if g.RankToID(0) != 0 || g.RankToID(5) != 0 {
		t.Errorf("out-of-range rank should map to 0")
	}
}

func TestCoordinates(t *testing.T) {
	g := buildTiny(t)
	wantCoord := map[uint64]uint64{20: 0, 21: 4, 23: 5, 25: 9}
	for id, want := range wantCoord {
		if got := g.CoordinateID(id); got != want {
			t.Errorf("CoordinateID(%d) = %d, want %d", id, got, want)
		}
	}
	if g.TotalNofLoci() != 11 {
		t.Errorf("TotalNofLoci = %d, want 11", g.TotalNofLoci())
	}
}

func TestEdgesOut(t *testing.T) {
	g := buildTiny(t)
	if g.Outdegree(20) != 2 || !g.HasEdgesOut(20) {
		t.Errorf("Outdegree(20) = %d, want 2", g.Outdegree(20))
	}
	if g.HasEdgesOut(25) {
		t.Errorf("node 25 should be a sink")
	}
	var seen []uint64
	g.ForEachEdgesOut(20, func(to uint64, et EdgeType) bool {
		seen = append(seen, to)
		return true
	})
	if len(seen) != 2 || seen[0] != 21 || seen[1] != 23 {
		t.Errorf("ForEachEdgesOut(20) = %v", seen)
	}
	// early stop
	n := 0
	g.ForEachEdgesOut(20, func(to uint64, et EdgeType) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("visitation did not halt, n = %d", n)
	}
}

func TestForEachNode(t *testing.T) {
	g := buildTiny(t)
	var order []uint64
	g.ForEachNode(func(rank, id uint64) bool {
		order = append(order, id)
		return true
	}, 2)
	if len(order) != 3 || order[0] != 21 {
		t.Errorf("ForEachNode from rank 2 = %v", order)
	}
}

func TestVerifyRanks(t *testing.T) {
	g := buildTiny(t)
	if !g.VerifyRanks() {
		t.Errorf("tiny graph is topological")
	}
	bad := New()
	bad.AddNode(1, "A")
	bad.AddNode(2, "C")
	bad.AddEdge(2, 1, EdgeForward)
	if bad.VerifyRanks() {
		t.Errorf("back edge must fail rank verification")
	}
}

func TestChecksumStable(t *testing.T) {
	a, b := buildTiny(t), buildTiny(t)
	if a.Checksum() != b.Checksum() {
		t.Errorf("identical graphs must share a checksum")
	}
	b.AddNode(99, "T")
	if a.Checksum() == b.Checksum() {
		t.Errorf("checksum must change with content")
	}
}

func TestReadGraphText(t *testing.T) {
	src := `
# tiny graph
S 1 ACGT
S 2 GG
L 1 2 0
`
	g, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if g.NodeCount() != 2 || g.NodeSequence(1) != "ACGT" || g.Outdegree(1) != 1 {
		t.Errorf("parsed graph mismatch")
	}
	if _, err = Read(strings.NewReader("X 1 2\n")); err == nil {
		t.Errorf("unknown record must fail")
	}
}
