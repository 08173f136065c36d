package pathset

import (
	"bytes"
	"testing"

	"psi/pathseq"
	"psi/seqgraph"
)

// chain 2-5-6-7-9-11-{12,13}
func branchGraph(t *testing.T) *seqgraph.Graph {
	t.Helper()
	g := seqgraph.New()
	for _, n := range []struct {
		id  uint64
		seq string
	}{{2, "AC"}, {5, "G"}, {6, "TT"}, {7, "CA"}, {9, "G"}, {11, "AAC"}, {12, "T"}, {13, "GG"}} {
		if err := g.AddNode(n.id, n.seq); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	for _, e := range [][2]uint64{{2, 5}, {5, 6}, {6, 7}, {7, 9}, {9, 11}, {11, 12}, {11, 13}} {
		if err := g.AddEdge(e[0], e[1], seqgraph.EdgeForward); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	return g
}

func addPath(t *testing.T, ps *PathSet, nodes []uint64) {
	t.Helper()
	p := pathseq.NewCompact(ps.Graph())
	if err := p.SetNodes(nodes, 0, 0); err != nil {
		t.Fatalf("SetNodes(%v): %v", nodes, err)
	}
	ps.PushBack(p)
}

func twoPathSet(t *testing.T) *PathSet {
	ps := New(branchGraph(t))
	addPath(t, ps, []uint64{2, 5, 6, 7, 9, 11, 12})
	addPath(t, ps, []uint64{2, 5, 6, 7, 9, 11, 13})
	ps.Initialize()
	return ps
}

func TestFound(t *testing.T) {
	ps := twoPathSet(t)
	cases := []struct {
		ids  []uint64
		want bool
	}{
		{[]uint64{2, 5, 6, 7}, true},
		{[]uint64{6, 7, 11}, false},
		{[]uint64{9, 11, 12}, true},
		{[]uint64{9, 11, 13}, true},
		{[]uint64{12, 13}, false},
		{[]uint64{2}, true},
		{[]uint64{25}, false}, // must not glue "2,5" into "25"
		{[]uint64{56, 7}, false},
		{nil, false},
	}
	for _, c := range cases {
		if got := ps.Found(c.ids); got != c.want {
			t.Errorf("Found(%v) = %v, want %v", c.ids, got, c.want)
		}
	}
}

func TestOccurrences(t *testing.T) {
	ps := twoPathSet(t)
	occs := ps.Occurrences([]uint64{6, 7})
	if len(occs) != 2 {
		t.Fatalf("Occurrences(6,7) = %v", occs)
	}
	for _, o := range occs {
		if o.Ordinal != 2 {
			t.Errorf("ordinal of node 6 = %d, want 2", o.Ordinal)
		}
	}
	occs = ps.Occurrences([]uint64{13})
	if len(occs) != 1 || occs[0].PathIndex != 1 || occs[0].Ordinal != 6 {
		t.Errorf("Occurrences(13) = %v", occs)
	}
	if occs = ps.Occurrences([]uint64{4}); len(occs) != 0 {
		t.Errorf("Occurrences(4) = %v", occs)
	}
}

func TestForEachOrder(t *testing.T) {
	ps := twoPathSet(t)
	var lasts []uint64
	ps.ForEach(func(i uint64, p *pathseq.Compact) bool {
		nodes := p.Nodes()
		lasts = append(lasts, nodes[len(nodes)-1])
		return true
	})
	if len(lasts) != 2 || lasts[0] != 12 || lasts[1] != 13 {
		t.Errorf("insertion order lost: %v", lasts)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	ps := twoPathSet(t)
	var buf bytes.Buffer
	if err := ps.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := Load(ps.Graph(), &buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Size() != 2 {
		t.Fatalf("Size = %d", got.Size())
	}
	if !got.Found([]uint64{2, 5, 6, 7}) || got.Found([]uint64{6, 7, 11}) {
		t.Errorf("loaded set answers differ")
	}
	occs := got.Occurrences([]uint64{11, 13})
	if len(occs) != 1 || occs[0].PathIndex != 1 || occs[0].Ordinal != 5 {
		t.Errorf("loaded Occurrences(11,13) = %v", occs)
	}
	if !got.Path(0).Equal(ps.Path(0)) {
		t.Errorf("loaded path 0 differs")
	}
}

func TestClearAndReuse(t *testing.T) {
	ps := twoPathSet(t)
	ps.Clear()
	if ps.Size() != 0 || ps.Found([]uint64{2}) {
		t.Errorf("Clear left content behind")
	}
	addPath(t, ps, []uint64{5, 6})
	ps.Initialize()
	if !ps.Found([]uint64{5, 6}) {
		t.Errorf("reused set does not answer")
	}
}
