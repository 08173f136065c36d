package seedfinder

import (
	"os"
	"path/filepath"
	"testing"

	"psi/pathindex"
	"psi/pathseq"
	"psi/seqgraph"
	"psi/spgemm"
)

func chainGraph(t *testing.T) *seqgraph.Graph {
	t.Helper()
	g := seqgraph.New()
	for _, n := range []struct {
		id  uint64
		seq string
	}{{1, "AC"}, {2, "G"}, {3, "TT"}} {
		if err := g.AddNode(n.id, n.seq); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	g.AddEdge(1, 2, seqgraph.EdgeForward)
	g.AddEdge(2, 3, seqgraph.EdgeForward)
	return g
}

func diamondGraph(t *testing.T) *seqgraph.Graph {
	t.Helper()
	g := seqgraph.New()
	for _, n := range []struct {
		id  uint64
		seq string
	}{{1, "ACGT"}, {2, "GG"}, {3, "TC"}, {4, "AATT"}} {
		if err := g.AddNode(n.id, n.seq); err != nil {
			t.Fatalf("AddNode: %v", err)
		}
	}
	g.AddEdge(1, 2, seqgraph.EdgeForward)
	g.AddEdge(1, 3, seqgraph.EdgeForward)
	g.AddEdge(2, 4, seqgraph.EdgeForward)
	g.AddEdge(3, 4, seqgraph.EdgeForward)
	return g
}

func TestPickPathsCoversDiamond(t *testing.T) {
	g := diamondGraph(t)
	f := New(g, filepath.Join(t.TempDir(), "idx"), pathseq.Forward, 0, 1, 1)
	if err := f.PickPaths(5, false); err != nil {
		t.Fatalf("PickPaths: %v", err)
	}
	// only two source-to-sink paths exist; the generator must stop
	if f.PathSet().Size() != 2 {
		t.Fatalf("path count = %d, want 2", f.PathSet().Size())
	}
	if !f.PathSet().Found([]uint64{1, 2, 4}) && !f.PathSet().Found([]uint64{1, 3, 4}) {
		t.Errorf("neither branch stored")
	}
	via2 := f.PathSet().Found([]uint64{1, 2, 4})
	via3 := f.PathSet().Found([]uint64{1, 3, 4})
	if !via2 || !via3 {
		t.Errorf("branch coverage: via2=%v via3=%v", via2, via3)
	}
}

func TestPickPathsPatched(t *testing.T) {
	g := chainGraph(t)
	f := New(g, filepath.Join(t.TempDir(), "idx"), pathseq.Forward, 2, 1, 1)
	if err := f.PickPaths(1, true); err != nil {
		t.Fatalf("PickPaths: %v", err)
	}
	// the chain 1-2-3 splits at the context boundary into [1] and [2 3]
	if f.PathSet().Size() != 2 {
		t.Fatalf("patch count = %d, want 2", f.PathSet().Size())
	}
	if !f.PathSet().Found([]uint64{1}) || !f.PathSet().Found([]uint64{2, 3}) {
		t.Errorf("patches not stored as expected")
	}
	if f.PathSet().Found([]uint64{1, 2}) {
		t.Errorf("patch boundary crossed")
	}
}

func TestAddAllLociSkipsCoveredNodes(t *testing.T) {
	g := chainGraph(t)
	f := New(g, filepath.Join(t.TempDir(), "idx"), pathseq.Forward, 0, 1, 1)
	if err := f.addCompact([]uint64{1, 2}); err != nil {
		t.Fatalf("addCompact: %v", err)
	}
	loci := f.AddAllLoci(1, 1)
	want := []Locus{{ID: 3, Offset: 0}, {ID: 3, Offset: 1}}
	if len(loci) != len(want) {
		t.Fatalf("loci = %v, want %v", loci, want)
	}
	for i := range want {
		if loci[i] != want[i] {
			t.Errorf("locus %d = %v, want %v", i, loci[i], want[i])
		}
	}
	// a two-base seed no longer fits at node 3 offset 1
	loci = f.AddAllLoci(2, 1)
	if len(loci) != 1 || loci[0] != (Locus{ID: 3, Offset: 0}) {
		t.Errorf("seedlen 2 loci = %v", loci)
	}
}

func TestStartsRoundTrip(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "idx")
	loci := []Locus{{ID: 3, Offset: 0}, {ID: 7, Offset: 12}}
	if err := SaveStarts(prefix, 15, 3, loci); err != nil {
		t.Fatalf("SaveStarts: %v", err)
	}
	got, err := LoadStarts(prefix, 15, 3)
	if err != nil {
		t.Fatalf("LoadStarts: %v", err)
	}
	if len(got) != 2 || got[0] != loci[0] || got[1] != loci[1] {
		t.Errorf("loaded %v, want %v", got, loci)
	}
	if _, err := LoadStarts(prefix, 15, 4); err == nil {
		t.Errorf("expected missing file for other parameters")
	}
}

func TestIndexPathsWritesLoadablePair(t *testing.T) {
	g := chainGraph(t)
	prefix := filepath.Join(t.TempDir(), "idx")
	f := New(g, prefix, pathseq.Forward, 0, 1, 1)
	if err := f.addCompact([]uint64{1, 2, 3}); err != nil {
		t.Fatalf("addCompact: %v", err)
	}
	if err := f.IndexPaths(); err != nil {
		t.Fatalf("IndexPaths: %v", err)
	}
	idx, err := pathindex.Load(g, prefix)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !idx.Found([]byte("CGT")) {
		t.Errorf("spliced pattern not found in loaded index")
	}
}

func TestBuildDistanceIndexChain(t *testing.T) {
	g := chainGraph(t)
	f := New(g, filepath.Join(t.TempDir(), "idx"), pathseq.Forward, 0, 1, 1)
	m, err := f.BuildDistanceIndex(1, 2)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	if m.NumRows() != 5 || m.NumCols() != 5 {
		t.Fatalf("shape %dx%d, want 5x5", m.NumRows(), m.NumCols())
	}
	want := map[[2]uint64]bool{
		{0, 2}: true,
		{1, 2}: true, {1, 3}: true,
		{2, 3}: true, {2, 4}: true,
	}
	var nnz uint64
	for i := uint64(0); i < 5; i++ {
		for j := uint64(0); j < 5; j++ {
			got, err := m.At(i, j)
			if err != nil {
				t.Fatalf("At(%d,%d): %v", i, j, err)
			}
			if got != want[[2]uint64{i, j}] {
				t.Errorf("bit (%d,%d) = %v, want %v", i, j, got, want[[2]uint64{i, j}])
			}
			if got {
				nnz++
			}
		}
	}
	if m.NNZ() != nnz {
		t.Errorf("NNZ = %d, counted %d", m.NNZ(), nnz)
	}
	// no bit joins two positions of the same node
	if err := spgemm.VerifyCompression(m, g, 1.0, 1); err != nil {
		t.Errorf("VerifyCompression: %v", err)
	}
}

func TestMergeDistanceIndices(t *testing.T) {
	g := chainGraph(t)
	prefix := filepath.Join(t.TempDir(), "idx")
	f := New(g, prefix, pathseq.Forward, 0, 1, 1)
	m1, err := f.BuildDistanceIndex(1, 1)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	m2, err := f.BuildDistanceIndex(2, 2)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	if err := SaveDistanceIndex(m1, prefix, 1, 1); err != nil {
		t.Fatalf("SaveDistanceIndex: %v", err)
	}
	if err := SaveDistanceIndex(m2, prefix, 2, 2); err != nil {
		t.Fatalf("SaveDistanceIndex: %v", err)
	}
	fn, err := MergeDistanceIndices(prefix, 1, 1, 2, 2, 2)
	if err != nil {
		t.Fatalf("MergeDistanceIndices: %v", err)
	}
	if fn != DistanceIndexFileName(prefix, 1, 2) {
		t.Fatalf("merged file name = %q", fn)
	}
	merged, err := LoadDistanceIndex(prefix, 1, 2)
	if err != nil {
		t.Fatalf("LoadDistanceIndex: %v", err)
	}
	full, err := f.BuildDistanceIndex(1, 2)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	if merged.NNZ() != full.NNZ() {
		t.Errorf("merged NNZ = %d, direct build = %d", merged.NNZ(), full.NNZ())
	}
	for i := uint64(0); i < 5; i++ {
		for j := uint64(0); j < 5; j++ {
			a, _ := merged.At(i, j)
			b, _ := full.At(i, j)
			if a != b {
				t.Errorf("bit (%d,%d): merged %v, direct %v", i, j, a, b)
			}
		}
	}
}

func TestKHopIndex(t *testing.T) {
	g := chainGraph(t)
	f := New(g, filepath.Join(t.TempDir(), "idx"), pathseq.Forward, 0, 1, 1)
	one, err := f.BuildDistanceIndex(1, 1)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	two, err := KHopIndex(one, 2, 2)
	if err != nil {
		t.Fatalf("KHopIndex: %v", err)
	}
	// the chained index is the boolean square of the one-hop index
	for i := uint64(0); i < 5; i++ {
		for j := uint64(0); j < 5; j++ {
			want := false
			for k := uint64(0); k < 5; k++ {
				x, _ := one.At(i, k)
				y, _ := one.At(k, j)
				if x && y {
					want = true
					break
				}
			}
			got, _ := two.At(i, j)
			if got != want {
				t.Errorf("bit (%d,%d) = %v, want %v", i, j, got, want)
			}
		}
	}
	if one2, err := KHopIndex(one, 1, 1); err != nil || one2 != one {
		t.Errorf("k=1 must return the input: %v", err)
	}
}

func TestKHopFileRoundTrip(t *testing.T) {
	g := chainGraph(t)
	prefix := filepath.Join(t.TempDir(), "idx")
	f := New(g, prefix, pathseq.Forward, 0, 1, 1)
	one, err := f.BuildDistanceIndex(1, 1)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	two, err := KHopIndex(one, 2, 2)
	if err != nil {
		t.Fatalf("KHopIndex: %v", err)
	}
	if err := SaveKHopIndex(two, prefix, 1, 1, 2); err != nil {
		t.Fatalf("SaveKHopIndex: %v", err)
	}
	if KHopFileName(prefix, 1, 1, 2) == DistanceIndexFileName(prefix, 1, 1) {
		t.Fatalf("hop-stamped name must not shadow the one-hop file")
	}
	got, err := LoadKHopIndex(prefix, 1, 1, 2)
	if err != nil {
		t.Fatalf("LoadKHopIndex: %v", err)
	}
	if got.NNZ() != two.NNZ() {
		t.Fatalf("loaded NNZ = %d, want %d", got.NNZ(), two.NNZ())
	}
	for i := uint64(0); i < 5; i++ {
		for j := uint64(0); j < 5; j++ {
			a, _ := two.At(i, j)
			b, _ := got.At(i, j)
			if a != b {
				t.Errorf("bit (%d,%d): saved %v, loaded %v", i, j, a, b)
			}
		}
	}
	if _, err := LoadKHopIndex(prefix, 1, 1, 3); err == nil {
		t.Errorf("expected missing file for another hop count")
	}
}

func TestBuildDistanceIndexBuffered(t *testing.T) {
	g := chainGraph(t)
	dir := t.TempDir()
	f := New(g, filepath.Join(dir, "idx"), pathseq.Forward, 0, 1, 1)
	plain, err := f.BuildDistanceIndex(1, 2)
	if err != nil {
		t.Fatalf("BuildDistanceIndex: %v", err)
	}
	f.UseBufferedMatrices(dir)
	buffered, err := f.BuildDistanceIndex(1, 2)
	if err != nil {
		t.Fatalf("BuildDistanceIndex buffered: %v", err)
	}
	if buffered.NNZ() != plain.NNZ() {
		t.Fatalf("buffered NNZ = %d, in-RAM = %d", buffered.NNZ(), plain.NNZ())
	}
	for i := uint64(0); i < 5; i++ {
		for j := uint64(0); j < 5; j++ {
			a, _ := plain.At(i, j)
			b, _ := buffered.At(i, j)
			if a != b {
				t.Errorf("bit (%d,%d): in-RAM %v, buffered %v", i, j, a, b)
			}
		}
	}
	// the working matrix temp file must be gone once the build returns
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() && e.Name() != "idx" {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
