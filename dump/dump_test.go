package dump

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"psi/pathseq"
	"psi/pathset"
	"psi/seqgraph"

	"github.com/biogo/hts/bam"
)

func testSet(t *testing.T) (*seqgraph.Graph, *pathset.PathSet) {
	t.Helper()
	g := seqgraph.New()
	g.AddNode(1, "ACGT")
	g.AddNode(2, "GGA")
	g.AddEdge(1, 2, seqgraph.EdgeForward)
	ps := pathset.New(g)
	p := pathseq.NewCompact(g)
	if err := p.SetNodes([]uint64{1, 2}, 0, 0); err != nil {
		t.Fatalf("SetNodes: %v", err)
	}
	ps.PushBack(p)
	return g, ps
}

func TestFASTA(t *testing.T) {
	_, ps := testSet(t)
	var buf bytes.Buffer
	if err := FASTA(ps, &buf); err != nil {
		t.Fatalf("FASTA: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, ">path_0") {
		t.Errorf("missing record header in %q", out)
	}
	if !strings.Contains(out, "ACGTGGA") {
		t.Errorf("missing spliced sequence in %q", out)
	}
}

func TestBAMRoundTrip(t *testing.T) {
	_, ps := testSet(t)
	fn := filepath.Join(t.TempDir(), "paths.bam")
	if err := BAM(ps, fn, 1); err != nil {
		t.Fatalf("BAM: %v", err)
	}
	fp, err := os.Open(fn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fp.Close()
	br, err := bam.NewReader(fp, 1)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer br.Close()
	n := 0
	for {
		r, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if r.Name != "path_0" {
			t.Errorf("record name = %q", r.Name)
		}
		if got := string(r.Seq.Expand()); got != "ACGTGGA" {
			t.Errorf("record seq = %q", got)
		}
		n++
	}
	if n != 1 {
		t.Errorf("record count = %d, want 1", n)
	}
}

func TestGraphviz(t *testing.T) {
	g, _ := testSet(t)
	fn := filepath.Join(t.TempDir(), "graph.dot")
	if err := Graphviz(g, fn); err != nil {
		t.Fatalf("Graphviz: %v", err)
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	dot := string(data)
	for _, want := range []string{"digraph G", "1->2", "ID:1 len:4"} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}
