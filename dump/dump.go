// Package dump renders the indexed paths and the graph for external
// tooling: FASTA and BAM for the path sequences, graphviz dot for the
// graph topology. It only consumes the path-set iteration and the
// coordinate mapping of the core.
package dump

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"psi/pathseq"
	"psi/pathset"
	"psi/seqgraph"

	"github.com/awalterschulze/gographviz"
	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"
	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

const fastaWidth = 80

func pathName(i uint64) string { return "path_" + strconv.FormatUint(i, 10) }

// FASTA writes every stored path sequence as one record.
func FASTA(ps *pathset.PathSet, w io.Writer) error {
	fw := fasta.NewWriter(w, fastaWidth)
	var werr error
	ps.ForEach(func(i uint64, p *pathseq.Compact) bool {
		seq, err := p.Sequence(pathseq.Forward)
		if err != nil {
			werr = err
			return false
		}
		s := linear.NewSeq(pathName(i), alphabet.BytesToLetters(seq), alphabet.DNA)
		if _, err = fw.Write(s); err != nil {
			werr = err
			return false
		}
		return true
	})
	return werr
}

// BAM writes the path sequences as unmapped records, the rendition
// read alignment pipelines expect before seeding.
func BAM(ps *pathset.PathSet, fn string, numCPU int) error {
	fp, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer fp.Close()
	h, err := sam.NewHeader(nil, nil)
	if err != nil {
		return err
	}
	bw, err := bam.NewWriter(fp, h, numCPU/5+1)
	if err != nil {
		return err
	}
	var werr error
	ps.ForEach(func(i uint64, p *pathseq.Compact) bool {
		seq, err := p.Sequence(pathseq.Forward)
		if err != nil {
			werr = err
			return false
		}
		qual := make([]byte, len(seq))
		for k := range qual {
			qual[k] = 0xff
		}
		r, err := sam.NewRecord(pathName(i), nil, nil, -1, -1, 0, 0, nil, seq, qual, nil)
		if err != nil {
			werr = err
			return false
		}
		r.Flags = sam.Unmapped
		if err = bw.Write(r); err != nil {
			werr = err
			return false
		}
		return true
	})
	if werr != nil {
		bw.Close()
		return werr
	}
	return bw.Close()
}

// Graphviz renders the graph topology as a dot file, node labels
// carrying the id and label length.
func Graphviz(g *seqgraph.Graph, fn string) error {
	dg := gographviz.NewGraph()
	dg.SetName("G")
	dg.SetDir(true)
	dg.SetStrict(false)
	var verr error
	g.ForEachNode(func(rank, id uint64) bool {
		attr := make(map[string]string)
		attr["color"] = "Green"
		attr["shape"] = "record"
		attr["label"] = "\"ID:" + strconv.FormatUint(id, 10) + " len:" + strconv.Itoa(int(g.NodeLength(id))) + "\""
		if verr = dg.AddNode("G", strconv.FormatUint(id, 10), attr); verr != nil {
			return false
		}
		return true
	}, 1)
	if verr != nil {
		return verr
	}
	g.ForEachNode(func(rank, id uint64) bool {
		g.ForEachEdgesOut(id, func(to uint64, et seqgraph.EdgeType) bool {
			attr := make(map[string]string)
			attr["color"] = "Blue"
			verr = dg.AddEdge(strconv.FormatUint(id, 10), strconv.FormatUint(to, 10), true, attr)
			return verr == nil
		})
		return verr == nil
	}, 1)
	if verr != nil {
		return verr
	}
	gfp, err := os.Create(fn)
	if err != nil {
		return fmt.Errorf("Graphviz: create file %s failed: %w", fn, err)
	}
	defer gfp.Close()
	_, err = gfp.WriteString(dg.String())
	return err
}
