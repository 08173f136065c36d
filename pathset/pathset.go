// Package pathset stores the representative haplotype paths of a graph
// and answers sub-path membership queries. Each path is rendered as a
// comma-delimited node-id string; an FM index over those strings turns
// "is this node sequence a sub-path?" into a substring search.
package pathset

import (
	"fmt"
	"io"
	"strconv"

	"psi/fmindex"
	"psi/pathseq"
	"psi/seqgraph"
	"psi/utils"
)

// Occurrence is one match of a node-id query: the path and the ordinal
// of the first matched node inside it.
type Occurrence struct {
	PathIndex uint64
	Ordinal   uint64
}

type PathSet struct {
	g      *seqgraph.Graph
	paths  []*pathseq.Compact
	fm     *fmindex.StringSet
	bounds []*fmindex.BitVector // marks the last digit of every node ordinal
}

func New(g *seqgraph.Graph) *PathSet {
	return &PathSet{g: g, fm: fmindex.New()}
}

// renderIDText renders ids as ",20,21,23," and marks the last digit of
// each ordinal in the returned bit-vector.
func renderIDText(ids []uint64) ([]byte, *fmindex.BitVector) {
	text := []byte{','}
	var marks []uint64
	for _, id := range ids {
		text = strconv.AppendUint(text, id, 10)
		marks = append(marks, uint64(len(text)-1))
		text = append(text, ',')
	}
	bv := fmindex.NewBitVector(uint64(len(text)))
	for _, m := range marks {
		bv.Set(m)
	}
	bv.BuildRank()
	return text, bv
}

// queryIDText renders a query as ",a,b,c," so matches only align on
// whole ordinals.
func queryIDText(ids []uint64) []byte {
	text := []byte{','}
	for _, id := range ids {
		text = strconv.AppendUint(text, id, 10)
		text = append(text, ',')
	}
	return text
}

func (ps *PathSet) PushBack(p *pathseq.Compact) {
	ps.paths = append(ps.paths, p)
	text, bv := renderIDText(p.Nodes())
	ps.fm.PushString(text)
	ps.bounds = append(ps.bounds, bv)
}

func (ps *PathSet) Size() uint64 { return uint64(len(ps.paths)) }

func (ps *PathSet) Path(i uint64) *pathseq.Compact { return ps.paths[i] }

func (ps *PathSet) Graph() *seqgraph.Graph { return ps.g }

// ForEach visits paths in insertion order until the callback returns
// false.
func (ps *PathSet) ForEach(visit func(i uint64, p *pathseq.Compact) bool) {
	for i, p := range ps.paths {
		if !visit(uint64(i), p) {
			return
		}
	}
}

func (ps *PathSet) Clear() {
	ps.paths = nil
	ps.bounds = nil
	ps.fm = fmindex.New()
}

func (ps *PathSet) Reserve(n uint64) {
	if uint64(cap(ps.paths)) < n {
		paths := make([]*pathseq.Compact, len(ps.paths), n)
		copy(paths, ps.paths)
		ps.paths = paths
	}
}

// Initialize builds the FM index; idempotent.
func (ps *PathSet) Initialize() { ps.fm.Initialize() }

func (ps *PathSet) Initialized() bool { return ps.fm.Initialized() }

// Found reports whether ids occur as a contiguous sub-path of some
// stored path.
func (ps *PathSet) Found(ids []uint64) bool {
	if len(ids) == 0 {
		return false
	}
	ps.Initialize()
	return ps.fm.Found(queryIDText(ids))
}

// Occurrences yields (path, ordinal) for every match of ids.
func (ps *PathSet) Occurrences(ids []uint64) []Occurrence {
	if len(ids) == 0 {
		return nil
	}
	ps.Initialize()
	hits := ps.fm.Locate(queryIDText(ids))
	occs := make([]Occurrence, 0, len(hits))
	for _, h := range hits {
		occs = append(occs, Occurrence{
			PathIndex: h.StringIndex,
			Ordinal:   ps.bounds[h.StringIndex].Rank1(h.Pos),
		})
	}
	return occs
}

// Serialize writes the path count, the paths, the FM index and the
// per-path boundary bit-vectors.
func (ps *PathSet) Serialize(w io.Writer) error {
	ps.Initialize()
	if err := utils.WriteUint64(w, ps.Size()); err != nil {
		return err
	}
	for _, p := range ps.paths {
		if err := p.Serialize(w); err != nil {
			return err
		}
	}
	if err := ps.fm.Serialize(w); err != nil {
		return err
	}
	for _, bv := range ps.bounds {
		if err := bv.Serialize(w); err != nil {
			return err
		}
	}
	return nil
}

func Load(g *seqgraph.Graph, r io.Reader) (*PathSet, error) {
	n, err := utils.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	ps := New(g)
	ps.paths = make([]*pathseq.Compact, 0, n)
	for i := uint64(0); i < n; i++ {
		p, err := pathseq.LoadCompact(g, r)
		if err != nil {
			return nil, fmt.Errorf("Load: path %d: %w", i, err)
		}
		ps.paths = append(ps.paths, p)
	}
	if err = ps.fm.Load(r); err != nil {
		return nil, err
	}
	if ps.fm.Size() != n {
		return nil, fmt.Errorf("Load: %d paths but %d indexed strings: %w", n, ps.fm.Size(), utils.ErrFormat)
	}
	ps.bounds = make([]*fmindex.BitVector, 0, n)
	for i := uint64(0); i < n; i++ {
		bv, err := fmindex.LoadBitVector(r)
		if err != nil {
			return nil, fmt.Errorf("Load: bounds %d: %w", i, err)
		}
		ps.bounds = append(ps.bounds, bv)
	}
	return ps, nil
}
