// Package pathindex extends a path set with a full-text index over the
// paths' DNA sequences, so that a pattern hit can be translated back to
// a (node, in-node offset) locus.
package pathindex

import (
	"fmt"
	"os"

	"psi/fmindex"
	"psi/pathseq"
	"psi/pathset"
	"psi/seqgraph"
	"psi/utils"
)

type PathIndex struct {
	set     *pathset.PathSet
	dna     *fmindex.StringSet
	ctxSize uint64
	dir     pathseq.Direction
	lazy    bool
	pushed  uint64 // paths whose DNA is already in the stringset
}

// New creates a path index. With lazy set, DNA sequences enter the
// stringset only at CreateIndex, which suits streaming path producers.
func New(g *seqgraph.Graph, dir pathseq.Direction, ctxSize uint64, lazy bool) *PathIndex {
	return &PathIndex{
		set:     pathset.New(g),
		dna:     fmindex.New(),
		ctxSize: ctxSize,
		dir:     dir,
		lazy:    lazy,
	}
}

func (pi *PathIndex) Length() uint64               { return pi.set.Size() }
func (pi *PathIndex) ContextSize() uint64          { return pi.ctxSize }
func (pi *PathIndex) Direction() pathseq.Direction { return pi.dir }

func (pi *PathIndex) GetPathsSet() *pathset.PathSet { return pi.set }

func (pi *PathIndex) pushDNA(p *pathseq.Compact) error {
	seq, err := p.Sequence(pi.dir)
	if err != nil {
		return err
	}
	pi.dna.PushString(seq)
	pi.pushed++
	return nil
}

// AddPath appends a path to the index.
func (pi *PathIndex) AddPath(p *pathseq.Compact) error {
	pi.set.PushBack(p)
	if !pi.lazy {
		return pi.pushDNA(p)
	}
	return nil
}

// PushBack is an alias of AddPath.
func (pi *PathIndex) PushBack(p *pathseq.Compact) error { return pi.AddPath(p) }

// CreateIndex materialises any pending DNA strings and builds both
// full-text indexes.
func (pi *PathIndex) CreateIndex() error {
	for pi.pushed < pi.set.Size() {
		if err := pi.pushDNA(pi.set.Path(pi.pushed)); err != nil {
			return err
		}
	}
	pi.set.Initialize()
	pi.dna.Initialize()
	return nil
}

// Locate finds pattern in the indexed DNA text. For a Reversed index
// the pattern is reversed before search, and returned positions are
// end positions in the reversed rendition.
func (pi *PathIndex) Locate(pattern []byte) []fmindex.SAValue {
	if pi.dir == pathseq.Reversed {
		rev := make([]byte, len(pattern))
		for i, c := range pattern {
			rev[len(pattern)-1-i] = c
		}
		pattern = rev
	}
	return pi.dna.Locate(pattern)
}

func (pi *PathIndex) Found(pattern []byte) bool {
	if pi.dir == pathseq.Reversed {
		rev := make([]byte, len(pattern))
		for i, c := range pattern {
			rev[len(pattern)-1-i] = c
		}
		pattern = rev
	}
	return pi.dna.Found(pattern)
}

// mirror maps a position in the reversed rendition back to forward
// in-path coordinates.
func (pi *PathIndex) mirror(sa fmindex.SAValue) (uint64, error) {
	p := pi.set.Path(sa.StringIndex)
	pos := sa.Pos
	if pi.dir == pathseq.Reversed {
		l := p.SequenceLen()
		if pos >= l {
			return 0, fmt.Errorf("mirror: position %d of %d: %w", pos, l, utils.ErrOutOfRange)
		}
		pos = l - 1 - pos
	}
	return pos, nil
}

// PositionToID translates an SA value to the node id at that locus.
func (pi *PathIndex) PositionToID(sa fmindex.SAValue) (uint64, error) {
	pos, err := pi.mirror(sa)
	if err != nil {
		return 0, err
	}
	return pi.set.Path(sa.StringIndex).PositionToID(pos)
}

// PositionToOffset translates an SA value to the in-node offset.
func (pi *PathIndex) PositionToOffset(sa fmindex.SAValue) (uint32, error) {
	pos, err := pi.mirror(sa)
	if err != nil {
		return 0, err
	}
	return pi.set.Path(sa.StringIndex).PositionToOffset(pos)
}

// Serialize writes the two index files: <prefix> holds the DNA FM
// index, <prefix>_paths the header and the path set.
func (pi *PathIndex) Serialize(prefix string) error {
	if err := pi.CreateIndex(); err != nil {
		return err
	}
	fp, err := os.Create(prefix)
	if err != nil {
		return err
	}
	defer fp.Close()
	if err = pi.dna.Serialize(fp); err != nil {
		return err
	}
	pfp, err := os.Create(prefix + "_paths")
	if err != nil {
		return err
	}
	defer pfp.Close()
	if err = utils.WriteUint64(pfp, pi.ctxSize); err != nil {
		return err
	}
	if err = utils.WriteUint64(pfp, uint64(pi.dir)); err != nil {
		return err
	}
	return pi.set.Serialize(pfp)
}

// Load reads the file pair written by Serialize.
func Load(g *seqgraph.Graph, prefix string) (*PathIndex, error) {
	fp, err := os.Open(prefix)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	pi := &PathIndex{dna: fmindex.New()}
	if err = pi.dna.Load(fp); err != nil {
		return nil, err
	}
	pfp, err := os.Open(prefix + "_paths")
	if err != nil {
		return nil, err
	}
	defer pfp.Close()
	if pi.ctxSize, err = utils.ReadUint64(pfp); err != nil {
		return nil, err
	}
	dirFlag, err := utils.ReadUint64(pfp)
	if err != nil {
		return nil, err
	}
	if dirFlag > uint64(pathseq.Reversed) {
		return nil, fmt.Errorf("Load: direction flag %d: %w", dirFlag, utils.ErrFormat)
	}
	pi.dir = pathseq.Direction(dirFlag)
	if pi.set, err = pathset.Load(g, pfp); err != nil {
		return nil, err
	}
	if pi.dna.Size() != pi.set.Size() {
		return nil, fmt.Errorf("Load: %d paths but %d DNA strings: %w", pi.set.Size(), pi.dna.Size(), utils.ErrFormat)
	}
	pi.pushed = pi.set.Size()
	return pi, nil
}
