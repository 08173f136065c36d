// Package pathseq models paths over a sequence graph. A path is an
// ordered node list plus head/tail offsets clipping the first and last
// label. Dynamic paths support mutation at both ends, Compact paths are
// set once; Micro and Haplotype paths keep membership only.
package pathseq

import (
	"fmt"
	"io"
	"sort"

	"psi/seqgraph"
	"psi/utils"
)

type Direction int

const (
	Forward Direction = iota
	Reversed
)

// base carries the state shared by Dynamic and Compact paths.
type base struct {
	g       *seqgraph.Graph
	nodes   []uint64
	headOff uint32
	tailOff uint32
	seq     []byte
	cum     []uint64 // cum[i] = sequence position where nodes[i] starts
	init    bool
}

func adjacent(g *seqgraph.Graph, from, to uint64) bool {
	found := false
	g.ForEachEdgesOut(from, func(t uint64, et seqgraph.EdgeType) bool {
		if t == to {
			found = true
			return false
		}
		return true
	})
	return found
}

func (b *base) Graph() *seqgraph.Graph { return b.g }
func (b *base) Nodes() []uint64        { return b.nodes }
func (b *base) Size() uint64           { return uint64(len(b.nodes)) }
func (b *base) HeadOffset() uint32     { return b.headOff }
func (b *base) TailOffset() uint32     { return b.tailOff }
func (b *base) Initialized() bool      { return b.init }

func (b *base) Contains(id uint64) bool {
	for _, n := range b.nodes {
		if n == id {
			return true
		}
	}
	return false
}

// contribution of node i to the materialised sequence
func (b *base) contrib(i int) uint64 {
	l := uint64(b.g.NodeLength(b.nodes[i]))
	if i == 0 {
		l -= uint64(b.headOff)
	}
	if i == len(b.nodes)-1 {
		l -= uint64(b.tailOff)
	}
	return l
}

// Initialize validates the offsets, materialises the sequence and the
// cumulative offset vector. Must be re-run after any mutation.
func (b *base) Initialize() error {
	if len(b.nodes) == 0 {
		return fmt.Errorf("Initialize: empty path: %w", utils.ErrUninitialized)
	}
	first, last := b.nodes[0], b.nodes[len(b.nodes)-1]
	if uint64(b.headOff) >= uint64(b.g.NodeLength(first)) {
		return fmt.Errorf("Initialize: head offset %d out of node %d: %w", b.headOff, first, utils.ErrOutOfRange)
	}
	if uint64(b.tailOff) >= uint64(b.g.NodeLength(last)) {
		return fmt.Errorf("Initialize: tail offset %d out of node %d: %w", b.tailOff, last, utils.ErrOutOfRange)
	}
	if len(b.nodes) == 1 && uint64(b.headOff)+uint64(b.tailOff) >= uint64(b.g.NodeLength(first)) {
		return fmt.Errorf("Initialize: offsets cover node %d entirely: %w", first, utils.ErrOutOfRange)
	}
	b.cum = make([]uint64, len(b.nodes))
	var total uint64
	for i := range b.nodes {
		b.cum[i] = total
		total += b.contrib(i)
	}
	b.seq = make([]byte, 0, total)
	for i, id := range b.nodes {
		label := b.g.NodeSequence(id)
		lo, hi := 0, len(label)
		if i == 0 {
			lo = int(b.headOff)
		}
		if i == len(b.nodes)-1 {
			hi -= int(b.tailOff)
		}
		b.seq = append(b.seq, label[lo:hi]...)
	}
	b.init = true
	return nil
}

func (b *base) invalidate() {
	b.seq = nil
	b.cum = nil
	b.init = false
}

func (b *base) SequenceLen() uint64 {
	if !b.init {
		return 0
	}
	return uint64(len(b.seq))
}

// Sequence materialises the path DNA; Reversed returns the reverse of
// the forward rendition.
func (b *base) Sequence(dir Direction) ([]byte, error) {
	if !b.init {
		return nil, fmt.Errorf("Sequence: %w", utils.ErrUninitialized)
	}
	out := make([]byte, len(b.seq))
	if dir == Reversed {
		for i, c := range b.seq {
			out[len(b.seq)-1-i] = c
		}
	} else {
		copy(out, b.seq)
	}
	return out, nil
}

// rankOf finds the in-path rank of the node covering sequence position p.
func (b *base) rankOf(p uint64) (int, error) {
	if !b.init {
		return 0, fmt.Errorf("rankOf: %w", utils.ErrUninitialized)
	}
	if p >= uint64(len(b.seq)) {
		return 0, fmt.Errorf("rankOf: position %d of %d: %w", p, len(b.seq), utils.ErrOutOfRange)
	}
	i := sort.Search(len(b.cum), func(i int) bool { return b.cum[i] > p }) - 1
	return i, nil
}

func (b *base) PositionToID(p uint64) (uint64, error) {
	i, err := b.rankOf(p)
	if err != nil {
		return 0, err
	}
	return b.nodes[i], nil
}

func (b *base) PositionToOffset(p uint64) (uint32, error) {
	i, err := b.rankOf(p)
	if err != nil {
		return 0, err
	}
	off := p - b.cum[i]
	if i == 0 {
		off += uint64(b.headOff)
	}
	return uint32(off), nil
}

func (b *base) equal(o *base) bool {
	if len(b.nodes) != len(o.nodes) || b.headOff != o.headOff || b.tailOff != o.tailOff {
		return false
	}
	for i := range b.nodes {
		if b.nodes[i] != o.nodes[i] {
			return false
		}
	}
	return true
}

// serialize writes (checksum, nodes, head_off, tail_off); the sequence
// and cumulative vectors are recomputed on load.
func (b *base) serialize(w io.Writer) error {
	if err := utils.WriteUint64(w, b.g.Checksum()); err != nil {
		return err
	}
	if err := utils.WriteUint64Slice(w, b.nodes); err != nil {
		return err
	}
	if err := utils.WriteUint64(w, uint64(b.headOff)); err != nil {
		return err
	}
	return utils.WriteUint64(w, uint64(b.tailOff))
}

func (b *base) load(r io.Reader) error {
	sum, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	if sum != b.g.Checksum() {
		return fmt.Errorf("load: %w", utils.ErrChecksum)
	}
	if b.nodes, err = utils.ReadUint64Slice(r); err != nil {
		return err
	}
	ho, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	to, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	b.headOff, b.tailOff = uint32(ho), uint32(to)
	for i := 1; i < len(b.nodes); i++ {
		if !adjacent(b.g, b.nodes[i-1], b.nodes[i]) {
			return fmt.Errorf("load: nodes %d,%d: %w", b.nodes[i-1], b.nodes[i], utils.ErrNotAdjacent)
		}
	}
	if len(b.nodes) == 0 {
		b.invalidate()
		return nil
	}
	return b.Initialize()
}
