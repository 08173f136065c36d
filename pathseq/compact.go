package pathseq

import (
	"fmt"
	"io"

	"psi/seqgraph"
	"psi/utils"
)

// Compact is the set-once path variant held by path sets.
type Compact struct {
	base
	set bool
}

func NewCompact(g *seqgraph.Graph) *Compact {
	return &Compact{base: base{g: g}}
}

// SetNodes installs the node list and offsets; a Compact path can be
// set only once.
func (p *Compact) SetNodes(nodes []uint64, headOff, tailOff uint32) error {
	if p.set {
		return fmt.Errorf("SetNodes: already set: %w", utils.ErrImmutable)
	}
	for i := 1; i < len(nodes); i++ {
		if !adjacent(p.g, nodes[i-1], nodes[i]) {
			return fmt.Errorf("SetNodes: %d -> %d: %w", nodes[i-1], nodes[i], utils.ErrNotAdjacent)
		}
	}
	p.nodes = append([]uint64(nil), nodes...)
	p.headOff, p.tailOff = headOff, tailOff
	p.set = true
	return p.Initialize()
}

// CompactFrom freezes a Dynamic path into a Compact one.
func CompactFrom(d *Dynamic) (*Compact, error) {
	p := NewCompact(d.g)
	if err := p.SetNodes(d.nodes, d.headOff, d.tailOff); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Compact) Equal(other *Compact) bool { return p.base.equal(&other.base) }

func (p *Compact) Serialize(w io.Writer) error { return p.base.serialize(w) }

func LoadCompact(g *seqgraph.Graph, r io.Reader) (*Compact, error) {
	p := NewCompact(g)
	if err := p.base.load(r); err != nil {
		return nil, err
	}
	p.set = true
	return p, nil
}
