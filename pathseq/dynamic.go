package pathseq

import (
	"fmt"
	"io"

	"psi/seqgraph"
	"psi/utils"
)

// Dynamic is the fully mutable path variant.
type Dynamic struct {
	base
}

func NewDynamic(g *seqgraph.Graph) *Dynamic {
	return &Dynamic{base{g: g}}
}

// PushBack appends a node. The optional head offset applies only to the
// very first push and is ignored afterwards.
func (p *Dynamic) PushBack(id uint64, headOff ...uint32) error {
	if len(p.nodes) == 0 {
		if len(headOff) > 0 {
			p.headOff = headOff[0]
		}
	} else if !adjacent(p.g, p.nodes[len(p.nodes)-1], id) {
		return fmt.Errorf("PushBack: %d -> %d: %w", p.nodes[len(p.nodes)-1], id, utils.ErrNotAdjacent)
	}
	p.nodes = append(p.nodes, id)
	p.invalidate()
	return nil
}

// PushFront prepends a node; the new head enters unclipped.
func (p *Dynamic) PushFront(id uint64) error {
	if len(p.nodes) > 0 && !adjacent(p.g, id, p.nodes[0]) {
		return fmt.Errorf("PushFront: %d -> %d: %w", id, p.nodes[0], utils.ErrNotAdjacent)
	}
	p.nodes = append([]uint64{id}, p.nodes...)
	p.headOff = 0
	p.invalidate()
	return nil
}

func (p *Dynamic) PopBack() {
	if len(p.nodes) == 0 {
		return
	}
	p.nodes = p.nodes[:len(p.nodes)-1]
	p.tailOff = 0
	p.invalidate()
}

func (p *Dynamic) PopFront() {
	if len(p.nodes) == 0 {
		return
	}
	p.nodes = p.nodes[1:]
	p.headOff = 0
	p.invalidate()
}

// SetLeftByLen adjusts the head offset so the head node contributes
// exactly l bases.
func (p *Dynamic) SetLeftByLen(l uint32) error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("SetLeftByLen: %w", utils.ErrUninitialized)
	}
	nl := p.g.NodeLength(p.nodes[0])
	if l == 0 || l > nl {
		return fmt.Errorf("SetLeftByLen: %d of node len %d: %w", l, nl, utils.ErrOutOfRange)
	}
	p.headOff = nl - l
	p.invalidate()
	return nil
}

// SetRightByLen adjusts the tail offset so the tail node contributes
// exactly l bases.
func (p *Dynamic) SetRightByLen(l uint32) error {
	if len(p.nodes) == 0 {
		return fmt.Errorf("SetRightByLen: %w", utils.ErrUninitialized)
	}
	nl := p.g.NodeLength(p.nodes[len(p.nodes)-1])
	if l == 0 || l > nl {
		return fmt.Errorf("SetRightByLen: %d of node len %d: %w", l, nl, utils.ErrOutOfRange)
	}
	p.tailOff = nl - l
	p.invalidate()
	return nil
}

// TrimBack pops the back node when id is zero or matches it.
func (p *Dynamic) TrimBack(id uint64) {
	if len(p.nodes) == 0 {
		return
	}
	if id == 0 || p.nodes[len(p.nodes)-1] == id {
		p.PopBack()
	}
}

// TrimFront pops the front node when id is zero or matches it.
func (p *Dynamic) TrimFront(id uint64) {
	if len(p.nodes) == 0 {
		return
	}
	if id == 0 || p.nodes[0] == id {
		p.PopFront()
	}
}

func (p *Dynamic) seqLenNow() uint64 {
	var total uint64
	for i := range p.nodes {
		total += p.contrib(i)
	}
	return total
}

// LTrimBackByLen keeps the leftmost prefix of length at most k by
// trimming nodes off the back; with hard set the last kept node is
// clipped through the tail offset so the length is exactly k.
func (p *Dynamic) LTrimBackByLen(k uint64, hard bool) {
	if len(p.nodes) == 0 {
		return
	}
	if hard {
		for len(p.nodes) > 0 {
			cur := p.seqLenNow()
			if cur <= k {
				break
			}
			lastContrib := p.contrib(len(p.nodes) - 1)
			if cur-lastContrib >= k {
				p.PopBack()
				continue
			}
			p.tailOff += uint32(cur - k)
			break
		}
	} else {
		for len(p.nodes) > 0 && p.seqLenNow() > k {
			p.PopBack()
		}
	}
	p.invalidate()
}

// RTrimFrontByLen keeps the rightmost suffix of length at most k by
// trimming nodes off the front; hard clips into the head node.
func (p *Dynamic) RTrimFrontByLen(k uint64, hard bool) {
	if len(p.nodes) == 0 {
		return
	}
	if hard {
		for len(p.nodes) > 0 {
			cur := p.seqLenNow()
			if cur <= k {
				break
			}
			firstContrib := p.contrib(0)
			if cur-firstContrib >= k {
				p.PopFront()
				continue
			}
			p.headOff += uint32(cur - k)
			break
		}
	} else {
		for len(p.nodes) > 0 && p.seqLenNow() > k {
			p.PopFront()
		}
	}
	p.invalidate()
}

// RTrimBackByLen removes k bases from the back of the sequence; without
// hard the cut rounds down to a node boundary.
func (p *Dynamic) RTrimBackByLen(k uint64, hard bool) {
	cur := p.seqLenNow()
	if k >= cur {
		p.nodes = nil
		p.headOff, p.tailOff = 0, 0
		p.invalidate()
		return
	}
	p.LTrimBackByLen(cur-k, hard)
}

// LTrimFrontByLen removes k bases from the front of the sequence;
// without hard the cut rounds down to a node boundary.
func (p *Dynamic) LTrimFrontByLen(k uint64, hard bool) {
	cur := p.seqLenNow()
	if k >= cur {
		p.nodes = nil
		p.headOff, p.tailOff = 0, 0
		p.invalidate()
		return
	}
	p.RTrimFrontByLen(cur-k, hard)
}

// Concat appends other; the endpoints must share a node or be adjacent.
func (p *Dynamic) Concat(other *Dynamic) error {
	if len(other.nodes) == 0 {
		return nil
	}
	if len(p.nodes) == 0 {
		p.nodes = append(p.nodes, other.nodes...)
		p.headOff, p.tailOff = other.headOff, other.tailOff
		p.invalidate()
		return nil
	}
	last := p.nodes[len(p.nodes)-1]
	switch {
	case last == other.nodes[0]:
		p.nodes = append(p.nodes, other.nodes[1:]...)
	case adjacent(p.g, last, other.nodes[0]):
		p.nodes = append(p.nodes, other.nodes...)
	default:
		return fmt.Errorf("Concat: %d / %d: %w", last, other.nodes[0], utils.ErrNotAdjacent)
	}
	p.tailOff = other.tailOff
	p.invalidate()
	return nil
}

func (p *Dynamic) Equal(other *Dynamic) bool { return p.base.equal(&other.base) }

func (p *Dynamic) Serialize(w io.Writer) error { return p.base.serialize(w) }

func LoadDynamic(g *seqgraph.Graph, r io.Reader) (*Dynamic, error) {
	p := NewDynamic(g)
	if err := p.base.load(r); err != nil {
		return nil, err
	}
	return p, nil
}
