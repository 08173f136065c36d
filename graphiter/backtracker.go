package graphiter

import (
	"psi/seqgraph"
	"psi/utils"
)

type btEntry struct {
	parent uint64
	alts   []uint64
	idx    int // branch currently taken within alts
}

// Backtracker walks forward along the first untried out-edge and keeps
// the remaining branches buffered so Prev can rewind to the next
// alternative. It sweeps every path leaving the start node.
type Backtracker struct {
	g          *seqgraph.Graph
	start      uint64
	cur        uint64
	stack      []btEntry
	raiseOnEnd bool
}

func NewBacktracker(g *seqgraph.Graph, start uint64, raiseOnEnd bool) *Backtracker {
	bt := &Backtracker{g: g, raiseOnEnd: raiseOnEnd}
	bt.Reset(start)
	return bt
}

func (bt *Backtracker) Reset(start uint64) {
	bt.start = start
	bt.cur = start
	bt.stack = bt.stack[:0]
}

func (bt *Backtracker) Value() uint64 { return bt.cur }
func (bt *Backtracker) AtEnd() bool   { return bt.cur == EndValue }

// Next advances along the first out-edge of the current node,
// buffering the siblings. At a sink the cursor hits the end sentinel.
func (bt *Backtracker) Next() error {
	if bt.cur == EndValue {
		if bt.raiseOnEnd {
			return utils.ErrEndOfIteration
		}
		return nil
	}
	var alts []uint64
	bt.g.ForEachEdgesOut(bt.cur, func(to uint64, et seqgraph.EdgeType) bool {
		alts = append(alts, to)
		return true
	})
	if len(alts) == 0 {
		bt.cur = EndValue
		if bt.raiseOnEnd {
			return utils.ErrEndOfIteration
		}
		return nil
	}
	bt.stack = append(bt.stack, btEntry{parent: bt.cur, alts: alts})
	bt.cur = alts[0]
	return nil
}

// Prev rewinds to the deepest buffered alternative not yet taken.
// Returns false once every branch under the start node is exhausted.
func (bt *Backtracker) Prev() bool {
	for len(bt.stack) > 0 {
		top := &bt.stack[len(bt.stack)-1]
		top.idx++
		if top.idx < len(top.alts) {
			bt.cur = top.alts[top.idx]
			return true
		}
		bt.stack = bt.stack[:len(bt.stack)-1]
	}
	bt.cur = EndValue
	return false
}

// Depth is the number of hops taken from the start node.
func (bt *Backtracker) Depth() int { return len(bt.stack) }
