// Package graphiter provides the stateful graph cursors used during
// indexing: breadth-first search, a backtracking walker, and the
// haplotype path generator. Cursors hold a borrow of the graph; a
// current value of zero is the end sentinel.
package graphiter

import (
	"psi/seqgraph"
	"psi/utils"
)

// EndValue is the sentinel node id cursors expose once exhausted.
const EndValue uint64 = 0

type bfsItem struct {
	node  uint64
	level uint32
}

// BFS is a classical breadth-first cursor over the whole graph. When
// one component drains, the next unvisited node in rank order seeds a
// new root.
type BFS struct {
	g          *seqgraph.Graph
	queue      []bfsItem
	visited    map[uint64]struct{}
	lb         uint64 // rank lower bound for the next root scan
	cur        uint64
	level      uint32
	raiseOnEnd bool
}

func NewBFS(g *seqgraph.Graph, raiseOnEnd bool) *BFS {
	b := &BFS{g: g, raiseOnEnd: raiseOnEnd}
	b.Reset()
	return b
}

func (b *BFS) Reset() {
	b.queue = b.queue[:0]
	b.visited = make(map[uint64]struct{})
	b.lb = 1
	b.cur = EndValue
	b.level = 0
	b.seed()
}

// seed scans ranks >= lb for an unvisited root.
func (b *BFS) seed() {
	n := b.g.NodeCount()
	for r := b.lb; r <= n; r++ {
		id := b.g.RankToID(r)
		if _, ok := b.visited[id]; !ok {
			b.visited[id] = struct{}{}
			b.queue = append(b.queue, bfsItem{node: id})
			b.cur = id
			b.level = 0
			b.lb = r + 1
			return
		}
	}
	b.cur = EndValue
}

func (b *BFS) Value() uint64 { return b.cur }
func (b *BFS) Level() uint32 { return b.level }
func (b *BFS) AtEnd() bool   { return b.cur == EndValue }

// Next pops the current node and expands its unvisited out-neighbours.
func (b *BFS) Next() error {
	if b.cur == EndValue {
		if b.raiseOnEnd {
			return utils.ErrEndOfIteration
		}
		return nil
	}
	head := b.queue[0]
	b.queue = b.queue[1:]
	b.g.ForEachEdgesOut(head.node, func(to uint64, et seqgraph.EdgeType) bool {
		if _, ok := b.visited[to]; !ok {
			b.visited[to] = struct{}{}
			b.queue = append(b.queue, bfsItem{node: to, level: head.level + 1})
		}
		return true
	})
	if len(b.queue) > 0 {
		b.cur = b.queue[0].node
		b.level = b.queue[0].level
		return nil
	}
	b.seed()
	if b.cur == EndValue && b.raiseOnEnd {
		return utils.ErrEndOfIteration
	}
	return nil
}
