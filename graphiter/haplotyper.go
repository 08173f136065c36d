package graphiter

import (
	"math"
	"math/rand"

	"psi/pathseq"
	"psi/seqgraph"
	"psi/utils"
)

// Strategy selects the out-edge rule of the Haplotyper.
type Strategy int

const (
	// Global favours out-edges whose node-count setback window is
	// unseen across the stored paths.
	Global Strategy = iota
	// Local measures the setback window in basepairs.
	Local
	// Random takes a uniformly random out-edge; cheap baseline.
	Random
)

// Haplotyper emits haplotype paths that are pairwise distinct as
// ordered node sequences. Next extends the current path by one node;
// Commit stores it in the visited set and rewinds to the source node.
type Haplotyper struct {
	g          *seqgraph.Graph
	strategy   Strategy
	rng        *rand.Rand
	cur        uint64
	current    []uint64
	visited    []*pathseq.Haplotype
	setback    uint64
	raiseOnEnd bool
}

func NewHaplotyper(g *seqgraph.Graph, strategy Strategy, seed int64, raiseOnEnd bool) *Haplotyper {
	h := &Haplotyper{
		g:          g,
		strategy:   strategy,
		rng:        rand.New(rand.NewSource(seed)),
		raiseOnEnd: raiseOnEnd,
	}
	h.rewind()
	return h
}

func (h *Haplotyper) rewind() {
	h.cur = h.g.RankToID(1)
	h.current = h.current[:0]
	if h.cur != EndValue {
		h.current = append(h.current, h.cur)
	}
}

func (h *Haplotyper) Value() uint64   { return h.cur }
func (h *Haplotyper) AtEnd() bool     { return h.cur == EndValue }
func (h *Haplotyper) Path() []uint64  { return h.current }
func (h *Haplotyper) Setback() uint64 { return h.setback }

func (h *Haplotyper) Visited() []*pathseq.Haplotype { return h.visited }

// SetSetback derives the sliding-window size for the next path from
// the number of already-generated paths.
func (h *Haplotyper) SetSetback() {
	k := uint64(len(h.visited))
	switch h.strategy {
	case Local:
		if k == 0 {
			h.setback = 0
		} else {
			h.setback = 2*uint64(math.Ceil(math.Log2(float64(k+1)))) - 1
		}
	default:
		h.setback = k
	}
}

// Commit stores the current path in the visited set, refreshes the
// setback window and rewinds to the source node.
func (h *Haplotyper) Commit() {
	hp := pathseq.NewHaplotype()
	for _, id := range h.current {
		hp.PushBack(id)
	}
	h.visited = append(h.visited, hp)
	h.SetSetback()
	h.rewind()
}

// Rewind restarts the current path without committing it.
func (h *Haplotyper) Rewind() { h.rewind() }

// window returns the trailing setback window of the current path with
// cand appended. Global counts nodes, Local counts basepairs.
func (h *Haplotyper) window(cand uint64) []uint64 {
	if h.strategy == Local {
		bp := uint64(h.g.NodeLength(cand))
		i := len(h.current)
		for i > 0 && bp < h.setback {
			i--
			bp += uint64(h.g.NodeLength(h.current[i]))
		}
		win := append([]uint64(nil), h.current[i:]...)
		return append(win, cand)
	}
	take := int(h.setback)
	if take < 1 {
		take = 1
	}
	start := len(h.current) - (take - 1)
	if start < 0 {
		start = 0
	}
	win := append([]uint64(nil), h.current[start:]...)
	return append(win, cand)
}

func (h *Haplotyper) seen(win []uint64) bool {
	for _, hp := range h.visited {
		if hp.Contains(win) {
			return true
		}
	}
	return false
}

func (h *Haplotyper) coverage(id uint64) int {
	c := 0
	for _, hp := range h.visited {
		if hp.ContainsNode(id) {
			c++
		}
	}
	return c
}

// Next extends the current path by one node. At a sink the cursor hits
// the end sentinel; the caller decides whether to Commit.
func (h *Haplotyper) Next() error {
	if h.cur == EndValue {
		if h.raiseOnEnd {
			return utils.ErrEndOfIteration
		}
		return nil
	}
	var cands []uint64
	h.g.ForEachEdgesOut(h.cur, func(to uint64, et seqgraph.EdgeType) bool {
		cands = append(cands, to)
		return true
	})
	if len(cands) == 0 {
		h.cur = EndValue
		if h.raiseOnEnd {
			return utils.ErrEndOfIteration
		}
		return nil
	}
	var next uint64
	switch {
	case len(cands) == 1:
		next = cands[0]
	case h.strategy == Random:
		next = cands[h.rng.Intn(len(cands))]
	default:
		next = h.pick(cands)
	}
	h.current = append(h.current, next)
	h.cur = next
	return nil
}

// pick prefers a candidate whose setback window is unseen; otherwise
// the lowest-coverage candidate, ties broken uniformly at random.
func (h *Haplotyper) pick(cands []uint64) uint64 {
	for _, c := range cands {
		if !h.seen(h.window(c)) {
			return c
		}
	}
	minCov := h.coverage(cands[0])
	mins := []uint64{cands[0]}
	for _, c := range cands[1:] {
		cov := h.coverage(c)
		if cov < minCov {
			minCov = cov
			mins = mins[:0]
		}
		if cov == minCov {
			mins = append(mins, c)
		}
	}
	return mins[h.rng.Intn(len(mins))]
}
