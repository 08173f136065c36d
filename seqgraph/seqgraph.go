package seqgraph

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"psi/utils"

	"github.com/cespare/xxhash"
	"github.com/klauspost/compress/zstd"
)

// EdgeType is an opaque edge classification token. The indexer never
// interprets it beyond equality.
type EdgeType uint8

const (
	EdgeForward EdgeType = iota
	EdgeRevForward
	EdgeForwardRev
	EdgeRevRev
)

type Edge struct {
	To   uint64
	Type EdgeType
}

type node struct {
	id  uint64
	seq []byte
}

// Graph is a read-only sequence variation graph facade. Nodes carry
// ASCII DNA labels and are ranked 1..N in insertion order; the rank
// order must be topological for the distance index to be meaningful.
type Graph struct {
	nodes  []node
	ranks  map[uint64]uint64 // id -> rank (1-based)
	edges  [][]Edge          // out-adjacency, indexed by rank-1
	coords []uint64          // coords[r-1] = sum of label lens of ranks < r
	total  uint64            // total number of loci (sum of label lens)
}

func New() *Graph {
	return &Graph{ranks: make(map[uint64]uint64)}
}

// AddNode appends a node; nodes must be added in topological order.
func (g *Graph) AddNode(id uint64, seq string) error {
	if _, ok := g.ranks[id]; ok {
		return fmt.Errorf("AddNode: duplicate node %d: %w", id, utils.ErrFormat)
	}
	if len(seq) == 0 {
		return fmt.Errorf("AddNode: empty label on node %d: %w", id, utils.ErrFormat)
	}
	g.nodes = append(g.nodes, node{id: id, seq: []byte(seq)})
	g.edges = append(g.edges, nil)
	g.coords = append(g.coords, g.total)
	g.total += uint64(len(seq))
	g.ranks[id] = uint64(len(g.nodes))
	return nil
}

func (g *Graph) AddEdge(from, to uint64, et EdgeType) error {
	fr, ok := g.ranks[from]
	if !ok {
		return fmt.Errorf("AddEdge: unknown node %d: %w", from, utils.ErrFormat)
	}
	if _, ok = g.ranks[to]; !ok {
		return fmt.Errorf("AddEdge: unknown node %d: %w", to, utils.ErrFormat)
	}
	g.edges[fr-1] = append(g.edges[fr-1], Edge{To: to, Type: et})
	return nil
}

func (g *Graph) NodeCount() uint64 { return uint64(len(g.nodes)) }

func (g *Graph) RankToID(rank uint64) uint64 {
	if rank < 1 || rank > uint64(len(g.nodes)) {
		return 0
	}
	return g.nodes[rank-1].id
}

func (g *Graph) IDToRank(id uint64) uint64 { return g.ranks[id] }

func (g *Graph) NodeLength(id uint64) uint32 {
	r := g.ranks[id]
	if r == 0 {
		return 0
	}
	return uint32(len(g.nodes[r-1].seq))
}

func (g *Graph) NodeSequence(id uint64) string {
	r := g.ranks[id]
	if r == 0 {
		return ""
	}
	return string(g.nodes[r-1].seq)
}

// ForEachEdgesOut visits the out-edges of id; visitation halts when the
// callback returns false.
func (g *Graph) ForEachEdgesOut(id uint64, visit func(to uint64, et EdgeType) bool) {
	r := g.ranks[id]
	if r == 0 {
		return
	}
	for _, e := range g.edges[r-1] {
		if !visit(e.To, e.Type) {
			return
		}
	}
}

func (g *Graph) HasEdgesOut(id uint64) bool { return g.Outdegree(id) > 0 }

func (g *Graph) Outdegree(id uint64) int {
	r := g.ranks[id]
	if r == 0 {
		return 0
	}
	return len(g.edges[r-1])
}

// ForEachNode visits nodes in rank order starting at startRank (1-based);
// visitation halts when the callback returns false.
func (g *Graph) ForEachNode(visit func(rank, id uint64) bool, startRank uint64) {
	if startRank < 1 {
		startRank = 1
	}
	for r := startRank; r <= uint64(len(g.nodes)); r++ {
		if !visit(r, g.nodes[r-1].id) {
			return
		}
	}
}

// CoordinateID maps a node to its character offset in the virtual
// concatenated label text.
func (g *Graph) CoordinateID(id uint64) uint64 {
	r := g.ranks[id]
	if r == 0 {
		return 0
	}
	return g.coords[r-1]
}

func (g *Graph) TotalNofLoci() uint64 { return g.total }

// Checksum hashes node ids and labels in rank order; serialized paths
// carry it so stale indexes are rejected on load.
func (g *Graph) Checksum() uint64 {
	h := xxhash.New()
	var buf [8]byte
	for _, n := range g.nodes {
		putUint64(buf[:], n.id)
		h.Write(buf[:])
		h.Write(n.seq)
	}
	return h.Sum64()
}

// VerifyRanks reports whether every edge points from a lower rank to a
// strictly higher rank, i.e. the insertion order was topological.
func (g *Graph) VerifyRanks() bool {
	for r := range g.edges {
		for _, e := range g.edges[r] {
			if g.ranks[e.To] <= uint64(r+1) {
				return false
			}
		}
	}
	return true
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Load reads the sequence-graph text format: 'S <id> <dna>' node lines
// and 'L <from> <to> <type>' edge lines. Files ending in .zst or .gz are
// decompressed transparently.
func Load(fn string) (*Graph, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	var r io.Reader = fp
	if strings.HasSuffix(fn, ".zst") {
		zr, err := zstd.NewReader(fp)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	} else if strings.HasSuffix(fn, ".gz") {
		gzr, err := gzip.NewReader(fp)
		if err != nil {
			return nil, err
		}
		defer gzr.Close()
		r = gzr
	}
	return Read(r)
}

func Read(r io.Reader) (*Graph, error) {
	g := New()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "S":
			if len(fields) != 3 {
				return nil, fmt.Errorf("Read: line %d: bad S line: %w", lineNum, utils.ErrFormat)
			}
			id, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Read: line %d: %v: %w", lineNum, err, utils.ErrFormat)
			}
			if err = g.AddNode(id, fields[2]); err != nil {
				return nil, err
			}
		case "L":
			if len(fields) != 4 {
				return nil, fmt.Errorf("Read: line %d: bad L line: %w", lineNum, utils.ErrFormat)
			}
			from, err := strconv.ParseUint(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Read: line %d: %v: %w", lineNum, err, utils.ErrFormat)
			}
			to, err := strconv.ParseUint(fields[2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Read: line %d: %v: %w", lineNum, err, utils.ErrFormat)
			}
			et, err := strconv.ParseUint(fields[3], 10, 8)
			if err != nil {
				return nil, fmt.Errorf("Read: line %d: %v: %w", lineNum, err, utils.ErrFormat)
			}
			if err = g.AddEdge(from, to, EdgeType(et)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("Read: line %d: unknown record %q: %w", lineNum, fields[0], utils.ErrFormat)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}
