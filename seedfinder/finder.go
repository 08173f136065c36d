// Package seedfinder is the indexing driver: it generates haplotype
// paths, indexes them, enumerates the starting loci their seeds do not
// cover, and builds the insert-size distance indices.
package seedfinder

import (
	"fmt"
	"os"

	"psi/graphiter"
	"psi/pathindex"
	"psi/pathseq"
	"psi/pathset"
	"psi/seqgraph"
	"psi/utils"
)

// Finder drives one indexing run over a loaded graph.
type Finder struct {
	g        *seqgraph.Graph
	idx      *pathindex.PathIndex
	prefix   string
	seed     int64
	numCPU   int
	buffered bool
	tmpDir   string
}

func New(g *seqgraph.Graph, prefix string, dir pathseq.Direction, ctxSize uint64, seed int64, numCPU int) *Finder {
	return &Finder{
		g:      g,
		idx:    pathindex.New(g, dir, ctxSize, true),
		prefix: prefix,
		seed:   seed,
		numCPU: numCPU,
	}
}

// UseBufferedMatrices makes BuildDistanceIndex stage its working matrix
// in a temp file under tmpDir (empty means the system temp dir) instead
// of RAM.
func (f *Finder) UseBufferedMatrices(tmpDir string) {
	f.buffered = true
	f.tmpDir = tmpDir
}

func (f *Finder) Index() *pathindex.PathIndex { return f.idx }
func (f *Finder) PathSet() *pathset.PathSet   { return f.idx.GetPathsSet() }

// samePath reports whether the generated node sequence was already
// committed, which signals the Haplotyper has run out of novelty.
func samePath(hp *pathseq.Haplotype, ids []uint64) bool {
	return hp.Size() == uint64(len(ids)) && hp.Contains(ids)
}

// PickPaths walks the Haplotyper until n haplotype paths are emitted or
// the generator repeats itself. With patched set, each haplotype is
// decomposed into consecutive patches of at least the context size
// instead of being stored genome-wide.
func (f *Finder) PickPaths(n uint64, patched bool) error {
	if f.g.NodeCount() == 0 || n == 0 {
		return nil
	}
	h := graphiter.NewHaplotyper(f.g, graphiter.Global, f.seed, false)
	for emitted := uint64(0); emitted < n; emitted++ {
		for !h.AtEnd() {
			if err := h.Next(); err != nil {
				return err
			}
		}
		ids := append([]uint64(nil), h.Path()...)
		repeat := false
		for _, hp := range h.Visited() {
			if samePath(hp, ids) {
				repeat = true
				break
			}
		}
		if repeat {
			break
		}
		if err := f.appendPath(ids, patched); err != nil {
			return err
		}
		h.Commit()
	}
	return nil
}

func (f *Finder) appendPath(ids []uint64, patched bool) error {
	if !patched {
		return f.addCompact(ids)
	}
	ctx := f.idx.ContextSize()
	bounds := []int{0}
	var bases uint64
	for i, id := range ids {
		bases += uint64(f.g.NodeLength(id))
		if bases >= ctx && i+1 < len(ids) {
			bounds = append(bounds, i+1)
			bases = 0
		}
	}
	// a trailing patch short of the context folds into the previous one
	if bases < ctx && len(bounds) > 1 {
		bounds = bounds[:len(bounds)-1]
	}
	for k, s := range bounds {
		e := len(ids)
		if k+1 < len(bounds) {
			e = bounds[k+1]
		}
		if err := f.addCompact(ids[s:e]); err != nil {
			return err
		}
	}
	return nil
}

func (f *Finder) addCompact(ids []uint64) error {
	p := pathseq.NewCompact(f.g)
	if err := p.SetNodes(ids, 0, 0); err != nil {
		return err
	}
	return f.idx.AddPath(p)
}

// Locus is one seed starting position.
type Locus struct {
	ID     uint64
	Offset uint64
}

// AddAllLoci enumerates, for every node and every offset on the step
// grid with room for a full seed, the loci whose node is not covered by
// any stored path.
func (f *Finder) AddAllLoci(seedLen, step uint64) []Locus {
	if step == 0 {
		step = 1
	}
	ps := f.PathSet()
	var loci []Locus
	f.g.ForEachNode(func(rank, id uint64) bool {
		l := uint64(f.g.NodeLength(id))
		covered := ps.Found([]uint64{id})
		for off := uint64(0); off+seedLen <= l; off += step {
			if !covered {
				loci = append(loci, Locus{ID: id, Offset: off})
			}
		}
		return true
	}, 1)
	return loci
}

// IndexPaths materialises the FM index over the stored path sequences
// and writes the index file pair.
func (f *Finder) IndexPaths() error {
	if err := f.idx.CreateIndex(); err != nil {
		return err
	}
	return f.idx.Serialize(f.prefix)
}

// StartsFileName embeds the seed parameters so settings coexist.
func StartsFileName(prefix string, seedLen, step uint64) string {
	return fmt.Sprintf("%s.starts_%d_%d", prefix, seedLen, step)
}

// SaveStarts writes the starting loci as a count-prefixed vector of
// (node id, offset) pairs.
func SaveStarts(prefix string, seedLen, step uint64, loci []Locus) error {
	fp, err := os.Create(StartsFileName(prefix, seedLen, step))
	if err != nil {
		return err
	}
	defer fp.Close()
	if err := utils.WriteUint64(fp, uint64(len(loci))); err != nil {
		return err
	}
	for _, lc := range loci {
		if err := utils.WriteUint64(fp, lc.ID); err != nil {
			return err
		}
		if err := utils.WriteUint64(fp, lc.Offset); err != nil {
			return err
		}
	}
	return nil
}

func LoadStarts(prefix string, seedLen, step uint64) ([]Locus, error) {
	fp, err := os.Open(StartsFileName(prefix, seedLen, step))
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	count, err := utils.ReadUint64(fp)
	if err != nil {
		return nil, err
	}
	loci := make([]Locus, count)
	for i := range loci {
		if loci[i].ID, err = utils.ReadUint64(fp); err != nil {
			return nil, err
		}
		if loci[i].Offset, err = utils.ReadUint64(fp); err != nil {
			return nil, err
		}
	}
	return loci, nil
}
