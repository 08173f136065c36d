package seedfinder

import (
	"fmt"
	"os"
	"sort"

	"psi/crs"
	"psi/graphiter"
	"psi/spgemm"
	"psi/utils"
)

// hop is one node occurrence on a downstream path, d bases strictly
// between the start node's end and the occurrence's first base.
type hop struct {
	id uint64
	d  uint64
}

// reachable sweeps every path leaving v with the Backtracker and
// collects node occurrences whose nearest base is within maxD of v's
// last base. Branches that can only reach further are pruned.
func (f *Finder) reachable(v, maxD uint64) []hop {
	bt := graphiter.NewBacktracker(f.g, v, false)
	hops := []hop{{id: v}}
	var out []hop
	descend := true
	for {
		if descend {
			if err := bt.Next(); err != nil {
				return out
			}
		}
		if bt.AtEnd() || !descend {
			if !bt.Prev() {
				return out
			}
		}
		depth := bt.Depth()
		parent := hops[depth-1]
		var d uint64
		if depth > 1 {
			d = parent.d + uint64(f.g.NodeLength(parent.id))
		}
		cur := hop{id: bt.Value(), d: d}
		hops = append(hops[:depth], cur)
		if d+1 <= maxD {
			out = append(out, cur)
		}
		descend = d+uint64(f.g.NodeLength(cur.id))+1 <= maxD
	}
}

// BuildDistanceIndex computes the boolean matrix of order
// total_nof_loci with bit (i, j) set iff position j lies between
// minInsert and maxInsert bases after position i along some graph
// path. Rows are produced in coordinate order as a Basic CRS and
// converted to the Range group. With UseBufferedMatrices set, the
// Basic working matrix lives in a temp file instead of RAM.
func (f *Finder) BuildDistanceIndex(minInsert, maxInsert uint64) (*crs.Matrix, error) {
	if minInsert > maxInsert {
		return nil, fmt.Errorf("BuildDistanceIndex: window %d..%d: %w", minInsert, maxInsert, utils.ErrOutOfRange)
	}
	total := f.g.TotalNofLoci()
	var basic *crs.Matrix
	if f.buffered {
		var err error
		if basic, err = crs.NewBuffered(crs.Basic, total, f.tmpDir); err != nil {
			return nil, err
		}
	} else {
		basic = crs.NewDynamic(crs.Basic, total)
	}
	defer basic.Close()
	var buildErr error
	f.g.ForEachNode(func(rank, id uint64) bool {
		lv := uint64(f.g.NodeLength(id))
		reach := f.reachable(id, maxInsert)
		for a := uint64(0); a < lv; a++ {
			var cols []uint64
			for _, h := range reach {
				// distance to base b of h.id is (lv-a) + h.d + b
				lw := uint64(f.g.NodeLength(h.id))
				near := lv - a + h.d
				if near > maxInsert {
					continue
				}
				blo := uint64(0)
				if minInsert > near {
					blo = minInsert - near
				}
				bhi := maxInsert - near
				if bhi > lw-1 {
					bhi = lw - 1
				}
				if blo > bhi {
					continue
				}
				cw := f.g.CoordinateID(h.id)
				for b := blo; b <= bhi; b++ {
					cols = append(cols, cw+b)
				}
			}
			sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
			cols = dedupe(cols)
			if buildErr = basic.AppendRow(cols); buildErr != nil {
				return false
			}
		}
		return true
	}, 1)
	if buildErr != nil {
		return nil, buildErr
	}
	rng := crs.NewDynamic(crs.Range, 0)
	if err := rng.Assign(basic); err != nil {
		return nil, err
	}
	return rng, nil
}

func dedupe(v []uint64) []uint64 {
	out := v[:0]
	for i, x := range v {
		if i == 0 || x != v[i-1] {
			out = append(out, x)
		}
	}
	return out
}

// DistanceIndexFileName embeds the insert-size window.
func DistanceIndexFileName(prefix string, minInsert, maxInsert uint64) string {
	return fmt.Sprintf("%s.dindex_%d_%d.sparse", prefix, minInsert, maxInsert)
}

// KHopFileName stamps the hop count next to the window of the one-hop
// index the chain was built from.
func KHopFileName(prefix string, minInsert, maxInsert uint64, k int) string {
	return fmt.Sprintf("%s.dindex_%d_%d_hop%d.sparse", prefix, minInsert, maxInsert, k)
}

func saveMatrix(m *crs.Matrix, fn string) error {
	fp, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer fp.Close()
	return m.Serialize(fp)
}

func loadRangeMatrix(fn string) (*crs.Matrix, error) {
	fp, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	m := crs.NewDynamic(crs.Range, 0)
	if err := m.Load(fp); err != nil {
		return nil, err
	}
	return m, nil
}

// SaveDistanceIndex serializes m under the window-stamped name.
func SaveDistanceIndex(m *crs.Matrix, prefix string, minInsert, maxInsert uint64) error {
	return saveMatrix(m, DistanceIndexFileName(prefix, minInsert, maxInsert))
}

// LoadDistanceIndex reads a Range distance index written by
// SaveDistanceIndex.
func LoadDistanceIndex(prefix string, minInsert, maxInsert uint64) (*crs.Matrix, error) {
	return loadRangeMatrix(DistanceIndexFileName(prefix, minInsert, maxInsert))
}

// SaveKHopIndex serializes a chained index under the hop-stamped name.
func SaveKHopIndex(m *crs.Matrix, prefix string, minInsert, maxInsert uint64, k int) error {
	return saveMatrix(m, KHopFileName(prefix, minInsert, maxInsert, k))
}

func LoadKHopIndex(prefix string, minInsert, maxInsert uint64, k int) (*crs.Matrix, error) {
	return loadRangeMatrix(KHopFileName(prefix, minInsert, maxInsert, k))
}

// MergeDistanceIndices loads two window-stamped Range indices, merges
// them elementwise and writes the result under the union window.
// Returns the output file name.
func MergeDistanceIndices(prefix string, min1, max1, min2, max2 uint64, numCPU int) (string, error) {
	m1, err := LoadDistanceIndex(prefix, min1, max1)
	if err != nil {
		return "", err
	}
	m2, err := LoadDistanceIndex(prefix, min2, max2)
	if err != nil {
		return "", err
	}
	merged, err := spgemm.MergeRange(m1, m2, numCPU)
	if err != nil {
		return "", err
	}
	minU, maxU := utils.MinUint64(min1, min2), utils.MaxUint64(max1, max2)
	if err := SaveDistanceIndex(merged, prefix, minU, maxU); err != nil {
		return "", err
	}
	return DistanceIndexFileName(prefix, minU, maxU), nil
}

// KHopIndex chains k-1 products of the one-hop distance index, giving
// positions reachable by k consecutive insert-size jumps.
func KHopIndex(m *crs.Matrix, k int, numCPU int) (*crs.Matrix, error) {
	if k < 1 {
		return nil, fmt.Errorf("KHopIndex: k = %d: %w", k, utils.ErrOutOfRange)
	}
	out := m
	for i := 1; i < k; i++ {
		next, err := spgemm.RangeSpGEMM(out, m, numCPU)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
