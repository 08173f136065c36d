// Package spgemm holds the sparse boolean kernels over the crs matrix
// family: the range SpGEMM product, the elementwise merge, random test
// matrix generation and the distance-index compression check. All
// kernels partition by output row, so workers never write the same row.
package spgemm

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"psi/crs"
	"psi/utils"
)

// rowPairs computes row i of A·B as merged (lo, hi) pairs. Each A-range
// (al, au) names the contiguous B rows al..=au whose ranges feed the
// accumulator.
func rowPairs(a, b *crs.Matrix, i uint64) [][2]uint64 {
	var cand [][2]uint64
	for _, ar := range a.RowRanges(i) {
		for k := ar[0]; k <= ar[1]; k++ {
			cand = append(cand, b.RowRanges(k)...)
		}
	}
	return mergePairs(cand)
}

// mergePairs sorts candidate pairs by lo and sweeps them into the
// canonical form: sorted, non-overlapping, never adjacent.
func mergePairs(ps [][2]uint64) [][2]uint64 {
	if len(ps) == 0 {
		return nil
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
	out := make([][2]uint64, 0, len(ps))
	cur := ps[0]
	for _, p := range ps[1:] {
		if p[0] <= cur[1]+1 {
			if p[1] > cur[1] {
				cur[1] = p[1]
			}
			continue
		}
		out = append(out, cur)
		cur = p
	}
	return append(out, cur)
}

// parallelRows runs fn over [0, nrows) split into numCPU contiguous
// chunks. fn must only touch state owned by its rows.
func parallelRows(nrows uint64, numCPU int, fn func(lo, hi uint64)) {
	if numCPU <= 0 {
		numCPU = runtime.NumCPU()
	}
	if uint64(numCPU) > nrows {
		numCPU = int(nrows)
	}
	if numCPU <= 1 {
		fn(0, nrows)
		return
	}
	chunk := (nrows + uint64(numCPU) - 1) / uint64(numCPU)
	var wg sync.WaitGroup
	for lo := uint64(0); lo < nrows; lo += chunk {
		hi := lo + chunk
		if hi > nrows {
			hi = nrows
		}
		wg.Add(1)
		go func(lo, hi uint64) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// prefixScan turns per-element counts into an inclusive running sum,
// deterministically: parallel chunk sums, a sequential scan over them,
// then parallel local scans.
func prefixScan(v []uint64, numCPU int) {
	if numCPU <= 0 {
		numCPU = runtime.NumCPU()
	}
	n := uint64(len(v))
	if n == 0 {
		return
	}
	if numCPU <= 1 || n < 2*uint64(numCPU) {
		for i := uint64(1); i < n; i++ {
			v[i] += v[i-1]
		}
		return
	}
	chunk := (n + uint64(numCPU) - 1) / uint64(numCPU)
	nchunks := (n + chunk - 1) / chunk
	sums := make([]uint64, nchunks)
	parallelRows(nchunks, numCPU, func(lo, hi uint64) {
		for c := lo; c < hi; c++ {
			var s uint64
			for i := c * chunk; i < (c+1)*chunk && i < n; i++ {
				s += v[i]
			}
			sums[c] = s
		}
	})
	var run uint64
	for c := range sums {
		run, sums[c] = run+sums[c], run
	}
	parallelRows(nchunks, numCPU, func(lo, hi uint64) {
		for c := lo; c < hi; c++ {
			s := sums[c]
			for i := c * chunk; i < (c+1)*chunk && i < n; i++ {
				s += v[i]
				v[i] = s
			}
		}
	})
}

// RangeSpGEMM computes C = A·B over Range CRS matrices with boolean
// semantics. Symbolic sizes each output row, a prefix scan places them,
// numeric fills the entries; all three phases are parallel over rows.
func RangeSpGEMM(a, b *crs.Matrix, numCPU int) (*crs.Matrix, error) {
	if a.Group() != crs.Range || b.Group() != crs.Range {
		return nil, fmt.Errorf("RangeSpGEMM: operands must be Range group: %w", utils.ErrFormat)
	}
	if a.NumCols() != b.NumRows() {
		return nil, fmt.Errorf("RangeSpGEMM: %dx%d times %dx%d: %w",
			a.NumRows(), a.NumCols(), b.NumRows(), b.NumCols(), utils.ErrOutOfRange)
	}
	nrows := a.NumRows()
	rowMap := make([]uint64, nrows+1)
	parallelRows(nrows, numCPU, func(lo, hi uint64) {
		for i := lo; i < hi; i++ {
			rowMap[i+1] = 2 * uint64(len(rowPairs(a, b, i)))
		}
	})
	prefixScan(rowMap, numCPU)
	entries := make([]uint64, rowMap[nrows])
	rowNNZ := make([]uint64, nrows)
	parallelRows(nrows, numCPU, func(lo, hi uint64) {
		for i := lo; i < hi; i++ {
			at := rowMap[i]
			for _, p := range rowPairs(a, b, i) {
				entries[at] = p[0]
				entries[at+1] = p[1]
				at += 2
				rowNNZ[i] += p[1] - p[0] + 1
			}
		}
	})
	var nnz uint64
	for _, v := range rowNNZ {
		nnz += v
	}
	return crs.FromArrays(crs.Range, entries, rowMap, b.NumCols(), nnz), nil
}
