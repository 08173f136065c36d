package spgemm

import (
	"fmt"

	"psi/crs"
	"psi/utils"
)

// mergeRowRanges walks two canonical pair lists with the two cursors,
// always fetching the pair with smaller lo (tie: smaller hi) and then
// greedily absorbing any pair from either side that starts at or before
// hi+1. Returns the merged pairs and their expanded bit count.
func mergeRowRanges(p1, p2 [][2]uint64) ([][2]uint64, uint64) {
	var out [][2]uint64
	var nnz uint64
	i1, i2 := 0, 0
	for i1 < len(p1) || i2 < len(p2) {
		var cur [2]uint64
		if i2 >= len(p2) ||
			(i1 < len(p1) && (p1[i1][0] < p2[i2][0] ||
				(p1[i1][0] == p2[i2][0] && p1[i1][1] <= p2[i2][1]))) {
			cur = p1[i1]
			i1++
		} else {
			cur = p2[i2]
			i2++
		}
		for {
			if i1 < len(p1) && p1[i1][0] <= cur[1]+1 {
				if p1[i1][1] > cur[1] {
					cur[1] = p1[i1][1]
				}
				i1++
				continue
			}
			if i2 < len(p2) && p2[i2][0] <= cur[1]+1 {
				if p2[i2][1] > cur[1] {
					cur[1] = p2[i2][1]
				}
				i2++
				continue
			}
			break
		}
		out = append(out, cur)
		nnz += cur[1] - cur[0] + 1
	}
	return out, nnz
}

func checkSameShape(op string, a, b *crs.Matrix) error {
	if a.NumRows() != b.NumRows() || a.NumCols() != b.NumCols() {
		return fmt.Errorf("%s: %dx%d vs %dx%d: %w",
			op, a.NumRows(), a.NumCols(), b.NumRows(), b.NumCols(), utils.ErrOutOfRange)
	}
	return nil
}

// MergeRange computes the elementwise union of two Range CRS matrices
// of identical shape, parallel over output rows.
func MergeRange(a, b *crs.Matrix, numCPU int) (*crs.Matrix, error) {
	if a.Group() != crs.Range || b.Group() != crs.Range {
		return nil, fmt.Errorf("MergeRange: operands must be Range group: %w", utils.ErrFormat)
	}
	if err := checkSameShape("MergeRange", a, b); err != nil {
		return nil, err
	}
	nrows := a.NumRows()
	rows := make([][][2]uint64, nrows)
	rowNNZ := make([]uint64, nrows)
	parallelRows(nrows, numCPU, func(lo, hi uint64) {
		for i := lo; i < hi; i++ {
			rows[i], rowNNZ[i] = mergeRowRanges(a.RowRanges(i), b.RowRanges(i))
		}
	})
	out := crs.NewDynamic(crs.Range, a.NumCols())
	for i := uint64(0); i < nrows; i++ {
		if err := out.AppendRowRanges(rows[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergeBasic is the set-union variant without range semantics.
func MergeBasic(a, b *crs.Matrix, numCPU int) (*crs.Matrix, error) {
	if a.Group() != crs.Basic || b.Group() != crs.Basic {
		return nil, fmt.Errorf("MergeBasic: operands must be Basic group: %w", utils.ErrFormat)
	}
	if err := checkSameShape("MergeBasic", a, b); err != nil {
		return nil, err
	}
	nrows := a.NumRows()
	rows := make([][]uint64, nrows)
	parallelRows(nrows, numCPU, func(lo, hi uint64) {
		for i := lo; i < hi; i++ {
			c1, c2 := a.RowCols(i), b.RowCols(i)
			var u []uint64
			k1, k2 := 0, 0
			for k1 < len(c1) || k2 < len(c2) {
				switch {
				case k2 >= len(c2) || (k1 < len(c1) && c1[k1] < c2[k2]):
					u = append(u, c1[k1])
					k1++
				case k1 >= len(c1) || c2[k2] < c1[k1]:
					u = append(u, c2[k2])
					k2++
				default:
					u = append(u, c1[k1])
					k1++
					k2++
				}
			}
			rows[i] = u
		}
	})
	out := crs.NewDynamic(crs.Basic, a.NumCols())
	for i := uint64(0); i < nrows; i++ {
		if err := out.AppendRow(rows[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Merge dispatches on the common group tag of the operands.
func Merge(a, b *crs.Matrix, numCPU int) (*crs.Matrix, error) {
	if a.Group() != b.Group() {
		return nil, fmt.Errorf("Merge: mixed groups: %w", utils.ErrFormat)
	}
	if a.Group() == crs.Range {
		return MergeRange(a, b, numCPU)
	}
	return MergeBasic(a, b, numCPU)
}
