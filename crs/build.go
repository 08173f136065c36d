package crs

import (
	"fmt"

	"psi/utils"
)

// PartialCtor installs one block of a block matrix at (srow, scol).
// Blocks must have pairwise disjoint rows and columns and arrive in
// strictly increasing srow; row gaps become zero rows.
type PartialCtor func(block *Matrix, srow, scol uint64) error

// Build constructs m block by block. The callback is invoked exactly
// once and calls the partial constructor for every block.
func (m *Matrix) Build(nrows, ncols uint64, cb func(PartialCtor) error, nnzHint uint64) error {
	if !m.mutable() {
		return fmt.Errorf("Build: %w", utils.ErrImmutable)
	}
	if err := m.Clear(); err != nil {
		return err
	}
	m.ncols = ncols
	if nnzHint > 0 {
		m.entries.Reserve(nnzHint)
	}
	nextRow := uint64(0)
	partial := func(block *Matrix, srow, scol uint64) error {
		if srow < nextRow {
			return fmt.Errorf("Build: block at row %d overlaps row %d: %w", srow, nextRow, utils.ErrOutOfRange)
		}
		if srow+block.NumRows() > nrows || scol+block.ncols > ncols {
			return fmt.Errorf("Build: block %dx%d at (%d,%d) exceeds %dx%d: %w",
				block.NumRows(), block.ncols, srow, scol, nrows, ncols, utils.ErrOutOfRange)
		}
		for ; nextRow < srow; nextRow++ {
			if err := m.AppendRow(nil); err != nil {
				return err
			}
		}
		for r := uint64(0); r < block.NumRows(); r++ {
			rs := block.RowRanges(r)
			for k := range rs {
				rs[k][0] += scol
				rs[k][1] += scol
			}
			if err := m.AppendRowRanges(rs); err != nil {
				return err
			}
		}
		nextRow = srow + block.NumRows()
		return nil
	}
	if err := cb(partial); err != nil {
		return err
	}
	for ; nextRow < nrows; nextRow++ {
		if err := m.AppendRow(nil); err != nil {
			return err
		}
	}
	return nil
}
