package crs

import (
	"fmt"
	"io"

	"psi/utils"
)

// Group separates the two entry encodings: Basic stores sorted column
// ordinals, Range stores sorted non-overlapping (lo, hi) pairs.
type Group int

const (
	Basic Group = iota
	Range
)

// Spec names the storage specialisation.
type Spec int

const (
	Dynamic Spec = iota
	Buffered
	FullyBuffered
	Compressed
)

const bufferedWindow = 4096

// Matrix is a boolean CRS matrix. entries[rowMap[i]..rowMap[i+1]) hold
// row i: column ordinals for the Basic group, flattened (lo, hi) pairs
// for the Range group. nnz always counts expanded set bits.
type Matrix struct {
	group   Group
	spec    Spec
	entries IntVector
	rowMap  IntVector // nrows+1 values, rowMap[0] = 0
	ncols   uint64
	nnz     uint64
}

func newMatrix(group Group, spec Spec, entries, rowMap IntVector, ncols uint64) *Matrix {
	if rowMap.Len() == 0 {
		rowMap.PushBack(0)
	}
	return &Matrix{group: group, spec: spec, entries: entries, rowMap: rowMap, ncols: ncols}
}

// NewDynamic builds an empty in-memory matrix.
func NewDynamic(group Group, ncols uint64) *Matrix {
	return newMatrix(group, Dynamic, newMemVector(), newMemVector(), ncols)
}

// NewBuffered builds an empty matrix whose fibres live in a temp file
// under tmpDir (or the system temp dir) with an in-RAM window.
func NewBuffered(group Group, ncols uint64, tmpDir string) (*Matrix, error) {
	entries, err := newDiskVector(tmpDir, bufferedWindow)
	if err != nil {
		return nil, err
	}
	rowMap, err := newDiskVector(tmpDir, bufferedWindow)
	if err != nil {
		entries.Close()
		return nil, err
	}
	return newMatrix(group, Buffered, entries, rowMap, ncols), nil
}

// NewFullyBuffered is NewBuffered with a single-value window, keeping
// essentially everything on disk.
func NewFullyBuffered(group Group, ncols uint64, tmpDir string) (*Matrix, error) {
	entries, err := newDiskVector(tmpDir, 1)
	if err != nil {
		return nil, err
	}
	rowMap, err := newDiskVector(tmpDir, 1)
	if err != nil {
		entries.Close()
		return nil, err
	}
	return newMatrix(group, FullyBuffered, entries, rowMap, ncols), nil
}

// FromArrays adopts externally built fibres without copying.
func FromArrays(group Group, entries, rowMap []uint64, ncols, nnz uint64) *Matrix {
	m := newMatrix(group, Dynamic, &memVector{v: entries}, &memVector{v: rowMap}, ncols)
	m.nnz = nnz
	return m
}

// FromExternal copy-transforms a foreign CRS representation given by
// its row pointer and column index arrays.
func FromExternal(group Group, ncols uint64, rowPtr, colInd []uint64) *Matrix {
	m := NewDynamic(group, ncols)
	for i := 0; i+1 < len(rowPtr); i++ {
		m.AppendRow(colInd[rowPtr[i]:rowPtr[i+1]])
	}
	return m
}

// Compress freezes m into the immutable prefix-coded specialisation.
func Compress(m *Matrix) *Matrix {
	out := &Matrix{
		group:   m.group,
		spec:    Compressed,
		entries: newEncVector(m.entries),
		rowMap:  newEncVector(m.rowMap),
		ncols:   m.ncols,
		nnz:     m.nnz,
	}
	return out
}

// NewCompressedEmpty makes a hollow Compressed matrix for Load.
func NewCompressedEmpty(group Group) *Matrix {
	return &Matrix{group: group, spec: Compressed, entries: &encVector{}, rowMap: &encVector{}}
}

func (m *Matrix) Group() Group { return m.group }
func (m *Matrix) Spec() Spec   { return m.spec }

func (m *Matrix) NumRows() uint64 {
	if m.rowMap.Len() == 0 {
		return 0
	}
	return m.rowMap.Len() - 1
}

func (m *Matrix) NumCols() uint64 { return m.ncols }

// NNZ is the expanded count of set bits.
func (m *Matrix) NNZ() uint64 { return m.nnz }

// Entry returns the k-th stored entry ordinal.
func (m *Matrix) Entry(k uint64) (uint64, error) {
	if k >= m.entries.Len() {
		return 0, fmt.Errorf("Entry: %d of %d: %w", k, m.entries.Len(), utils.ErrOutOfRange)
	}
	return m.entries.At(k), nil
}

// RowMap returns the entries offset where row i starts.
func (m *Matrix) RowMap(i uint64) (uint64, error) {
	if i >= m.rowMap.Len() {
		return 0, fmt.Errorf("RowMap: %d of %d: %w", i, m.rowMap.Len(), utils.ErrOutOfRange)
	}
	return m.rowMap.At(i), nil
}

// At reports bit (i, j) with bounds checking.
func (m *Matrix) At(i, j uint64) (bool, error) {
	if i >= m.NumRows() || j >= m.ncols {
		return false, fmt.Errorf("At(%d,%d) of %dx%d: %w", i, j, m.NumRows(), m.ncols, utils.ErrOutOfRange)
	}
	lo, hi := m.rowMap.At(i), m.rowMap.At(i+1)
	if m.group == Basic {
		// binary search over the sorted column ordinals
		for lo < hi {
			mid := (lo + hi) / 2
			c := m.entries.At(mid)
			switch {
			case c == j:
				return true, nil
			case c < j:
				lo = mid + 1
			default:
				hi = mid
			}
		}
		return false, nil
	}
	for k := lo; k < hi; k += 2 {
		if m.entries.At(k) <= j && j <= m.entries.At(k+1) {
			return true, nil
		}
	}
	return false, nil
}

// RowCols expands row i into sorted column ordinals.
func (m *Matrix) RowCols(i uint64) []uint64 {
	lo, hi := m.rowMap.At(i), m.rowMap.At(i+1)
	var cols []uint64
	if m.group == Basic {
		for k := lo; k < hi; k++ {
			cols = append(cols, m.entries.At(k))
		}
		return cols
	}
	for k := lo; k < hi; k += 2 {
		for c := m.entries.At(k); c <= m.entries.At(k + 1); c++ {
			cols = append(cols, c)
		}
	}
	return cols
}

// RowRanges gives row i as (lo, hi) pairs regardless of group.
func (m *Matrix) RowRanges(i uint64) [][2]uint64 {
	lo, hi := m.rowMap.At(i), m.rowMap.At(i+1)
	var rs [][2]uint64
	if m.group == Range {
		for k := lo; k < hi; k += 2 {
			rs = append(rs, [2]uint64{m.entries.At(k), m.entries.At(k + 1)})
		}
		return rs
	}
	// compress the sorted ordinals on the fly
	var cur [2]uint64
	open := false
	for k := lo; k < hi; k++ {
		c := m.entries.At(k)
		if open && c == cur[1]+1 {
			cur[1] = c
			continue
		}
		if open {
			rs = append(rs, cur)
		}
		cur = [2]uint64{c, c}
		open = true
	}
	if open {
		rs = append(rs, cur)
	}
	return rs
}

func (m *Matrix) mutable() bool { return m.spec != Compressed }

// AppendRow adds the next row given its sorted column ordinals.
func (m *Matrix) AppendRow(cols []uint64) error {
	if !m.mutable() {
		return fmt.Errorf("AppendRow: %w", utils.ErrImmutable)
	}
	if m.group == Basic {
		for _, c := range cols {
			m.entries.PushBack(c)
		}
		m.nnz += uint64(len(cols))
	} else {
		for _, r := range colsToRanges(cols) {
			m.entries.PushBack(r[0])
			m.entries.PushBack(r[1])
			m.nnz += r[1] - r[0] + 1
		}
	}
	m.rowMap.PushBack(m.entries.Len())
	return nil
}

// AppendRowRanges adds the next row given sorted non-overlapping
// (lo, hi) pairs.
func (m *Matrix) AppendRowRanges(rs [][2]uint64) error {
	if !m.mutable() {
		return fmt.Errorf("AppendRowRanges: %w", utils.ErrImmutable)
	}
	if m.group == Range {
		for _, r := range rs {
			m.entries.PushBack(r[0])
			m.entries.PushBack(r[1])
			m.nnz += r[1] - r[0] + 1
		}
	} else {
		for _, r := range rs {
			for c := r[0]; c <= r[1]; c++ {
				m.entries.PushBack(c)
				m.nnz++
			}
		}
	}
	m.rowMap.PushBack(m.entries.Len())
	return nil
}

// colsToRanges compresses sorted ordinals into (lo, hi) pairs by one
// forward scan.
func colsToRanges(cols []uint64) [][2]uint64 {
	var rs [][2]uint64
	var rangeLo, lastPP uint64
	open := false
	for _, c := range cols {
		if open && c == lastPP {
			lastPP = c + 1
			continue
		}
		if open {
			rs = append(rs, [2]uint64{rangeLo, lastPP - 1})
		}
		rangeLo, lastPP = c, c+1
		open = true
	}
	if open {
		rs = append(rs, [2]uint64{rangeLo, lastPP - 1})
	}
	return rs
}

func (m *Matrix) Reserve(nnzHint uint64) error {
	if !m.mutable() {
		return fmt.Errorf("Reserve: %w", utils.ErrImmutable)
	}
	m.entries.Reserve(nnzHint)
	return nil
}

func (m *Matrix) ShrinkToFit() error {
	if !m.mutable() {
		return fmt.Errorf("ShrinkToFit: %w", utils.ErrImmutable)
	}
	m.entries.ShrinkToFit()
	m.rowMap.ShrinkToFit()
	return nil
}

func (m *Matrix) Clear() error {
	if !m.mutable() {
		return fmt.Errorf("Clear: %w", utils.ErrImmutable)
	}
	m.entries.Clear()
	m.rowMap.Clear()
	m.rowMap.PushBack(0)
	m.nnz = 0
	return nil
}

// Assign copies other's content into m, converting between groups on
// the fly.
func (m *Matrix) Assign(other *Matrix) error {
	if !m.mutable() {
		return fmt.Errorf("Assign: %w", utils.ErrImmutable)
	}
	if err := m.Clear(); err != nil {
		return err
	}
	m.ncols = other.ncols
	for i := uint64(0); i < other.NumRows(); i++ {
		if err := m.AppendRowRanges(other.RowRanges(i)); err != nil {
			return err
		}
	}
	return nil
}

// Swap exchanges content with other, backing included.
func (m *Matrix) Swap(other *Matrix) {
	*m, *other = *other, *m
}

// Close releases any disk backing.
func (m *Matrix) Close() error {
	if err := m.entries.Close(); err != nil {
		m.rowMap.Close()
		return err
	}
	return m.rowMap.Close()
}

// Serialize writes entries, row map, ncols and (Range group) the
// explicit nnz. The backing decides the fibre layout: raw little-endian
// for mutable specs, prefix-coded for Compressed.
func (m *Matrix) Serialize(w io.Writer) error {
	if err := m.entries.Serialize(w); err != nil {
		return err
	}
	if err := m.rowMap.Serialize(w); err != nil {
		return err
	}
	if err := utils.WriteUint64(w, m.ncols); err != nil {
		return err
	}
	if m.group == Range {
		return utils.WriteUint64(w, m.nnz)
	}
	return nil
}

// Load reads a stream produced by Serialize into m's own backing.
func (m *Matrix) Load(r io.Reader) error {
	if err := m.entries.Load(r); err != nil {
		return err
	}
	if err := m.rowMap.Load(r); err != nil {
		return err
	}
	ncols, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	m.ncols = ncols
	if m.rowMap.Len() == 0 {
		return fmt.Errorf("Load: empty row map: %w", utils.ErrFormat)
	}
	if m.group == Range {
		if m.nnz, err = utils.ReadUint64(r); err != nil {
			return err
		}
	} else {
		m.nnz = m.entries.Len()
	}
	return nil
}
