// Package crs implements the Compressed Row Storage matrix family:
// Basic and Range groups, each over an in-memory, disk-buffered,
// fully-disk or prefix-code-compressed integer backing.
package crs

import (
	"fmt"
	"io"
	"os"

	"psi/utils"
)

// IntVector is the integer-sequence backing behind entries and row
// maps. Implementations are not safe for concurrent mutation.
type IntVector interface {
	Len() uint64
	At(i uint64) uint64
	Set(i, v uint64)
	PushBack(v uint64)
	Resize(n uint64)
	Reserve(n uint64)
	ShrinkToFit()
	Clear()
	Mutable() bool
	// Serialize / Load use the backing's native layout: raw
	// little-endian for mutable backings, prefix-coded for encVector.
	Serialize(w io.Writer) error
	Load(r io.Reader) error
	Close() error
}

// memVector is the in-memory backing of the Dynamic specialisation.
type memVector struct {
	v []uint64
}

func newMemVector() *memVector { return &memVector{} }

func (m *memVector) Len() uint64         { return uint64(len(m.v)) }
func (m *memVector) At(i uint64) uint64  { return m.v[i] }
func (m *memVector) Set(i, v uint64)     { m.v[i] = v }
func (m *memVector) PushBack(v uint64)   { m.v = append(m.v, v) }
func (m *memVector) Mutable() bool       { return true }
func (m *memVector) Clear()              { m.v = m.v[:0] }
func (m *memVector) Close() error        { return nil }

func (m *memVector) Resize(n uint64) {
	if n <= uint64(len(m.v)) {
		m.v = m.v[:n]
		return
	}
	for uint64(len(m.v)) < n {
		m.v = append(m.v, 0)
	}
}

func (m *memVector) Reserve(n uint64) {
	if uint64(cap(m.v)) < n {
		v := make([]uint64, len(m.v), n)
		copy(v, m.v)
		m.v = v
	}
}

func (m *memVector) ShrinkToFit() {
	if uint64(cap(m.v)) > uint64(len(m.v)) {
		v := make([]uint64, len(m.v))
		copy(v, m.v)
		m.v = v
	}
}

func (m *memVector) Serialize(w io.Writer) error {
	return utils.WriteUint64Slice(w, m.v)
}

func (m *memVector) Load(r io.Reader) error {
	v, err := utils.ReadUint64Slice(r)
	if err != nil {
		return err
	}
	m.v = v
	return nil
}

// diskVector keeps the values in a temp file with a small write-back
// window in RAM. A window length of one gives the fully-buffered
// specialisation. The temp file is removed on Close.
type diskVector struct {
	fp      *os.File
	n       uint64
	winLen  uint64
	winBase uint64
	win     []uint64
	dirty   bool
}

func newDiskVector(tmpDir string, winLen uint64) (*diskVector, error) {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	fp, err := os.CreateTemp(tmpDir, "psi_crs_*.iv")
	if err != nil {
		return nil, fmt.Errorf("newDiskVector: %w", err)
	}
	if winLen == 0 {
		winLen = 1
	}
	return &diskVector{fp: fp, winLen: winLen}, nil
}

func (d *diskVector) Len() uint64   { return d.n }
func (d *diskVector) Mutable() bool { return true }

func (d *diskVector) flush() {
	if !d.dirty || len(d.win) == 0 {
		return
	}
	buf := make([]byte, 8*len(d.win))
	for i, v := range d.win {
		for b := 0; b < 8; b++ {
			buf[8*i+b] = byte(v >> (8 * b))
		}
	}
	if _, err := d.fp.WriteAt(buf, int64(8*d.winBase)); err != nil {
		panic(fmt.Sprintf("diskVector flush: %v", err))
	}
	d.dirty = false
}

func (d *diskVector) slide(i uint64) {
	base := (i / d.winLen) * d.winLen
	if d.win != nil && base == d.winBase {
		return
	}
	d.flush()
	cnt := d.winLen
	if base+cnt > d.n {
		cnt = d.n - base
	}
	buf := make([]byte, 8*cnt)
	if cnt > 0 {
		if _, err := d.fp.ReadAt(buf, int64(8*base)); err != nil && err != io.EOF {
			panic(fmt.Sprintf("diskVector slide: %v", err))
		}
	}
	d.win = make([]uint64, d.winLen)
	for i := uint64(0); i < cnt; i++ {
		var v uint64
		for b := 0; b < 8; b++ {
			v |= uint64(buf[8*i+uint64(b)]) << (8 * b)
		}
		d.win[i] = v
	}
	d.winBase = base
}

func (d *diskVector) At(i uint64) uint64 {
	d.slide(i)
	return d.win[i-d.winBase]
}

func (d *diskVector) Set(i, v uint64) {
	d.slide(i)
	d.win[i-d.winBase] = v
	d.dirty = true
}

func (d *diskVector) PushBack(v uint64) {
	d.n++
	d.Set(d.n-1, v)
}

func (d *diskVector) Resize(n uint64) {
	if n != d.n {
		d.flush()
		if err := d.fp.Truncate(int64(8 * n)); err != nil {
			panic(fmt.Sprintf("diskVector Resize: %v", err))
		}
		d.win = nil
	}
	d.n = n
}

func (d *diskVector) Reserve(n uint64) {}
func (d *diskVector) ShrinkToFit()     {}

func (d *diskVector) Clear() { d.Resize(0) }

func (d *diskVector) Close() error {
	name := d.fp.Name()
	if err := d.fp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	return os.Remove(name)
}

func (d *diskVector) Serialize(w io.Writer) error {
	if err := utils.WriteUint64(w, d.n); err != nil {
		return err
	}
	for i := uint64(0); i < d.n; i++ {
		if err := utils.WriteUint64(w, d.At(i)); err != nil {
			return err
		}
	}
	return nil
}

func (d *diskVector) Load(r io.Reader) error {
	n, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	d.Clear()
	d.Resize(n)
	for i := uint64(0); i < n; i++ {
		v, err := utils.ReadUint64(r)
		if err != nil {
			return err
		}
		d.Set(i, v)
	}
	return nil
}
