package crs

import (
	"io"
	"math/bits"

	"psi/utils"
)

// bitWriter / bitReader stream bits LSB-first through a []uint64.
type bitWriter struct {
	words []uint64
	nbits uint64
}

func (bw *bitWriter) write(v uint64, n uint) {
	for n > 0 {
		word := bw.nbits / 64
		off := bw.nbits % 64
		if word >= uint64(len(bw.words)) {
			bw.words = append(bw.words, 0)
		}
		take := uint(64) - uint(off)
		if take > n {
			take = n
		}
		bw.words[word] |= (v & ((1 << take) - 1)) << off
		v >>= take
		n -= take
		bw.nbits += uint64(take)
	}
}

type bitReader struct {
	words []uint64
	pos   uint64
}

func (br *bitReader) read(n uint) uint64 {
	var v uint64
	var got uint
	for got < n {
		word := br.pos / 64
		off := br.pos % 64
		take := uint(64) - uint(off)
		if take > n-got {
			take = n - got
		}
		v |= ((br.words[word] >> off) & ((1 << take) - 1)) << got
		got += take
		br.pos += uint64(take)
	}
	return v
}

// Elias-delta code of x >= 1: gamma code of bit-length, then the value
// without its leading one.
func deltaEncode(bw *bitWriter, x uint64) {
	n := uint(bits.Len64(x))   // x needs n bits, leading one implicit
	l := uint(bits.Len(n)) - 1 // gamma part: l zeros, terminator, then n sans MSB
	bw.write(0, l)
	bw.write(1, 1)
	bw.write(uint64(n)&^(1<<l), l)
	bw.write(x&^(1<<(n-1)), n-1)
}

func deltaDecode(br *bitReader) uint64 {
	var l uint
	for br.read(1) == 0 {
		l++
	}
	n := uint(1)<<l | uint(br.read(l))
	return 1<<(n-1) | br.read(n-1)
}

func zigzag(d int64) uint64 {
	return uint64((d << 1) ^ (d >> 63))
}

func unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

const encSampleRate = 64

// encVector is the immutable prefix-coded backing of the Compressed
// specialisation: successive differences are zig-zagged and
// Elias-delta coded, with absolute samples for O(1) random access.
type encVector struct {
	n       uint64
	words   []uint64
	nbits   uint64
	samples []encSample
}

type encSample struct {
	value  uint64 // value at index i*encSampleRate
	bitPos uint64 // bit position just after that value's code
}

func newEncVector(values IntVector) *encVector {
	e := &encVector{n: values.Len()}
	bw := &bitWriter{}
	var prev uint64
	for i := uint64(0); i < e.n; i++ {
		v := values.At(i)
		deltaEncode(bw, zigzag(int64(v)-int64(prev))+1)
		if i%encSampleRate == 0 {
			e.samples = append(e.samples, encSample{value: v, bitPos: bw.nbits})
		}
		prev = v
	}
	e.words = bw.words
	e.nbits = bw.nbits
	return e
}

func (e *encVector) Len() uint64 { return e.n }

func (e *encVector) At(i uint64) uint64 {
	s := e.samples[i/encSampleRate]
	v := s.value
	br := &bitReader{words: e.words, pos: s.bitPos}
	for k := (i/encSampleRate)*encSampleRate + 1; k <= i; k++ {
		v = uint64(int64(v) + unzigzag(deltaDecode(br)-1))
	}
	return v
}

func (e *encVector) Mutable() bool { return false }

func (e *encVector) Set(i, v uint64)   { panic("encVector: modifying an immutable backing") }
func (e *encVector) PushBack(v uint64) { panic("encVector: modifying an immutable backing") }
func (e *encVector) Resize(n uint64)   { panic("encVector: modifying an immutable backing") }
func (e *encVector) Clear()            { panic("encVector: modifying an immutable backing") }

func (e *encVector) Reserve(n uint64) {}
func (e *encVector) ShrinkToFit()     {}
func (e *encVector) Close() error     { return nil }

func (e *encVector) Serialize(w io.Writer) error {
	if err := utils.WriteUint64(w, e.n); err != nil {
		return err
	}
	if err := utils.WriteUint64(w, e.nbits); err != nil {
		return err
	}
	return utils.WriteUint64Slice(w, e.words)
}

func (e *encVector) Load(r io.Reader) error {
	n, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	nbits, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	words, err := utils.ReadUint64Slice(r)
	if err != nil {
		return err
	}
	e.n, e.nbits, e.words = n, nbits, words
	// rebuild the sample fibre with one sequential decode
	e.samples = e.samples[:0]
	br := &bitReader{words: e.words}
	var v uint64
	for i := uint64(0); i < n; i++ {
		v = uint64(int64(v) + unzigzag(deltaDecode(br)-1))
		if i%encSampleRate == 0 {
			e.samples = append(e.samples, encSample{value: v, bitPos: br.pos})
		}
	}
	return nil
}
