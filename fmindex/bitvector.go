package fmindex

import (
	"io"
	"math/bits"

	"psi/utils"
)

// BitVector is a plain bit array with O(1) rank support once
// BuildRank has run.
type BitVector struct {
	words []uint64
	n     uint64
	ranks []uint64 // prefix popcounts, one per word
}

func NewBitVector(n uint64) *BitVector {
	return &BitVector{words: make([]uint64, (n+63)/64), n: n}
}

func (bv *BitVector) Len() uint64 { return bv.n }

func (bv *BitVector) Set(i uint64) {
	bv.words[i/64] |= 1 << (i % 64)
	bv.ranks = nil
}

func (bv *BitVector) Get(i uint64) bool {
	return bv.words[i/64]&(1<<(i%64)) != 0
}

func (bv *BitVector) BuildRank() {
	bv.ranks = make([]uint64, len(bv.words))
	var acc uint64
	for i, w := range bv.words {
		bv.ranks[i] = acc
		acc += popcount(w)
	}
}

// Rank1 returns the number of set bits in [0, i).
func (bv *BitVector) Rank1(i uint64) uint64 {
	if bv.ranks == nil {
		bv.BuildRank()
	}
	if i > bv.n {
		i = bv.n
	}
	word := i / 64
	var acc uint64
	if word < uint64(len(bv.ranks)) {
		acc = bv.ranks[word]
	} else {
		return bv.ranks[len(bv.ranks)-1] + popcount(bv.words[len(bv.words)-1])
	}
	return acc + popcount(bv.words[word]&((1<<(i%64))-1))
}

func popcount(w uint64) uint64 { return uint64(bits.OnesCount64(w)) }

func (bv *BitVector) Serialize(w io.Writer) error {
	if err := utils.WriteUint64(w, bv.n); err != nil {
		return err
	}
	return utils.WriteUint64Slice(w, bv.words)
}

func LoadBitVector(r io.Reader) (*BitVector, error) {
	n, err := utils.ReadUint64(r)
	if err != nil {
		return nil, err
	}
	words, err := utils.ReadUint64Slice(r)
	if err != nil {
		return nil, err
	}
	return &BitVector{words: words, n: n}, nil
}
