// Package fmindex provides an FM index over a set of byte strings.
// Strings are concatenated with a separator byte and indexed with a
// suffix array + BWT; backward search answers substring queries and
// locates occurrences as (string, in-string position) pairs.
package fmindex

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"psi/utils"

	"github.com/klauspost/compress/zstd"
)

// sentinel terminates every stored string inside the concatenated
// text. Patterns must not contain it.
const sentinel byte = 0

// SAValue is a decoded suffix-array hit.
type SAValue struct {
	StringIndex uint64
	Pos         uint64
}

// StringSet is an FM index over an ordered set of strings.
type StringSet struct {
	text   []byte
	starts []uint64

	sa    []uint64
	c     [256]uint64 // chars strictly smaller than c
	ep    [256]uint64 // last BWT row of c
	freq  [256]uint64
	occ   map[byte][]uint64
	built bool
}

func New() *StringSet {
	return &StringSet{}
}

// PushString appends a string to the set. Invalidates the index until
// the next Initialize.
func (ss *StringSet) PushString(s []byte) {
	ss.starts = append(ss.starts, uint64(len(ss.text)))
	ss.text = append(ss.text, s...)
	ss.text = append(ss.text, sentinel)
	ss.built = false
}

func (ss *StringSet) Size() uint64 { return uint64(len(ss.starts)) }

func (ss *StringSet) StringLen(i uint64) uint64 {
	end := uint64(len(ss.text))
	if i+1 < ss.Size() {
		end = ss.starts[i+1]
	}
	return end - ss.starts[i] - 1 // without the separator
}

func (ss *StringSet) String(i uint64) []byte {
	return ss.text[ss.starts[i] : ss.starts[i]+ss.StringLen(i)]
}

func (ss *StringSet) Clear() {
	ss.text = nil
	ss.starts = nil
	ss.sa = nil
	ss.occ = nil
	ss.built = false
}

func (ss *StringSet) Initialized() bool { return ss.built }

// Initialize builds the suffix array and the LF fibres. Idempotent.
func (ss *StringSet) Initialize() {
	if ss.built || len(ss.text) == 0 {
		return
	}
	ss.sa = buildSuffixArray(ss.text)
	ss.buildTables()
	ss.built = true
}

func (ss *StringSet) buildTables() {
	n := uint64(len(ss.text))
	ss.occ = make(map[byte][]uint64)
	for i := range ss.freq {
		ss.freq[i] = 0
	}
	bwt := make([]byte, n)
	for i := uint64(0); i < n; i++ {
		ss.freq[ss.text[i]]++
		bwt[i] = ss.text[(ss.sa[i]+n-1)%n]
	}
	var acc uint64
	for c := 0; c < 256; c++ {
		ss.c[c] = acc
		acc += ss.freq[c]
		if ss.freq[c] > 0 {
			ss.ep[c] = ss.c[c] + ss.freq[c] - 1
			ss.occ[byte(c)] = make([]uint64, n)
		}
	}
	for i := uint64(0); i < n; i++ {
		ss.occ[bwt[i]][i] = 1
		if i > 0 {
			for c := range ss.occ {
				ss.occ[c][i] += ss.occ[c][i-1]
			}
		}
	}
}

// searchRange runs backward search; returns the half-open BWT row range
// as inclusive [sp, ep] with ok=false when there is no match.
func (ss *StringSet) searchRange(pattern []byte) (sp, ep int, ok bool) {
	if !ss.built || len(pattern) == 0 {
		return 0, -1, false
	}
	c := pattern[len(pattern)-1]
	if c == sentinel || ss.freq[c] == 0 {
		return 0, -1, false
	}
	sp, ep = int(ss.c[c]), int(ss.ep[c])
	for i := len(pattern) - 2; i >= 0 && sp <= ep; i-- {
		c = pattern[i]
		if c == sentinel || ss.freq[c] == 0 {
			return 0, -1, false
		}
		sp = int(ss.c[c]) + int(ss.occ[c][sp-1])
		ep = int(ss.c[c]) + int(ss.occ[c][ep]) - 1
	}
	if sp > ep {
		return 0, -1, false
	}
	return sp, ep, true
}

func (ss *StringSet) Found(pattern []byte) bool {
	_, _, ok := ss.searchRange(pattern)
	return ok
}

func (ss *StringSet) Count(pattern []byte) uint64 {
	sp, ep, ok := ss.searchRange(pattern)
	if !ok {
		return 0
	}
	return uint64(ep - sp + 1)
}

// Locate returns every occurrence of pattern as a (string, position)
// pair, sorted by string then position.
func (ss *StringSet) Locate(pattern []byte) []SAValue {
	sp, ep, ok := ss.searchRange(pattern)
	if !ok {
		return nil
	}
	res := make([]SAValue, 0, ep-sp+1)
	for k := sp; k <= ep; k++ {
		res = append(res, ss.Resolve(ss.sa[k]))
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].StringIndex != res[j].StringIndex {
			return res[i].StringIndex < res[j].StringIndex
		}
		return res[i].Pos < res[j].Pos
	})
	return res
}

// Resolve maps a flat text position to its (string, position) pair.
func (ss *StringSet) Resolve(flat uint64) SAValue {
	idx := sort.Search(len(ss.starts), func(i int) bool { return ss.starts[i] > flat }) - 1
	return SAValue{StringIndex: uint64(idx), Pos: flat - ss.starts[uint64(idx)]}
}

// Serialize writes the index as one zstd-compressed blob so the
// on-disk stream stays opaque to callers.
func (ss *StringSet) Serialize(w io.Writer) error {
	if !ss.built {
		ss.Initialize()
	}
	var raw bytes.Buffer
	if err := utils.WriteUint64Slice(&raw, ss.starts); err != nil {
		return err
	}
	if err := utils.WriteBytes(&raw, ss.text); err != nil {
		return err
	}
	if err := utils.WriteUint64Slice(&raw, ss.sa); err != nil {
		return err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	blob := enc.EncodeAll(raw.Bytes(), nil)
	enc.Close()
	return utils.WriteBytes(w, blob)
}

func (ss *StringSet) Load(r io.Reader) error {
	blob, err := utils.ReadBytes(r)
	if err != nil {
		return err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	rawBytes, err := dec.DecodeAll(blob, nil)
	dec.Close()
	if err != nil {
		return fmt.Errorf("Load: %v: %w", err, utils.ErrFormat)
	}
	raw := bytes.NewReader(rawBytes)
	if ss.starts, err = utils.ReadUint64Slice(raw); err != nil {
		return err
	}
	if ss.text, err = utils.ReadBytes(raw); err != nil {
		return err
	}
	if ss.sa, err = utils.ReadUint64Slice(raw); err != nil {
		return err
	}
	if uint64(len(ss.sa)) != uint64(len(ss.text)) {
		return fmt.Errorf("Load: suffix array length mismatch: %w", utils.ErrFormat)
	}
	if len(ss.text) > 0 {
		ss.buildTables()
		ss.built = true
	}
	return nil
}
