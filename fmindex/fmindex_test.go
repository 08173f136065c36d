package fmindex

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"
)

func TestSuffixArraySorted(t *testing.T) {
	texts := []string{"banana\x00", "ACGTACGTAA\x00", "aaaa\x00", "\x00"}
	for _, s := range texts {
		sa := buildSuffixArray([]byte(s))
		if len(sa) != len(s) {
			t.Fatalf("sa length %d != %d", len(sa), len(s))
		}
		for i := 1; i < len(sa); i++ {
			if bytes.Compare([]byte(s[sa[i-1]:]), []byte(s[sa[i]:])) >= 0 {
				t.Errorf("suffixes of %q out of order at %d", s, i)
			}
		}
	}
}

func buildSet(strs ...string) *StringSet {
	ss := New()
	for _, s := range strs {
		ss.PushString([]byte(s))
	}
	ss.Initialize()
	return ss
}

func TestFoundSimple(t *testing.T) {
	ss := buildSet("ACGTACGT", "TTTT")
	cases := []struct {
		pat  string
		want bool
	}{
		{"ACGT", true},
		{"GTAC", true},
		{"TTTT", true},
		{"TTTTT", false},
		{"ACGTACGT", true},
		{"CGTT", false}, // would span the separator
		{"N", false},
	}
	for _, c := range cases {
		if got := ss.Found([]byte(c.pat)); got != c.want {
			t.Errorf("Found(%q) = %v, want %v", c.pat, got, c.want)
		}
	}
}

func TestLocate(t *testing.T) {
	ss := buildSet("ABAB", "BABA")
	occ := ss.Locate([]byte("AB"))
	want := []SAValue{{0, 0}, {0, 2}, {1, 1}}
	if len(occ) != len(want) {
		t.Fatalf("Locate(AB) = %v, want %v", occ, want)
	}
	for i := range want {
		if occ[i] != want[i] {
			t.Errorf("occ[%d] = %v, want %v", i, occ[i], want[i])
		}
	}
	if n := ss.Count([]byte("BA")); n != 3 {
		t.Errorf("Count(BA) = %d, want 3", n)
	}
}

func TestStringAccessors(t *testing.T) {
	ss := buildSet("HELLO", "WORLDS")
	if ss.Size() != 2 {
		t.Fatalf("Size = %d", ss.Size())
	}
	if ss.StringLen(0) != 5 || ss.StringLen(1) != 6 {
		t.Errorf("StringLen = %d,%d", ss.StringLen(0), ss.StringLen(1))
	}
	if string(ss.String(1)) != "WORLDS" {
		t.Errorf("String(1) = %q", ss.String(1))
	}
}

func TestAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	alpha := []byte("ACGT")
	var strs []string
	for i := 0; i < 5; i++ {
		n := 5 + rng.Intn(30)
		b := make([]byte, n)
		for j := range b {
			b[j] = alpha[rng.Intn(4)]
		}
		strs = append(strs, string(b))
	}
	ss := buildSet(strs...)
	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(6)
		pat := make([]byte, n)
		for j := range pat {
			pat[j] = alpha[rng.Intn(4)]
		}
		var want []SAValue
		for si, s := range strs {
			for p := 0; p+n <= len(s); p++ {
				if s[p:p+n] == string(pat) {
					want = append(want, SAValue{uint64(si), uint64(p)})
				}
			}
		}
		got := ss.Locate(pat)
		sort.Slice(want, func(i, j int) bool {
			if want[i].StringIndex != want[j].StringIndex {
				return want[i].StringIndex < want[j].StringIndex
			}
			return want[i].Pos < want[j].Pos
		})
		if len(got) != len(want) {
			t.Fatalf("pattern %q: got %v, want %v", pat, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("pattern %q: got %v, want %v", pat, got, want)
			}
		}
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	ss := buildSet("ACGTACGT", "GGGG", "TACG")
	var buf bytes.Buffer
	if err := ss.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	// trailing content after the blob must stay untouched
	buf.WriteString("TRAILER")
	loaded := New()
	if err := loaded.Load(&buf); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rest := buf.String(); rest != "TRAILER" {
		t.Errorf("Load consumed trailing bytes, rest = %q", rest)
	}
	if !loaded.Found([]byte("TACG")) || loaded.Found([]byte("CCCC")) {
		t.Errorf("loaded index answers differ")
	}
	if loaded.Size() != 3 || string(loaded.String(2)) != "TACG" {
		t.Errorf("loaded strings differ")
	}
}

func TestBitVectorRank(t *testing.T) {
	bv := NewBitVector(300)
	set := []uint64{0, 1, 63, 64, 65, 128, 299}
	for _, i := range set {
		bv.Set(i)
	}
	bv.BuildRank()
	for i, cnt := uint64(0), uint64(0); i <= 300; i++ {
		if got := bv.Rank1(i); got != cnt {
			t.Fatalf("Rank1(%d) = %d, want %d", i, got, cnt)
		}
		if i < 300 && bv.Get(i) {
			cnt++
		}
	}
}

func TestBitVectorRoundTrip(t *testing.T) {
	bv := NewBitVector(100)
	bv.Set(3)
	bv.Set(77)
	var buf bytes.Buffer
	if err := bv.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	got, err := LoadBitVector(&buf)
	if err != nil {
		t.Fatalf("LoadBitVector: %v", err)
	}
	if got.Len() != 100 || !got.Get(3) || !got.Get(77) || got.Get(4) {
		t.Errorf("round-tripped bitvector differs")
	}
	if got.Rank1(78) != 2 {
		t.Errorf("Rank1(78) = %d, want 2", got.Rank1(78))
	}
}
