package pathseq

import (
	"io"
	"sort"

	"psi/utils"
)

// Micro is the unordered membership-only path variant.
type Micro struct {
	set map[uint64]struct{}
}

func NewMicro() *Micro {
	return &Micro{set: make(map[uint64]struct{})}
}

func (p *Micro) PushBack(id uint64) { p.set[id] = struct{}{} }

func (p *Micro) Size() uint64 { return uint64(len(p.set)) }

func (p *Micro) Contains(id uint64) bool {
	_, ok := p.set[id]
	return ok
}

// ContainsAll reports whether every queried node is in the set.
func (p *Micro) ContainsAll(ids []uint64) bool {
	for _, id := range ids {
		if !p.Contains(id) {
			return false
		}
	}
	return true
}

func (p *Micro) Serialize(w io.Writer) error {
	ids := make([]uint64, 0, len(p.set))
	for id := range p.set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return utils.WriteUint64Slice(w, ids)
}

func LoadMicro(r io.Reader) (*Micro, error) {
	ids, err := utils.ReadUint64Slice(r)
	if err != nil {
		return nil, err
	}
	p := NewMicro()
	for _, id := range ids {
		p.PushBack(id)
	}
	return p, nil
}

// Haplotype is the ordered membership-only variant kept by the
// haplotyper's visited store.
type Haplotype struct {
	nodes []uint64
}

func NewHaplotype() *Haplotype { return &Haplotype{} }

func (p *Haplotype) PushBack(id uint64) { p.nodes = append(p.nodes, id) }

func (p *Haplotype) Size() uint64 { return uint64(len(p.nodes)) }

func (p *Haplotype) Nodes() []uint64 { return p.nodes }

func (p *Haplotype) ContainsNode(id uint64) bool {
	for _, n := range p.nodes {
		if n == id {
			return true
		}
	}
	return false
}

// Contains reports whether query occurs as a contiguous ordered
// subsequence of the stored nodes.
func (p *Haplotype) Contains(query []uint64) bool {
	if len(query) == 0 || len(query) > len(p.nodes) {
		return len(query) == 0
	}
	for s := 0; s+len(query) <= len(p.nodes); s++ {
		match := true
		for i := range query {
			if p.nodes[s+i] != query[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// RContains walks back from the last stored node and matches the
// reversed query, i.e. a suffix check.
func (p *Haplotype) RContains(rquery []uint64) bool {
	if len(rquery) > len(p.nodes) {
		return false
	}
	for i, q := range rquery {
		if p.nodes[len(p.nodes)-1-i] != q {
			return false
		}
	}
	return true
}

func (p *Haplotype) Serialize(w io.Writer) error {
	return utils.WriteUint64Slice(w, p.nodes)
}

func LoadHaplotype(r io.Reader) (*Haplotype, error) {
	nodes, err := utils.ReadUint64Slice(r)
	if err != nil {
		return nil, err
	}
	return &Haplotype{nodes: nodes}, nil
}
