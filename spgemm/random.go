package spgemm

import (
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"

	"psi/crs"
)

// RandomBasic builds a square n×n Basic CRS with nnz nonzeros whose
// columns per row are uniform over lo..=hi. The per-row quota is drawn
// by workers atomically bumping one of n counters until the total is
// reached, so the distribution itself is a contention-safe random walk.
func RandomBasic(n, nnz, lo, hi uint64, seed int64, numCPU int) *crs.Matrix {
	if numCPU <= 0 {
		numCPU = runtime.NumCPU()
	}
	width := hi - lo + 1
	if nnz > n*width {
		nnz = n * width
	}
	counters := make([]uint64, n)
	remaining := int64(nnz)
	var wg sync.WaitGroup
	for w := 0; w < numCPU; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(w)))
			for atomic.AddInt64(&remaining, -1) >= 0 {
				for {
					r := rng.Uint64() % n
					c := atomic.LoadUint64(&counters[r])
					if c >= width {
						continue
					}
					if atomic.CompareAndSwapUint64(&counters[r], c, c+1) {
						break
					}
				}
			}
		}(w)
	}
	wg.Wait()

	m := crs.NewDynamic(crs.Basic, n)
	rng := rand.New(rand.NewSource(seed))
	for r := uint64(0); r < n; r++ {
		m.AppendRow(sampleCols(rng, counters[r], lo, hi))
	}
	return m
}

// sampleCols draws k distinct ordinals from lo..=hi, sorted. When more
// than half the interval is wanted it samples the complement instead.
func sampleCols(rng *rand.Rand, k, lo, hi uint64) []uint64 {
	width := hi - lo + 1
	if k == width {
		cols := make([]uint64, 0, k)
		for c := lo; c <= hi; c++ {
			cols = append(cols, c)
		}
		return cols
	}
	invert := k > width/2
	draw := k
	if invert {
		draw = width - k
	}
	picked := make(map[uint64]bool, draw)
	for uint64(len(picked)) < draw {
		picked[lo+rng.Uint64()%width] = true
	}
	cols := make([]uint64, 0, k)
	for c := lo; c <= hi; c++ {
		if picked[c] != invert {
			cols = append(cols, c)
		}
	}
	return cols
}
