package storage_test

import "math"

// genBatch mirrors spec.md's canonical generator b_n: for i in
// [0, n), ts[i]=i, series_id[i]=i mod 1000, value[i]=sin(i).
func genBatch(n int) (ts []int64, seriesID []uint32, value []float64) {
	ts = make([]int64, n)
	seriesID = make([]uint32, n)
	value = make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = int64(i)
		seriesID[i] = uint32(i % 1000)
		value[i] = math.Sin(float64(i))
	}
	return
}

// lcg is a small deterministic linear-congruential generator, used to build
// non-monotonic, non-sinusoidal test batches without touching math/rand's
// global state.
type lcg struct{ state uint64 }

func newLCG(seed uint64) *lcg { return &lcg{state: seed} }

func (g *lcg) next() uint64 {
	// constants from Numerical Recipes
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return g.state
}

func genRandomBatch(n int, seed uint64) (ts []int64, seriesID []uint32, value []float64) {
	g := newLCG(seed)
	ts = make([]int64, n)
	seriesID = make([]uint32, n)
	value = make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = int64(g.next() % (1 << 40))
		seriesID[i] = uint32(g.next() % 1000)
		value[i] = float64(int64(g.next())) / float64(1<<32)
	}
	return
}
