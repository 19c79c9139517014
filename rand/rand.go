package rand

import (
	"math"

	"github.com/pkg/errors"
	"github.com/seehuhn/mt19937"
	exprand "golang.org/x/exp/rand"
)

// A Generator wraps a 64-bit Mersenne twister. A sampler run owns exactly one
// Generator, so a fixed seed always reproduces the same chain. Generator is
// the golang.org/x/exp/rand.Source that gonum's distuv and distmv draw from.
type Generator struct {
	mt *mt19937.MT19937
}

var _ exprand.Source = (*Generator)(nil)

// NewGenerator creates a new PRNG based on the given seed
func NewGenerator(seed int64) (*Generator, error) {
	mt := mt19937.New()
	mt.Seed(seed)
	return &Generator{mt: mt}, nil
}

// NewGeneratorSlice creates a new PRNG seeded from a key slice (the canonical
// MT19937-64 init_by_array seeding).
func NewGeneratorSlice(key []uint64) (*Generator, error) {
	if len(key) < 1 {
		return nil, errors.New("At least one key value is required to seed the generator")
	}

	mt := mt19937.New()
	mt.SeedFromSlice(key)
	return &Generator{mt: mt}, nil
}

// Uint64 implements Source
func (g *Generator) Uint64() uint64 {
	return g.mt.Uint64()
}

// Seed implements Source: the stream restarts as if from NewGenerator(seed)
func (g *Generator) Seed(seed uint64) {
	g.mt.Seed(int64(seed))
}

// Int63 provides the same interface as Go's math/rand
func (g *Generator) Int63() int64 {
	return int64(g.mt.Uint64() & 0x7fffffffffffffff)
}

// Int63n is a copy of the current Go code
func (g *Generator) Int63n(n int64) int64 {
	if n <= 0 {
		panic("invalid argument to Int63n")
	}

	if n&(n-1) == 0 { // n is power of two, can mask
		return g.Int63() & (n - 1)
	}

	max := int64((1 << 63) - 1 - (1<<63)%uint64(n))
	v := g.Int63()
	for v > max {
		v = g.Int63()
	}

	return v % n
}

// Float64 returns a value in [0, 1). We use the commented, simpler
// implementation from the Go source.
func (g *Generator) Float64() float64 {
	return float64(g.Int63n(1<<53)) / (1 << 53)
}

// LogUniform returns log(u) for u drawn uniformly from [0, 1). This is the
// Metropolis acceptance threshold; log(0) is -Inf, which always accepts.
func (g *Generator) LogUniform() float64 {
	return math.Log(g.Float64())
}
