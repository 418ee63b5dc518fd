package roulette

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// DefaultRandomCacheSize is how many secure floats are pre-generated per refill
const DefaultRandomCacheSize = 256

// SecureRandomGenerator implements RandomGenerator using crypto/rand with caching
type SecureRandomGenerator struct {
	cache      []float64
	cacheSize  int
	cacheIndex int
	cacheMtx   sync.Mutex
}

// NewSecureRandomGenerator creates a new secure random generator with specified cache size
//
// If no cache size is provided, the default cache size will be used.
func NewSecureRandomGenerator(cacheSize ...int) *SecureRandomGenerator {
	size := DefaultRandomCacheSize
	if len(cacheSize) > 0 && cacheSize[0] > 0 {
		size = cacheSize[0]
	}

	generator := &SecureRandomGenerator{
		cache:     make([]float64, size),
		cacheSize: size,
	}

	// 预填充缓存
	generator.refillCache()
	return generator
}

// refillCache refills the random number cache
func (g *SecureRandomGenerator) refillCache() {
	for i := range g.cacheSize {
		val, err := secureFloat()
		if err != nil {
			// crypto/rand 失败时退回到 math/rand
			val = mrand.Float64()
		}
		g.cache[i] = val
	}
	g.cacheIndex = 0
}

// GenerateFloat generates a secure random float between 0 and 1 (exclusive of 1)
func (g *SecureRandomGenerator) GenerateFloat() (float64, error) {
	g.cacheMtx.Lock()
	defer g.cacheMtx.Unlock()

	if g.cacheIndex >= g.cacheSize {
		g.refillCache()
	}

	result := g.cache[g.cacheIndex]
	g.cacheIndex++
	return result, nil
}

// GenerateInRange generates a secure random number within the specified range [min, max] (inclusive)
func (g *SecureRandomGenerator) GenerateInRange(min, max int) (int, error) {
	return scaleToRange(g, min, max)
}

// secureFloat generates a secure random float between 0 and 1 (exclusive of 1)
func secureFloat() (float64, error) {
	randomBig, err := rand.Int(rand.Reader, big.NewInt(1<<53)) // Use 53 bits for precision
	if err != nil {
		return 0, err
	}
	return float64(randomBig.Int64()) / float64(1<<53), nil
}

// SeededRandomGenerator is a reproducible generator for replays and tests
type SeededRandomGenerator struct {
	rng *mrand.Rand
}

// NewSeededRandomGenerator creates a PCG-backed generator from two seed words
func NewSeededRandomGenerator(seed1, seed2 uint64) *SeededRandomGenerator {
	return &SeededRandomGenerator{rng: mrand.New(mrand.NewPCG(seed1, seed2))}
}

// GenerateFloat returns a float in [0, 1)
func (g *SeededRandomGenerator) GenerateFloat() (float64, error) {
	return g.rng.Float64(), nil
}

// GenerateInRange returns an int in [min, max]
func (g *SeededRandomGenerator) GenerateInRange(min, max int) (int, error) {
	return scaleToRange(g, min, max)
}

func scaleToRange(g RandomGenerator, min, max int) (int, error) {
	if min > max {
		return 0, ErrInvalidRange
	}
	if min == max {
		return min, nil
	}

	randomFloat, err := g.GenerateFloat()
	if err != nil {
		return 0, err
	}

	rangeSize := max - min + 1
	result := int(randomFloat*float64(rangeSize)) + min

	// Ensure result is within bounds (handle floating point precision issues)
	if result > max {
		result = max
	}
	return result, nil
}
