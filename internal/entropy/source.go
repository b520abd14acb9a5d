// Package entropy supplies the simulation's randomness. Sources are seeded
// so a run can be replayed; a zero seed draws one from crypto/rand.
package entropy

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source is a seeded, lock-guarded random source.
type Source struct {
	seed uint64

	mu sync.Mutex
	r  *rand.Rand
}

// New creates a Source. A zero seed is replaced by a crypto-random one.
func New(seed uint64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{
		seed: seed,
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Seed returns the seed the source was created with.
func (s *Source) Seed() uint64 { return s.seed }

// Float64 returns a number in [0, 1).
func (s *Source) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Intn returns a number in [0, n). It returns 0 when n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// Chance reports true with probability p.
func (s *Source) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.Float64() < p
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1
	}
	if n := binary.LittleEndian.Uint64(buf[:]); n != 0 {
		return n
	}
	return 1
}
