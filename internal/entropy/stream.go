// Package entropy provides the deterministic random stream that drives all
// stochastic events in a simulation run. One stream per simulation; the same
// seed always replays the same world.
package entropy

import "math/rand"

// Stream wraps a seeded PRNG with the draw helpers the simulation uses.
type Stream struct {
	seed int64
	r    *rand.Rand
}

// NewStream creates a deterministic stream from a seed.
func NewStream(seed int64) *Stream {
	return &Stream{seed: seed, r: rand.New(rand.NewSource(seed))}
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Float returns a uniform float64 in [0, 1).
func (s *Stream) Float() float64 {
	return s.r.Float64()
}

// Range returns a uniform float64 in [lo, hi).
func (s *Stream) Range(lo, hi float64) float64 {
	return lo + s.r.Float64()*(hi-lo)
}

// Chance returns true with probability p. p <= 0 never fires, p >= 1 always.
func (s *Stream) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return s.r.Float64() < p
}

// Intn returns a uniform int in [0, n). n <= 0 returns 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.Intn(n)
}

// Normal returns a normally distributed float64 with the given mean and
// standard deviation.
func (s *Stream) Normal(mean, stddev float64) float64 {
	return mean + s.r.NormFloat64()*stddev
}

// Fork derives an independent stream from this one. Used at world start to
// give generation and the turn loop separate deterministic streams.
func (s *Stream) Fork() *Stream {
	return NewStream(s.r.Int63())
}
