// Package sim implements the buyer-bot simulation engine: deterministic
// seeding, trigger classification, persona response synthesis, path
// execution and transcript scoring.
package sim

// Seed derivation and the per-turn pseudo-random stream are the
// load-bearing pieces for reproducibility: no draw may depend on
// wall-clock time, external entropy, or other turns.

const (
	seedGamma    uint64 = 0x9e3779b97f4a7c15
	mixConstant  uint64 = 0xbf58476d1ce4e5b9
	mixConstant2 uint64 = 0x94d049bb133111eb
)

// mix64 is the splitmix64 finalizer, a multiply-xor-shift bit mixer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= mixConstant
	x ^= x >> 27
	x *= mixConstant2
	x ^= x >> 31
	return x
}

// DeriveTurnSeed derives a reproducible seed for one turn of a run.
// The same (runSeed, turnNumber) pair always yields the same seed, and
// distinct turns of the same run land far apart in the mix space.
func DeriveTurnSeed(runSeed, turnNumber int64) int64 {
	h := mix64(uint64(runSeed) + seedGamma)
	h = mix64(h ^ (uint64(turnNumber)+1)*seedGamma)
	return int64(h)
}

// Stream is a stateful but fully deterministic generator of uniform
// floats in [0, 1). Given the same seed, the n-th call to Float64
// always returns the same value.
type Stream struct {
	seed    uint64
	counter uint64
}

func NewStream(seed int64) *Stream {
	return &Stream{seed: uint64(seed)}
}

// Float64 advances the internal counter and returns the next uniform
// draw in [0, 1).
func (s *Stream) Float64() float64 {
	s.counter++
	h := mix64(s.seed + s.counter*seedGamma)
	// Top 53 bits give a uniform double in [0, 1).
	return float64(h>>11) / (1 << 53)
}

// Pick returns a deterministic index in [0, n) from the next draw.
func (s *Stream) Pick(n int) int {
	if n <= 0 {
		return 0
	}
	idx := int(s.Float64() * float64(n))
	if idx >= n {
		idx = n - 1
	}
	return idx
}
