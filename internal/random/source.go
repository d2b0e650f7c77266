// Package random provides the randomness source used by the randomize
// actions, kept behind an interface so tests can script outcomes.
package random

import (
	"math/rand"
	"time"
)

// Source supplies the random draws the step managers need.
type Source interface {
	// Intn returns a uniform int in [0, n). n must be > 0.
	Intn(n int) int

	// Perm returns a random permutation of [0, n).
	Perm(n int) []int
}

type mathSource struct {
	rng *rand.Rand
}

// NewSource creates a Source seeded from the current time.
func NewSource() Source {
	return &mathSource{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededSource creates a deterministic Source for tests.
func NewSeededSource(seed int64) Source {
	return &mathSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *mathSource) Intn(n int) int {
	return s.rng.Intn(n)
}

func (s *mathSource) Perm(n int) []int {
	return s.rng.Perm(n)
}
