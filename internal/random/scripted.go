package random

import "sync"

// ScriptedSource returns predetermined draws, in order. When the script is
// exhausted it falls back to zero, which keeps tests deterministic.
type ScriptedSource struct {
	mu    sync.Mutex
	draws []int
	next  int
}

// NewScriptedSource creates a ScriptedSource with the given draws.
func NewScriptedSource(draws ...int) *ScriptedSource {
	return &ScriptedSource{draws: draws}
}

// Intn returns the next scripted draw clamped to [0, n).
func (s *ScriptedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.draws) {
		return 0
	}
	v := s.draws[s.next]
	s.next++
	if v < 0 || v >= n {
		return 0
	}
	return v
}

// Perm returns the identity permutation; scripted tests that need a specific
// order should drive Intn instead.
func (s *ScriptedSource) Perm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
