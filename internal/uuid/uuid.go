// Package uuid wraps ID generation behind an interface so tests can pin IDs.
package uuid

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces unique identifiers.
type Generator interface {
	New() string
}

// GoogleGenerator generates random v4 UUIDs.
type GoogleGenerator struct{}

// NewGoogleGenerator creates a Generator backed by google/uuid.
func NewGoogleGenerator() *GoogleGenerator {
	return &GoogleGenerator{}
}

// New returns a random UUID string.
func (g *GoogleGenerator) New() string {
	return uuid.New().String()
}

// SequentialGenerator produces deterministic IDs for tests.
type SequentialGenerator struct {
	Prefix  string
	counter atomic.Int64
}

// New returns the next sequential ID.
func (g *SequentialGenerator) New() string {
	return fmt.Sprintf("%s-%d", g.Prefix, g.counter.Add(1))
}
