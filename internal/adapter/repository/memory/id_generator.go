package memory

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDGenerator hands out predictable IDs, for tests and local runs.
type SequentialIDGenerator struct {
	prefix string
	next   atomic.Int64
}

// NewSequentialIDGenerator creates a generator producing prefix-000001, ...
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%06d", g.prefix, g.next.Add(1))
}
