package testutil

import (
	"fmt"
	"sync"
)

// SequentialBatchGenerator generates batch ids prefix-1, prefix-2, ...
//
// Unlike engine.FixedGenerator it never runs out, so one generator can serve
// any number of CLI invocations in a test. Reset restarts the sequence so the
// same test can run twice with identical ids.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialBatchGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialBatchGenerator creates a generator. An empty prefix
// defaults to "test-batch".
func NewSequentialBatchGenerator(prefix string) *SequentialBatchGenerator {
	if prefix == "" {
		prefix = "test-batch"
	}
	return &SequentialBatchGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.BatchIDGenerator.
func (g *SequentialBatchGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the sequence. The next Generate returns prefix-1.
func (g *SequentialBatchGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
