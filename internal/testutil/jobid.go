// Package testutil holds deterministic helpers shared by tests and the
// conformance harness.
package testutil

import (
	"fmt"
	"sync"
)

// FixedJobIDGenerator generates the same job id every time.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence and panics
// when they run out, this generator never runs dry. Use it when every
// log record of a test should carry one id.
//
// Thread-safety: FixedJobIDGenerator is stateless and safe for concurrent use.
type FixedJobIDGenerator struct {
	id string
}

// NewFixedJobIDGenerator creates a generator returning id.
//
// If id is empty, Generate() returns "test-job-default".
func NewFixedJobIDGenerator(id string) *FixedJobIDGenerator {
	if id == "" {
		id = "test-job-default"
	}
	return &FixedJobIDGenerator{id: id}
}

// Generate returns the fixed job id.
//
// Implements engine.JobIDGenerator.
func (g *FixedJobIDGenerator) Generate() string {
	return g.id
}

// SequentialJobIDGenerator generates "<prefix>-1", "<prefix>-2", ...
//
// It can be reset so the same scenario produces the same ids on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialJobIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialJobIDGenerator creates a generator starting at 1.
func NewSequentialJobIDGenerator(prefix string) *SequentialJobIDGenerator {
	if prefix == "" {
		prefix = "job"
	}
	return &SequentialJobIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialJobIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Issued returns how many ids have been generated since the last Reset.
func (g *SequentialJobIDGenerator) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence; the next id ends in -1.
func (g *SequentialJobIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
