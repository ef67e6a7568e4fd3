// Package id provides centralized ID generation for the broker.
//
// Two kinds of identifiers live here:
//   - Sequence: strictly increasing integers starting at 1, used for the
//     shared process/worker namespace. Values are never reused.
//   - ULIDs: lexicographically sortable string ids with a type prefix, used for
//     log sink subscriptions and other handles that are never compared
//     against allow-lists.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Sequences
// ============================================================================

// Sequence hands out monotonically increasing integers starting at 1.
// The zero value is ready to use and safe for concurrent callers.
type Sequence struct {
	last atomic.Int64
}

// Next returns the next value in the sequence.
func (s *Sequence) Next() int {
	return int(s.last.Add(1))
}

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// SinkID identifies a registered log sink
type SinkID string

const (
	SinkPrefix = "sink"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewSinkID generates a new log sink ID
func NewSinkID() SinkID {
	return SinkID(Default().GenerateWithPrefix(SinkPrefix))
}

func (id SinkID) String() string { return string(id) }

