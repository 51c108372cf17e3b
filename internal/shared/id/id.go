// Package id provides ULID-based identifiers for the kernel.
//
// IDs are lexicographically sortable and carry a short type prefix so they
// read well in logs (run_01H...). Generation is guarded by a mutex around the
// entropy source and is safe for concurrent use.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies a single dispatch
type RequestID string

// ID prefixes, one per kind
const (
	RequestPrefix = "run"
	TracePrefix   = "trace"
	SpanPrefix    = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the shared generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewTraceID generates an ID for a whole trace
func NewTraceID() string {
	return Default().GenerateWithPrefix(TracePrefix)
}

// NewSpanID generates an ID for one span within a trace
func NewSpanID() string {
	return Default().GenerateWithPrefix(SpanPrefix)
}

func (rid RequestID) String() string { return string(rid) }

// Valid reports whether rid is a well-formed request ID
func (rid RequestID) Valid() bool {
	return HasPrefix(string(rid), RequestPrefix)
}

// HasPrefix reports whether s is a ULID tagged with prefix
func HasPrefix(s, prefix string) bool {
	p, raw, ok := strings.Cut(s, "_")
	return ok && p == prefix && IsValid(raw)
}

// Time extracts the creation time of a request ID
func (rid RequestID) Time() (time.Time, error) {
	_, raw, ok := strings.Cut(string(rid), "_")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed request id: %s", rid)
	}
	return Timestamp(raw)
}

// IsValid checks if a string is a valid ULID
func IsValid(s string) bool {
	_, err := ulid.Parse(s)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID string
func Timestamp(s string) (time.Time, error) {
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
