// Package idempotency mints the tokens that let the booking service recognise
// a retried reservation request as the same logical attempt.
package idempotency

import (
	"sync"

	"github.com/google/uuid"
)

const tokenPrefix = "booking-"

type Generator interface {
	NewToken() string
}

// UUIDv7Generator combines a millisecond timestamp, a monotonic sequence and
// random bits, so tokens minted within the same millisecond still differ.
type UUIDv7Generator struct{}

func (UUIDv7Generator) NewToken() string {
	return tokenPrefix + uuid.Must(uuid.NewV7()).String()
}

var defaultGenerator Generator = UUIDv7Generator{}

func NewToken() string {
	return defaultGenerator.NewToken()
}

// FixedGenerator hands out predetermined tokens in order. It panics once the
// tokens run out.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

func (g *FixedGenerator) NewToken() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("idempotency: all fixed tokens used")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Issued is the number of tokens handed out so far.
func (g *FixedGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx
}
