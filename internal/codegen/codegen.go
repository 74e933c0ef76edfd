// Package codegen issues the short public join codes that identify quizzes.
package codegen

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizboard/internal/domain"
)

const (
	// Alphabet holds the 36 symbols a code may contain.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// Length is the fixed number of characters in a code.
	Length = 6
	// DefaultMaxAttempts bounds the collision retries.
	DefaultMaxAttempts = 100
)

// ExistsFunc reports whether a code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator draws random codes and retries on collision.
// Codes only need to be collision resistant, so math/rand is enough.
type Generator struct {
	maxAttempts int

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator(maxAttempts int) *Generator {
	return NewGeneratorWithSource(maxAttempts, rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource allows deterministic draws in tests.
func NewGeneratorWithSource(maxAttempts int, src rand.Source) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{maxAttempts: maxAttempts, rnd: rand.New(src)}
}

// Generate returns a code that exists reports as free.
// It fails with domain.ErrExhaustedRetries instead of handing back a colliding code.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		code := g.draw()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %s: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", domain.ErrExhaustedRetries
}

func (g *Generator) draw() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(Alphabet[g.rnd.Intn(len(Alphabet))])
	}
	return b.String()
}

// Normalize trims and upper-cases a code typed by a user.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the join code shape.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
