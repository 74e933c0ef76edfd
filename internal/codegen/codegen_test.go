package codegen

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"quizboard/internal/domain"
)

func TestGenerateShape(t *testing.T) {
	gen := NewGenerator(DefaultMaxAttempts)
	free := func(context.Context, string) (bool, error) { return false, nil }

	for i := 0; i < 500; i++ {
		code, err := gen.Generate(context.Background(), free)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !Valid(code) {
			t.Fatalf("invalid code %q", code)
		}
	}
}

func TestGenerateSkipsTakenCodes(t *testing.T) {
	// Replay the same seed to learn the first draws, then mark them as taken.
	probe := NewGeneratorWithSource(DefaultMaxAttempts, rand.NewSource(42))
	taken := map[string]bool{}
	for i := 0; i < 5; i++ {
		taken[probe.draw()] = true
	}

	gen := NewGeneratorWithSource(DefaultMaxAttempts, rand.NewSource(42))
	calls := 0
	code, err := gen.Generate(context.Background(), func(_ context.Context, c string) (bool, error) {
		calls++
		return taken[c], nil
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if taken[code] {
		t.Fatalf("returned taken code %s", code)
	}
	if calls != 6 {
		t.Fatalf("expected 6 existence checks, got %d", calls)
	}
}

func TestGenerateExhaustsRetries(t *testing.T) {
	gen := NewGenerator(10)
	calls := 0
	_, err := gen.Generate(context.Background(), func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	})
	if !errors.Is(err, domain.ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
	if calls != 10 {
		t.Fatalf("expected 10 attempts, got %d", calls)
	}
}

func TestGeneratePropagatesLookupErrors(t *testing.T) {
	gen := NewGenerator(DefaultMaxAttempts)
	boom := errors.New("db down")
	_, err := gen.Generate(context.Background(), func(context.Context, string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped lookup error, got %v", err)
	}
}

func TestNormalizeAndValid(t *testing.T) {
	if got := Normalize(" ab12cd "); got != "AB12CD" {
		t.Fatalf("normalize = %q", got)
	}
	for _, bad := range []string{"", "ABC", "ABC1234", "abc123", "AB-123"} {
		if Valid(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
	if !Valid("Z9Z9Z9") {
		t.Fatalf("expected Z9Z9Z9 to be valid")
	}
}
