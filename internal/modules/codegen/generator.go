// Package codegen issues human-readable booking codes that never collide in the booking ledger.
package codegen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

var ErrCodeGenerationExhausted = errors.New("booking code generation exhausted")

const (
	DefaultMaxAttempts = 10

	suffixSpace    = 10000
	fallbackLength = 8
	fallbackChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeStore is the slice of the booking ledger the generator needs.
type CodeStore interface {
	CodeExists(ctx context.Context, code string) (bool, error)
	CodesWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

type Generator struct {
	store       CodeStore
	now         func() time.Time
	intn        func(n int) int
	maxAttempts int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand replaces the random source; intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(g *Generator) { g.intn = intn }
}

func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

func NewGenerator(store CodeStore, opts ...Option) *Generator {
	g := &Generator{
		store:       store,
		now:         time.Now,
		intn:        rand.IntN,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateUniqueCode returns <HUNTCODE>-<YYYYMMDD>-<NNNN>, or an 8 character code when
// huntCode is empty. Random suffixes are tried MaxAttempts times; after that the day's
// used suffixes are listed once and a free one is picked, so the only failure is a full day.
func (g *Generator) GenerateUniqueCode(ctx context.Context, huntCode string) (string, error) {
	huntCode = strings.ToUpper(strings.TrimSpace(huntCode))
	if huntCode == "" {
		return g.fallback(ctx)
	}

	prefix := fmt.Sprintf("%s-%s-", huntCode, g.now().UTC().Format("20060102"))
	for i := 0; i < g.maxAttempts; i++ {
		code := prefix + suffix(g.intn(suffixSpace))
		exists, err := g.store.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check booking code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	used, err := g.store.CodesWithPrefix(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("list booking codes: %w", err)
	}
	if len(used) >= suffixSpace {
		return "", ErrCodeGenerationExhausted
	}
	taken := make(map[string]struct{}, len(used))
	for _, c := range used {
		taken[strings.TrimPrefix(c, prefix)] = struct{}{}
	}
	free := make([]int, 0, suffixSpace-len(taken))
	for n := 0; n < suffixSpace; n++ {
		if _, ok := taken[suffix(n)]; !ok {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return "", ErrCodeGenerationExhausted
	}
	return prefix + suffix(free[g.intn(len(free))]), nil
}

func (g *Generator) fallback(ctx context.Context) (string, error) {
	buf := make([]byte, fallbackLength)
	for i := 0; i < g.maxAttempts; i++ {
		for j := range buf {
			buf[j] = fallbackChars[g.intn(len(fallbackChars))]
		}
		code := string(buf)
		exists, err := g.store.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check booking code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

func suffix(n int) string {
	return fmt.Sprintf("%04d", n)
}
