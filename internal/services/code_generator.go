package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// CodeGenerator produces n human-readable unit codes for a category.
// Uniqueness is checked by the caller; a generator only proposes.
type CodeGenerator interface {
	Codes(ctx context.Context, category string, n int) ([]string, error)
}

// SequentialCodeGenerator yields Prefix+Next, Prefix+Next+1, ... and
// remembers where it stopped.
type SequentialCodeGenerator struct {
	Prefix string

	mu   sync.Mutex
	next int
}

func NewSequentialCodeGenerator(prefix string, start int) *SequentialCodeGenerator {
	return &SequentialCodeGenerator{Prefix: prefix, next: start}
}

func (g *SequentialCodeGenerator) Codes(_ context.Context, _ string, n int) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	codes := make([]string, n)
	for i := range codes {
		codes[i] = g.Prefix + strconv.Itoa(g.next)
		g.next++
	}
	return codes, nil
}

// StaticCodeGenerator returns caller-supplied codes.
type StaticCodeGenerator []string

func (g StaticCodeGenerator) Codes(_ context.Context, _ string, n int) ([]string, error) {
	if len(g) != n {
		return nil, fmt.Errorf("%d codes supplied for %d units", len(g), n)
	}
	return append([]string(nil), g...), nil
}

// RandomCodeGenerator derives short codes from random UUIDs.
type RandomCodeGenerator struct {
	Prefix string
}

func (g RandomCodeGenerator) Codes(_ context.Context, _ string, n int) ([]string, error) {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = g.Prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	}
	return codes, nil
}
