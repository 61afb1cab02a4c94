package cipher

import (
	"context"
	"math/rand/v2"
	"sync"
)

// SystemSource draws from the runtime's concurrency-safe generator.
type SystemSource struct{}

func (SystemSource) IntN(n int) int { return rand.IntN(n) }

// NewSeededSource returns a deterministic source. It is not safe for
// concurrent use; wrap it with NewLockedSource when sharing it.
func NewSeededSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

type lockedSource struct {
	mu  sync.Mutex
	src Source
}

// NewLockedSource serialises access to src.
func NewLockedSource(src Source) Source {
	return &lockedSource{src: src}
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

type sourceKey struct{}

// WithSource attaches src to ctx. Encrypt operations without a "seed"
// parameter draw generated keys from it.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, sourceKey{}, src)
}

// SourceFromContext returns the source attached by WithSource, or
// SystemSource when there is none.
func SourceFromContext(ctx context.Context) Source {
	if src, ok := ctx.Value(sourceKey{}).(Source); ok && src != nil {
		return src
	}
	return SystemSource{}
}
