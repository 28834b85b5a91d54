package slot

import (
	"context"

	"github.com/jordanhubbard/llmdash/internal/circuitbreaker"
)

// Guarded routes every call on s through b so an unreachable backend fails
// fast instead of stalling each request.
func Guarded(s Slot, b *circuitbreaker.Breaker) Slot {
	return &guarded{next: s, b: b}
}

type guarded struct {
	next Slot
	b    *circuitbreaker.Breaker
}

func (g *guarded) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := g.b.Do(func() error {
		var err error
		data, err = g.next.Load(ctx)
		return err
	})
	return data, err
}

func (g *guarded) Save(ctx context.Context, data []byte) error {
	return g.b.Do(func() error { return g.next.Save(ctx, data) })
}

func (g *guarded) Remove(ctx context.Context) error {
	return g.b.Do(func() error { return g.next.Remove(ctx) })
}
