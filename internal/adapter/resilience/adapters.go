package resilience

import "context"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// GuardedEmbedder runs every Embed call through a Guard.
type GuardedEmbedder struct {
	next  Embedder
	guard *Guard
}

func NewEmbedder(next Embedder, guard *Guard) *GuardedEmbedder {
	return &GuardedEmbedder{next: next, guard: guard}
}

func (e *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return Do(ctx, e.guard, func(ctx context.Context) ([]float32, error) {
		return e.next.Embed(ctx, text)
	})
}

// GuardedCompleter runs every Complete call through a Guard.
type GuardedCompleter struct {
	next  Completer
	guard *Guard
}

func NewCompleter(next Completer, guard *Guard) *GuardedCompleter {
	return &GuardedCompleter{next: next, guard: guard}
}

func (c *GuardedCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return Do(ctx, c.guard, func(ctx context.Context) (string, error) {
		return c.next.Complete(ctx, system, user)
	})
}
