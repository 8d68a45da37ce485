package idgen

import "context"

// Generator defines the interface for generating short codes.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// Func adapts a plain function to Generator.
type Func func(ctx context.Context) (string, error)

func (f Func) Generate(ctx context.Context) (string, error) {
	return f(ctx)
}
