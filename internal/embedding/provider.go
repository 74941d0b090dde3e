package embedding

import (
	"context"
	"fmt"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// BatchProvider is implemented by providers that embed many texts per request.
type BatchProvider interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error)
}

// Resolver is implemented by providers that choose their backing provider
// lazily.
type Resolver interface {
	Resolve(ctx context.Context) Provider
}

// ActiveModel returns the model that will embed the next text, resolving
// lazy providers first.
func ActiveModel(ctx context.Context, p Provider) string {
	if r, ok := p.(Resolver); ok {
		return r.Resolve(ctx).ModelName()
	}
	return p.ModelName()
}

// EmbedAll embeds texts in order, stopping at the first failure. Batch
// providers are sent the whole slice.
func EmbedAll(ctx context.Context, p Provider, texts []string) ([][]float32, error) {
	if bp, ok := p.(BatchProvider); ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embs, err := bp.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding %d texts: %w", len(texts), err)
		}
		vectors := make([][]float32, len(embs))
		for i, e := range embs {
			vectors[i] = e.Vector
		}
		return vectors, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = emb.Vector
	}
	return vectors, nil
}

// Func adapts a Provider to the func(ctx, text) ([]float32, error) shape
// used by vector stores.
func Func(p Provider) func(ctx context.Context, text string) ([]float32, error) {
	return func(ctx context.Context, text string) ([]float32, error) {
		emb, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return emb.Vector, nil
	}
}
