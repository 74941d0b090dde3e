package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

const (
	ProviderOllama = "ollama"
	ProviderHash   = "hash"
)

// Config selects an embedding provider.
type Config struct {
	Provider          string
	Model             string
	Dimensions        int
	OllamaURL         string
	RequestsPerSecond float64
	// Fallback switches to the hash provider when Ollama is unreachable
	// instead of failing the first Embed call.
	Fallback bool
}

// New builds the provider named by cfg.Provider.
func New(cfg Config, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case ProviderHash:
		return NewHashProvider(cfg.Dimensions), nil
	case "", ProviderOllama:
		opts := []OllamaOption{WithDimensions(cfg.Dimensions), WithRateLimit(cfg.RequestsPerSecond)}
		if cfg.OllamaURL != "" {
			opts = append(opts, WithBaseURL(cfg.OllamaURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		ollama := NewOllamaProvider(opts...)
		if !cfg.Fallback {
			return ollama, nil
		}
		return &fallbackProvider{
			primary:  ollama,
			fallback: NewHashProvider(ollama.Dimensions()),
			logger:   logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want %s or %s)", cfg.Provider, ProviderOllama, ProviderHash)
	}
}

// fallbackProvider checks Ollama once, on first use, and serves every
// later call from whichever provider that check selected.
type fallbackProvider struct {
	primary  *OllamaProvider
	fallback Provider
	logger   *zap.Logger

	once   sync.Once
	active Provider
}

// Resolve returns the provider that serves calls, probing on first use.
func (p *fallbackProvider) Resolve(ctx context.Context) Provider {
	p.once.Do(func() {
		if err := p.primary.IsAvailable(ctx); err != nil {
			p.logger.Warn("ollama unavailable, using offline hash embeddings",
				zap.String("url", p.primary.baseURL),
				zap.Error(err),
			)
			p.active = p.fallback
			return
		}
		ok, err := p.primary.HasModel(ctx)
		if err != nil || !ok {
			p.logger.Warn("embedding model not pulled, using offline hash embeddings",
				zap.String("model", p.primary.model),
				zap.String("hint", "ollama pull "+p.primary.model),
				zap.Error(err),
			)
			p.active = p.fallback
			return
		}
		p.logger.Debug("using ollama embeddings", zap.String("model", p.primary.model))
		p.active = p.primary
	})
	return p.active
}

func (p *fallbackProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	return p.Resolve(ctx).Embed(ctx, text)
}

// EmbedBatch batches when the active provider can, one text at a time
// otherwise.
func (p *fallbackProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	active := p.Resolve(ctx)
	if bp, ok := active.(BatchProvider); ok {
		return bp.EmbedBatch(ctx, texts)
	}
	out := make([]Embedding, len(texts))
	for i, text := range texts {
		emb, err := active.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// ModelName reports the primary model until Ollama has been checked.
func (p *fallbackProvider) ModelName() string {
	if p.active != nil {
		return p.active.ModelName()
	}
	return p.primary.ModelName()
}

func (p *fallbackProvider) Dimensions() int {
	return p.primary.Dimensions()
}
