package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashModelName identifies vectors produced by HashProvider.
const HashModelName = "hash-bow"

// HashProvider embeds text offline by hashing lowercased word tokens and
// character trigrams into a fixed number of buckets. Vectors only capture
// lexical overlap, but they are deterministic and need no model download.
type HashProvider struct {
	dimensions int
}

// NewHashProvider creates a HashProvider. Non-positive dims select DefaultDimensions.
func NewHashProvider(dims int) *HashProvider {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &HashProvider{dimensions: dims}
}

// Embed returns a unit-length vector for text. Empty text maps to a fixed
// non-zero vector so cosine similarity stays defined.
func (p *HashProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return Embedding{}, err
	}

	vec := make([]float32, p.dimensions)
	tokens := tokenize(text)
	if len(tokens) == 0 {
		vec[0] = 1
		return Embedding{Vector: vec}, nil
	}

	for _, tok := range tokens {
		p.add(vec, "w:"+tok, 1)
		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			p.add(vec, "g:"+string(runes[i:i+3]), 0.5)
		}
	}

	emb := Embedding{Vector: vec}
	if emb.Norm() == 0 {
		vec[0] = 1
		return emb, nil
	}
	return emb.Normalized(), nil
}

// add hashes feature into a bucket, using a second hash bit for the sign so
// collisions tend to cancel rather than accumulate.
func (p *HashProvider) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(p.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// ModelName returns the name of the embedding model.
func (p *HashProvider) ModelName() string {
	return HashModelName
}

// Dimensions returns the vector dimensions.
func (p *HashProvider) Dimensions() int {
	return p.dimensions
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
