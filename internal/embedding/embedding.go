// Package embedding turns document and query text into vectors.
package embedding

import "math"

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // e.g. 384 dimensions for all-minilm
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Norm returns the Euclidean length of the vector.
func (e Embedding) Norm() float64 {
	var sum float64
	for _, v := range e.Vector {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

// Normalized returns a unit-length copy of the embedding.
// A zero vector is returned unchanged.
func (e Embedding) Normalized() Embedding {
	norm := e.Norm()
	if norm == 0 {
		return e
	}
	out := make([]float32, len(e.Vector))
	for i, v := range e.Vector {
		out[i] = float32(float64(v) / norm)
	}
	return Embedding{Vector: out}
}
