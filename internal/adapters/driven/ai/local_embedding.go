package ai

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements Embedder
var _ driven.Embedder = (*LocalEmbedding)(nil)

// DefaultLocalDimensions is the vector size of the local embedder
const DefaultLocalDimensions = 512

// LocalEmbedding is an offline lexical embedder. Each token is hashed into
// one of a fixed number of buckets with a hashed sign, weighted by
// log(1+tf), and the vector is L2-normalised. Texts that share words end up
// with a high cosine similarity.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a local embedder. dimensions <= 0 selects
// DefaultLocalDimensions.
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

// Embed generates the embedding of a single text
func (e *LocalEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

// EmbedBatch generates embeddings for texts, in input order
func (e *LocalEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result[i] = e.vector(text)
	}
	return result, nil
}

func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LocalEmbedding) Model() string {
	return "local-hashing-tf"
}

func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

func (e *LocalEmbedding) Close() error {
	return nil
}

func (e *LocalEmbedding) vector(text string) []float32 {
	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		counts[tok]++
	}

	acc := make([]float64, e.dimensions)
	for tok, tf := range counts {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()

		bucket := int(sum % uint64(e.dimensions))
		weight := math.Log1p(float64(tf))
		if sum>>63 == 1 {
			weight = -weight
		}
		acc[bucket] += weight
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}

	vec := make([]float32, e.dimensions)
	if norm == 0 {
		// Vector stores reject zero vectors; texts without content words
		// share a fixed unit vector instead.
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}
