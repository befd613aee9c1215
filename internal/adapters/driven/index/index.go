// Package index holds helpers shared by the CorpusIndex backends.
package index

import (
	"fmt"
	"math"
	"slices"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// Backend names accepted by configuration
const (
	BackendMemory   = "memory"
	BackendPGVector = "pgvector"
	BackendChromem  = "chromem"
	BackendQdrant   = "qdrant"
)

// ValidateChunks checks that chunks form one document's chunk set for
// ownerID and that every embedding has the same length. It returns the
// document ID and the embedding dimension.
func ValidateChunks(ownerID string, chunks []*domain.Chunk) (string, int, error) {
	if ownerID == "" {
		return "", 0, domain.Invalid("owner is required")
	}
	if len(chunks) == 0 {
		return "", 0, domain.Invalid("no chunks to insert")
	}
	if slices.Contains(chunks, nil) {
		return "", 0, domain.Invalid("nil chunk in insert")
	}

	documentID := chunks[0].DocumentID
	if documentID == "" {
		return "", 0, domain.Invalid("chunk has no document id")
	}
	dims := len(chunks[0].Embedding)
	if dims == 0 {
		return "", 0, domain.Invalid("chunk %d of %s has no embedding", chunks[0].Sequence, documentID)
	}

	seen := make(map[int]bool, len(chunks))
	for _, c := range chunks {
		switch {
		case c.DocumentID != documentID:
			return "", 0, domain.Invalid("chunks span documents %s and %s", documentID, c.DocumentID)
		case c.OwnerID != ownerID:
			return "", 0, domain.Invalid("chunk of %s belongs to another owner", documentID)
		case len(c.Embedding) != dims:
			return "", 0, domain.Invalid("chunk %d of %s has %d dimensions, want %d", c.Sequence, documentID, len(c.Embedding), dims)
		case seen[c.Sequence]:
			return "", 0, domain.Invalid("duplicate chunk sequence %d in %s", c.Sequence, documentID)
		}
		seen[c.Sequence] = true
	}
	return documentID, dims, nil
}

// ValidateQuery checks the search arguments every backend shares
func ValidateQuery(ownerID string, vector []float32, k int) error {
	switch {
	case ownerID == "":
		return domain.Invalid("owner is required")
	case len(vector) == 0:
		return domain.Invalid("query vector is empty")
	case k <= 0:
		return domain.Invalid("k must be positive, got %d", k)
	}
	return nil
}

// Cosine returns the cosine similarity of a and b, 0 when either is zero
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Failure wraps a backend error as an index failure
func Failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrIndexFailure, op, err)
}
