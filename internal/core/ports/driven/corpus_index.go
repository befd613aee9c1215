package driven

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// CorpusIndex is the per-owner store of chunks and their vectors.
//
// Implementations must guarantee:
//   - Insert is atomic per document: a concurrent Search sees either every
//     chunk of the document or none of them. Inserting a document that is
//     already indexed replaces its chunk set atomically.
//   - Search never returns chunks of another owner.
//   - Scores are (cosine+1)/2 clamped to [0,1].
//   - Writes for different owners never wait on each other.
type CorpusIndex interface {
	// Insert stores the chunks of one document. All chunks must carry the
	// same DocumentID and the given owner.
	Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error

	// Search returns up to k of the owner's chunks most similar to vector,
	// ordered by score desc, sequence asc, document ID asc.
	Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error)

	// DeleteDocument removes all chunks of a document.
	// Backends that cannot delete return ErrNotSupported.
	DeleteDocument(ctx context.Context, ownerID, documentID string) error

	// Count returns the number of searchable chunks for the owner
	Count(ctx context.Context, ownerID string) (int, error)

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
