// Package memory is an in-process CorpusIndex.
//
// Each owner has its own shard. A shard publishes an immutable snapshot
// through an atomic pointer; writers build the next snapshot under the
// shard's mutex and swap it in, so readers never lock and never observe a
// half-inserted document.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.CorpusIndex = (*Index)(nil)

// Index implements driven.CorpusIndex in memory
type Index struct {
	mu     sync.RWMutex
	owners map[string]*shard
}

type shard struct {
	writeMu sync.Mutex
	current atomic.Pointer[snapshot]
}

// snapshot is never mutated after it is published
type snapshot struct {
	documents map[string][]*domain.Chunk
	chunks    int
	dims      int
}

var emptySnapshot = &snapshot{documents: map[string][]*domain.Chunk{}}

// New creates an empty index
func New() *Index {
	return &Index{owners: make(map[string]*shard)}
}

func (x *Index) shardFor(ownerID string, create bool) *shard {
	x.mu.RLock()
	s, ok := x.owners[ownerID]
	x.mu.RUnlock()
	if ok || !create {
		return s
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if s, ok = x.owners[ownerID]; ok {
		return s
	}
	s = &shard{}
	s.current.Store(emptySnapshot)
	x.owners[ownerID] = s
	return s
}

// Insert publishes the document's chunk set in one pointer swap,
// replacing any earlier set for the same document
func (x *Index) Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error {
	documentID, dims, err := index.ValidateChunks(ownerID, chunks)
	if err != nil {
		return err
	}

	copied := make([]*domain.Chunk, len(chunks))
	for i, c := range chunks {
		cc := *c
		cc.Embedding = append([]float32(nil), c.Embedding...)
		copied[i] = &cc
	}
	sort.Slice(copied, func(i, j int) bool { return copied[i].Sequence < copied[j].Sequence })

	s := x.shardFor(ownerID, true)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	old := s.current.Load()
	if old.dims != 0 && old.dims != dims {
		return index.Failure("insert", errDims(dims, old.dims))
	}

	next := &snapshot{
		documents: make(map[string][]*domain.Chunk, len(old.documents)+1),
		chunks:    old.chunks - len(old.documents[documentID]) + len(copied),
		dims:      dims,
	}
	for id, cs := range old.documents {
		next.documents[id] = cs
	}
	next.documents[documentID] = copied

	s.current.Store(next)
	return nil
}

// Search scans the owner's snapshot
func (x *Index) Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	if err := index.ValidateQuery(ownerID, vector, k); err != nil {
		return nil, err
	}

	s := x.shardFor(ownerID, false)
	if s == nil {
		return []*domain.ScoredChunk{}, nil
	}
	snap := s.current.Load()
	if snap.chunks == 0 {
		return []*domain.ScoredChunk{}, nil
	}
	if snap.dims != len(vector) {
		return nil, index.Failure("search", errDims(len(vector), snap.dims))
	}

	results := make([]*domain.ScoredChunk, 0, snap.chunks)
	for _, chunks := range snap.documents {
		for _, c := range chunks {
			hit := *c
			hit.Embedding = nil
			results = append(results, &domain.ScoredChunk{
				Chunk: &hit,
				Score: domain.SimilarityToScore(index.Cosine(vector, c.Embedding)),
			})
		}
	}

	domain.SortScoredChunks(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DeleteDocument drops a document's chunks with the same swap as Insert
func (x *Index) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	s := x.shardFor(ownerID, false)
	if s == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	old := s.current.Load()
	removed, ok := old.documents[documentID]
	if !ok {
		return nil
	}

	next := &snapshot{
		documents: make(map[string][]*domain.Chunk, len(old.documents)),
		chunks:    old.chunks - len(removed),
		dims:      old.dims,
	}
	for id, cs := range old.documents {
		if id != documentID {
			next.documents[id] = cs
		}
	}
	if next.chunks == 0 {
		next.dims = 0
	}
	s.current.Store(next)
	return nil
}

// Count returns the owner's searchable chunk count
func (x *Index) Count(ctx context.Context, ownerID string) (int, error) {
	s := x.shardFor(ownerID, false)
	if s == nil {
		return 0, nil
	}
	return s.current.Load().chunks, nil
}

// Ping always succeeds
func (x *Index) Ping(ctx context.Context) error { return nil }

// Close drops every shard
func (x *Index) Close() error {
	x.mu.Lock()
	x.owners = make(map[string]*shard)
	x.mu.Unlock()
	return nil
}

func errDims(got, want int) error {
	return fmt.Errorf("vector has %d dimensions, index holds %d", got, want)
}
