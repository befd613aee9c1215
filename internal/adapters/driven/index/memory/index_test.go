package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

func makeChunks(owner, doc string, vectors ...[]float32) []*domain.Chunk {
	chunks := make([]*domain.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = &domain.Chunk{
			ID:           fmt.Sprintf("%s-%d", doc, i),
			DocumentID:   doc,
			DocumentName: doc + ".txt",
			OwnerID:      owner,
			Sequence:     i,
			Content:      fmt.Sprintf("chunk %d of %s", i, doc),
			Embedding:    v,
		}
	}
	return chunks
}

func TestIndex_SearchOrdersByScore(t *testing.T) {
	idx := New()
	ctx := context.Background()

	err := idx.Insert(ctx, "alice", makeChunks("alice", "doc-1",
		[]float32{1, 0, 0},
		[]float32{0, 1, 0},
		[]float32{0.9, 0.1, 0},
	))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := idx.Search(ctx, "alice", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.Sequence != 0 || results[1].Chunk.Sequence != 2 {
		t.Errorf("unexpected order: %d, %d", results[0].Chunk.Sequence, results[1].Chunk.Sequence)
	}
	if results[0].Score != 1 {
		t.Errorf("identical vector should score 1, got %f", results[0].Score)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %f out of [0,1]", r.Score)
		}
		if r.Chunk.Embedding != nil {
			t.Error("search results should not carry embeddings")
		}
	}
}

func TestIndex_OppositeVectorScoresZero(t *testing.T) {
	idx := New()
	ctx := context.Background()
	_ = idx.Insert(ctx, "alice", makeChunks("alice", "doc-1", []float32{-1, 0}))

	results, err := idx.Search(ctx, "alice", []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Score != 0 {
		t.Errorf("opposite vector should score 0, got %f", results[0].Score)
	}
}

func TestIndex_OwnerIsolation(t *testing.T) {
	idx := New()
	ctx := context.Background()

	_ = idx.Insert(ctx, "alice", makeChunks("alice", "a-doc", []float32{1, 0}))
	_ = idx.Insert(ctx, "bob", makeChunks("bob", "b-doc", []float32{1, 0}, []float32{0, 1}))

	results, err := idx.Search(ctx, "alice", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Chunk.OwnerID != "alice" {
			t.Fatalf("alice saw chunk of %s", r.Chunk.OwnerID)
		}
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result for alice, got %d", len(results))
	}

	empty, err := idx.Search(ctx, "carol", []float32{1, 0}, 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown owner: got %d results, err %v", len(empty), err)
	}
}

func TestIndex_InsertRejectsForeignChunks(t *testing.T) {
	idx := New()
	ctx := context.Background()

	chunks := makeChunks("bob", "doc-1", []float32{1, 0})
	if err := idx.Insert(ctx, "alice", chunks); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	mixed := append(makeChunks("alice", "doc-1", []float32{1, 0}), makeChunks("alice", "doc-2", []float32{0, 1})...)
	if err := idx.Insert(ctx, "alice", mixed); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for mixed documents, got %v", err)
	}
}

func TestIndex_ReplaceAndDelete(t *testing.T) {
	idx := New()
	ctx := context.Background()

	_ = idx.Insert(ctx, "alice", makeChunks("alice", "doc-1", []float32{1, 0}, []float32{0, 1}, []float32{1, 1}))
	_ = idx.Insert(ctx, "alice", makeChunks("alice", "doc-2", []float32{1, 0}))

	if n, _ := idx.Count(ctx, "alice"); n != 4 {
		t.Fatalf("Count = %d, want 4", n)
	}

	// Re-inserting doc-1 replaces its chunk set.
	_ = idx.Insert(ctx, "alice", makeChunks("alice", "doc-1", []float32{0, 1}))
	if n, _ := idx.Count(ctx, "alice"); n != 2 {
		t.Fatalf("Count after replace = %d, want 2", n)
	}

	if err := idx.DeleteDocument(ctx, "alice", "doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if n, _ := idx.Count(ctx, "alice"); n != 1 {
		t.Fatalf("Count after delete = %d, want 1", n)
	}
	if err := idx.DeleteDocument(ctx, "alice", "missing"); err != nil {
		t.Errorf("deleting a missing document should succeed, got %v", err)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	idx := New()
	ctx := context.Background()
	_ = idx.Insert(ctx, "alice", makeChunks("alice", "doc-1", []float32{1, 0}))

	if err := idx.Insert(ctx, "alice", makeChunks("alice", "doc-2", []float32{1, 0, 0})); !errors.Is(err, domain.ErrIndexFailure) {
		t.Errorf("Insert: expected ErrIndexFailure, got %v", err)
	}
	if _, err := idx.Search(ctx, "alice", []float32{1, 0, 0}, 1); !errors.Is(err, domain.ErrIndexFailure) {
		t.Errorf("Search: expected ErrIndexFailure, got %v", err)
	}
	if _, err := idx.Search(ctx, "alice", []float32{1, 0}, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Search k=0: expected ErrInvalidInput, got %v", err)
	}
}

// TestIndex_InsertIsAtomic runs writers (some of which submit an invalid
// chunk set) against readers and checks that every document a reader sees
// is complete.
func TestIndex_InsertIsAtomic(t *testing.T) {
	const (
		docs           = 60
		chunksPerDoc   = 8
		readers        = 4
		readsPerReader = 300
	)
	idx := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for d := 0; d < docs; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			vectors := make([][]float32, chunksPerDoc)
			for i := range vectors {
				vectors[i] = []float32{1, float32(i + 1)}
			}
			chunks := makeChunks("alice", fmt.Sprintf("doc-%d", d), vectors...)
			if d%3 == 0 {
				// injected fault: the last chunk has the wrong dimension
				chunks[chunksPerDoc-1].Embedding = []float32{1}
			}
			_ = idx.Insert(ctx, "alice", chunks)
		}(d)
	}

	errs := make(chan error, readers)
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < readsPerReader; i++ {
				results, err := idx.Search(ctx, "alice", []float32{1, 1}, docs*chunksPerDoc)
				if err != nil {
					errs <- err
					return
				}
				perDoc := map[string]int{}
				for _, r := range results {
					perDoc[r.Chunk.DocumentID]++
				}
				for doc, n := range perDoc {
					if n != chunksPerDoc {
						errs <- fmt.Errorf("saw %d of %d chunks of %s", n, chunksPerDoc, doc)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	var faulty int
	for d := 0; d < docs; d += 3 {
		faulty++
	}
	if n, _ := idx.Count(ctx, "alice"); n != (docs-faulty)*chunksPerDoc {
		t.Errorf("Count = %d, want %d", n, (docs-faulty)*chunksPerDoc)
	}
}

func TestIndex_OwnersWriteIndependently(t *testing.T) {
	idx := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for o := 0; o < 20; o++ {
		wg.Add(1)
		go func(o int) {
			defer wg.Done()
			owner := fmt.Sprintf("owner-%d", o)
			for d := 0; d < 10; d++ {
				_ = idx.Insert(ctx, owner, makeChunks(owner, fmt.Sprintf("doc-%d", d), []float32{1, 0}, []float32{0, 1}))
			}
		}(o)
	}
	wg.Wait()

	for o := 0; o < 20; o++ {
		if n, _ := idx.Count(ctx, fmt.Sprintf("owner-%d", o)); n != 20 {
			t.Errorf("owner-%d: Count = %d, want 20", o, n)
		}
	}
}
