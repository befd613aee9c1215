package pgvector

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testIndex connects to SERCHA_TEST_DATABASE_URL, which must have the
// vector extension available, or skips the test.
func testIndex(t *testing.T) *Index {
	t.Helper()
	url := os.Getenv("SERCHA_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SERCHA_TEST_DATABASE_URL not set")
	}
	x, err := New(context.Background(), Config{URL: url, Table: "corpus_chunks_test", Dimensions: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = x.Close() })
	return x
}

func chunk(owner, doc string, seq int, vec ...float32) *domain.Chunk {
	return &domain.Chunk{
		ID:         domain.GenerateID(),
		DocumentID: doc,
		OwnerID:    owner,
		Sequence:   seq,
		Content:    "chunk",
		Embedding:  vec,
		CreatedAt:  time.Now(),
	}
}

func TestIndex_InsertSearchDelete(t *testing.T) {
	x := testIndex(t)
	ctx := context.Background()
	owner := "owner-" + domain.GenerateID()
	doc := domain.GenerateID()
	t.Cleanup(func() { _ = x.DeleteDocument(ctx, owner, doc) })

	require.NoError(t, x.Insert(ctx, owner, []*domain.Chunk{chunk(owner, doc, 0, 1, 0), chunk(owner, doc, 1, 0, 1)}))

	hits, err := x.Search(ctx, owner, []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Chunk.Sequence)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-6)

	hits, err = x.Search(ctx, "other-"+owner, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, x.Insert(ctx, owner, []*domain.Chunk{chunk(owner, doc, 0, 1, 1)}))
	n, err := x.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, x.DeleteDocument(ctx, owner, doc))
	n, err = x.Count(ctx, owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}
