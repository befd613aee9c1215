package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/ai"
	memoryindex "github.com/custodia-labs/sercha-corpus/internal/adapters/driven/index/memory"
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven/mocks"
)

// exactMatchEmbedding maps every distinct text to its own pseudo-random
// unit vector, so only identical texts reach cosine 1.
func exactMatchEmbedding(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, 32)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func newTestRetriever(docs *mocks.MockDocumentStore, index *mocks.MockCorpusIndex, embedder *mocks.MockEmbedder) *Retriever {
	return NewRetriever(RetrieverConfig{
		Documents: docs,
		Index:     index,
		Embedder:  embedder,
		MaxTopK:   10,
	})
}

func randomText(rng *rand.Rand, words int) string {
	vocabulary := strings.Fields(`annual leave policy employee manager approve request days salary
		bonus travel expense office remote hybrid laptop security password badge holiday
		sick parental training budget review quarter goal team project deadline contract
		vendor invoice payment audit compliance benefit insurance pension relocation visa`)
	out := make([]string, words)
	for i := range out {
		out[i] = vocabulary[rng.Intn(len(vocabulary))]
	}
	return strings.Join(out, " ") + "."
}

func TestRetriever_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 5; trial++ {
		t.Run(fmt.Sprintf("corpus %d", trial), func(t *testing.T) {
			f := newPipelineFixture(t, 0)
			f.embedder.EmbedFn = exactMatchEmbedding
			retriever := newTestRetriever(f.docs, f.index, f.embedder)
			ctx := context.Background()

			var ids []string
			for d := 0; d < 3; d++ {
				doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", randomText(rng, 30+rng.Intn(40)))
				if err := f.pipeline.Process(ctx, doc.ID); err != nil {
					t.Fatalf("ingest: %v", err)
				}
				ids = append(ids, doc.ID)
			}

			for _, id := range ids {
				for _, chunk := range f.index.DocumentChunks("owner-1", id) {
					results, err := retriever.Retrieve(ctx, "owner-1", chunk.Content, 5)
					if err != nil {
						t.Fatalf("retrieve: %v", err)
					}
					if len(results) == 0 {
						t.Fatal("expected results")
					}
					top := results[0]
					if top.Chunk.ID != chunk.ID {
						t.Errorf("chunk %s/%d: top result is %s/%d",
							id, chunk.Sequence, top.Chunk.DocumentID, top.Chunk.Sequence)
					}
					if math.Abs(top.Score-1) > 1e-6 {
						t.Errorf("exact match scored %f", top.Score)
					}
					for _, r := range results[1:] {
						if r.Score > top.Score {
							t.Errorf("result scored %f above the exact match", r.Score)
						}
					}
				}
			}
		})
	}
}

func TestRetriever_EmptyCorpus(t *testing.T) {
	f := newPipelineFixture(t, 0)
	retriever := newTestRetriever(f.docs, f.index, f.embedder)
	ctx := context.Background()

	if _, err := retriever.Retrieve(ctx, "owner-1", "anything", 5); err != domain.ErrEmptyCorpus {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}

	// Documents that are not completed do not count
	f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	f.addDocument(t, domain.DocumentStatusFailed, "text/plain", pipelineText)
	if _, err := retriever.Retrieve(ctx, "owner-1", "anything", 5); err != domain.ErrEmptyCorpus {
		t.Errorf("expected ErrEmptyCorpus with no completed document, got %v", err)
	}
	if f.embedder.Calls() != 0 {
		t.Errorf("expected no embedding for an empty corpus, got %d calls", f.embedder.Calls())
	}
}

func TestRetriever_Validation(t *testing.T) {
	f := newPipelineFixture(t, 0)
	retriever := newTestRetriever(f.docs, f.index, f.embedder)

	tests := []struct {
		name     string
		owner    string
		question string
		k        int
	}{
		{name: "blank owner", owner: " ", question: "q", k: 5},
		{name: "blank question", owner: "owner-1", question: " \n", k: 5},
		{name: "zero k", owner: "owner-1", question: "q", k: 0},
		{name: "negative k", owner: "owner-1", question: "q", k: -1},
		{name: "k above max", owner: "owner-1", question: "q", k: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := retriever.Retrieve(context.Background(), tt.owner, tt.question, tt.k)
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestRetriever_OwnerIsolation(t *testing.T) {
	f := newPipelineFixture(t, 0)
	retriever := newTestRetriever(f.docs, f.index, f.embedder)
	ctx := context.Background()

	docA := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, docA.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	docB := domain.NewDocument("owner-2", "other.txt", "text/plain", 10)
	if err := f.docs.Create(ctx, docB, []byte("Completely unrelated words about gardening tomatoes.")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.pipeline.Process(ctx, docB.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := retriever.Retrieve(ctx, "owner-2", pipelineText, 10)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for _, r := range results {
		if r.Chunk.OwnerID != "owner-2" {
			t.Fatalf("owner-2 received a chunk of %s", r.Chunk.OwnerID)
		}
	}
}

func TestRetriever_FailuresAreNotRetried(t *testing.T) {
	f := newPipelineFixture(t, 0)
	retriever := newTestRetriever(f.docs, f.index, f.embedder)
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	before := f.embedder.Calls()

	f.embedder.FailNext(1)
	if _, err := retriever.Retrieve(ctx, "owner-1", "alpha", 5); !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if calls := f.embedder.Calls() - before; calls != 1 {
		t.Errorf("expected a single embedding attempt, got %d", calls)
	}

	f.index.SearchErr = fmt.Errorf("%w: connection reset", domain.ErrIndexFailure)
	if _, err := retriever.Retrieve(ctx, "owner-1", "alpha", 5); !errors.Is(err, domain.ErrIndexFailure) {
		t.Errorf("expected ErrIndexFailure, got %v", err)
	}
}

func TestRetriever_RespectsK(t *testing.T) {
	f := newPipelineFixture(t, 0)
	retriever := newTestRetriever(f.docs, f.index, f.embedder)
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	results, err := retriever.Retrieve(ctx, "owner-1", "alpha beta", 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestRetriever_IndexLostAfterRestart(t *testing.T) {
	f := newPipelineFixture(t, 0)
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Documents persisted, but the process restarted with an empty index
	retriever := NewRetriever(RetrieverConfig{
		Documents: f.docs,
		Index:     memoryindex.New(),
		Embedder:  f.embedder,
		MaxTopK:   10,
	})
	before := f.embedder.Calls()

	_, err := retriever.Retrieve(ctx, "owner-1", "alpha beta", 5)
	if !errors.Is(err, domain.ErrIndexFailure) {
		t.Fatalf("expected ErrIndexFailure, got %v", err)
	}
	if domain.CodeOf(err) != domain.CodeIndexFailure {
		t.Errorf("expected code %s, got %s", domain.CodeIndexFailure, domain.CodeOf(err))
	}
	if f.embedder.Calls() != before {
		t.Error("expected no embedding when the index is empty")
	}
}

func TestRetriever_KeywordFallbackForZeroVector(t *testing.T) {
	const question = "kappa lambda"

	f := newPipelineFixture(t, 0)
	f.embedder.EmbedFn = func(ctx context.Context, text string) ([]float32, error) {
		if text == question {
			return make([]float32, 32), nil
		}
		return exactMatchEmbedding(ctx, text)
	}
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	retriever := NewRetriever(RetrieverConfig{
		Documents: f.docs,
		Index:     f.index,
		Embedder:  f.embedder,
		Keywords:  ai.KeywordRanker{},
		MaxTopK:   10,
	})

	results, err := retriever.Retrieve(ctx, "owner-1", question, 3)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected keyword matches")
	}
	for _, r := range results {
		content := strings.ToLower(r.Chunk.Content)
		if !strings.Contains(content, "kappa") && !strings.Contains(content, "lambda") {
			t.Errorf("chunk %d shares no term with the question: %q", r.Chunk.Sequence, r.Chunk.Content)
		}
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not ordered by overlap: %f after %f", results[i].Score, results[i-1].Score)
		}
	}
}

func TestRetriever_ZeroVectorWithoutKeywordMatch(t *testing.T) {
	f := newPipelineFixture(t, 0)
	f.embedder.EmbedFn = func(ctx context.Context, text string) ([]float32, error) {
		return make([]float32, 8), nil
	}
	ctx := context.Background()

	doc := f.addDocument(t, domain.DocumentStatusPending, "text/plain", pipelineText)
	if err := f.pipeline.Process(ctx, doc.ID); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	retriever := NewRetriever(RetrieverConfig{
		Documents: f.docs,
		Index:     f.index,
		Embedder:  f.embedder,
		Keywords:  ai.KeywordRanker{},
		MaxTopK:   10,
	})

	results, err := retriever.Retrieve(ctx, "owner-1", "gardening tomatoes", 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no chunks for unmatched terms, got %d", len(results))
	}
}
