package domain

import "testing"

func TestSimilarityToScore(t *testing.T) {
	tests := []struct {
		cosine float64
		want   float64
	}{
		{1, 1},
		{0, 0.5},
		{-1, 0},
		{0.5, 0.75},
		{1.0000001, 1},
		{-1.5, 0},
	}

	for _, tt := range tests {
		if got := SimilarityToScore(tt.cosine); got != tt.want {
			t.Errorf("SimilarityToScore(%v) = %v, want %v", tt.cosine, got, tt.want)
		}
	}
}

func TestSimilarityToScore_Monotonic(t *testing.T) {
	prev := SimilarityToScore(-1)
	for c := -1.0; c <= 1.0; c += 0.01 {
		got := SimilarityToScore(c)
		if got < prev {
			t.Fatalf("score decreased at cosine %v: %v < %v", c, got, prev)
		}
		prev = got
	}
}

func TestSourcesFromChunks_TieBreakBySequence(t *testing.T) {
	chunks := []*ScoredChunk{
		{Chunk: &Chunk{DocumentID: "doc-a", DocumentName: "A", Sequence: 3}, Score: 0.9},
		{Chunk: &Chunk{DocumentID: "doc-a", DocumentName: "A", Sequence: 1}, Score: 0.9},
		{Chunk: &Chunk{DocumentID: "doc-a", DocumentName: "A", Sequence: 5}, Score: 0.4},
	}

	sources := SourcesFromChunks(chunks)

	want := []int{1, 3, 5}
	if len(sources) != len(want) {
		t.Fatalf("expected %d sources, got %d", len(want), len(sources))
	}
	for i, idx := range want {
		if sources[i].ChunkIndex != idx {
			t.Errorf("position %d: expected chunk %d, got %d", i, idx, sources[i].ChunkIndex)
		}
	}
}

func TestSortSources_TieBreakByDocumentID(t *testing.T) {
	sources := []Source{
		{DocumentID: "doc-c", ChunkIndex: 0, RelevanceScore: 0.7},
		{DocumentID: "doc-a", ChunkIndex: 0, RelevanceScore: 0.7},
		{DocumentID: "doc-b", ChunkIndex: 2, RelevanceScore: 0.8},
	}

	SortSources(sources)

	want := []string{"doc-b", "doc-a", "doc-c"}
	for i, id := range want {
		if sources[i].DocumentID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, sources[i].DocumentID)
		}
	}
}

func TestSortScoredChunks(t *testing.T) {
	chunks := []*ScoredChunk{
		{Chunk: &Chunk{DocumentID: "b", Sequence: 0}, Score: 0.5},
		{Chunk: &Chunk{DocumentID: "a", Sequence: 2}, Score: 0.6},
		{Chunk: &Chunk{DocumentID: "a", Sequence: 0}, Score: 0.5},
	}

	SortScoredChunks(chunks)

	if chunks[0].Chunk.Sequence != 2 {
		t.Errorf("expected highest score first, got %+v", chunks[0].Chunk)
	}
	if chunks[1].Chunk.DocumentID != "a" || chunks[2].Chunk.DocumentID != "b" {
		t.Errorf("expected document id tie-break, got %s then %s",
			chunks[1].Chunk.DocumentID, chunks[2].Chunk.DocumentID)
	}
}
