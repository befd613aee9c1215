package ai

import (
	"testing"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

func candidate(id, content string, seq int) *domain.ScoredChunk {
	return &domain.ScoredChunk{
		Chunk: &domain.Chunk{ID: id, DocumentID: "doc-1", Sequence: seq, Content: content},
		Score: 0.5,
	}
}

func TestKeywordRanker_OrdersByOverlap(t *testing.T) {
	candidates := []*domain.ScoredChunk{
		candidate("garden", "Tomatoes need full sun.", 0),
		candidate("partial", "Vacation requests go through HR.", 1),
		candidate("full", "New employees get 15 vacation days.", 2),
	}

	ranked := KeywordRanker{}.Rank("vacation days employees", candidates, 5)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 matching chunks, got %d", len(ranked))
	}
	if ranked[0].Chunk.ID != "full" || ranked[1].Chunk.ID != "partial" {
		t.Errorf("unexpected order: %s, %s", ranked[0].Chunk.ID, ranked[1].Chunk.ID)
	}
	if ranked[0].Score != 1 {
		t.Errorf("full overlap scored %f, want 1", ranked[0].Score)
	}
	if ranked[1].Score <= 0 || ranked[1].Score >= 1 {
		t.Errorf("partial overlap scored %f, want within (0,1)", ranked[1].Score)
	}
}

func TestKeywordRanker_RespectsK(t *testing.T) {
	candidates := []*domain.ScoredChunk{
		candidate("a", "vacation", 0),
		candidate("b", "vacation", 1),
		candidate("c", "vacation", 2),
	}
	ranked := KeywordRanker{}.Rank("vacation", candidates, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(ranked))
	}
	if ranked[0].Chunk.ID != "a" || ranked[1].Chunk.ID != "b" {
		t.Errorf("ties should keep sequence order, got %s, %s", ranked[0].Chunk.ID, ranked[1].Chunk.ID)
	}
}

func TestKeywordRanker_NoTerms(t *testing.T) {
	candidates := []*domain.ScoredChunk{candidate("a", "what is it", 0)}
	if ranked := (KeywordRanker{}).Rank("what is it?", candidates, 5); len(ranked) != 0 {
		t.Errorf("a question of stopwords matched %d chunks", len(ranked))
	}
}
