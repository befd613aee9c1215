package ai

import (
	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.KeywordRanker = KeywordRanker{}

// KeywordRanker scores chunks by term overlap using the same tokenizer as
// the local embedder, so plurals and stopwords are treated alike.
type KeywordRanker struct{}

func (KeywordRanker) Rank(question string, candidates []*domain.ScoredChunk, k int) []*domain.ScoredChunk {
	terms := termSet(tokenize(question))
	if len(terms) == 0 || k <= 0 {
		return nil
	}

	var ranked []*domain.ScoredChunk
	for _, c := range candidates {
		words := termSet(tokenize(c.Chunk.Content))
		hits := 0
		for t := range terms {
			if words[t] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		ranked = append(ranked, &domain.ScoredChunk{
			Chunk: c.Chunk,
			Score: float64(hits) / float64(len(terms)),
		})
	}

	domain.SortScoredChunks(ranked)
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

func termSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
