package driven

import "github.com/custodia-labs/sercha-corpus/internal/core/domain"

// KeywordRanker orders chunks by the words they share with a question.
// Retrieval falls back to it when the question embeds to a zero vector,
// which carries no direction to rank by.
type KeywordRanker interface {
	// Rank returns up to k candidates sharing at least one term with the
	// question, scored by the fraction of question terms they contain
	Rank(question string, candidates []*domain.ScoredChunk, k int) []*domain.ScoredChunk
}
