package domain

import (
	"math"
	"sort"
	"time"
)

// ScoredChunk is a retrieved chunk with its relevance score in [0,1]
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}

// Source is a citation attached to an answer
type Source struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// QueryResult is the answer to a question, with citations
type QueryResult struct {
	Question string        `json:"question"`
	Answer   string        `json:"answer"`
	Sources  []Source      `json:"sources"`
	Took     time.Duration `json:"took" swaggertype:"integer" example:"1500000"`
}

// SimilarityToScore maps cosine similarity in [-1,1] onto [0,1] as (cos+1)/2.
func SimilarityToScore(cosine float64) float64 {
	if math.IsNaN(cosine) {
		// zero vectors have no direction
		cosine = 0
	}
	score := (cosine + 1) / 2
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// SortScoredChunks orders chunks by score desc, then sequence asc, then
// document id asc.
func SortScoredChunks(chunks []*ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Sequence != b.Chunk.Sequence {
			return a.Chunk.Sequence < b.Chunk.Sequence
		}
		return a.Chunk.DocumentID < b.Chunk.DocumentID
	})
}

// SortSources applies the citation order: relevance desc, chunk index asc,
// document id asc.
func SortSources(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i], sources[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if a.ChunkIndex != b.ChunkIndex {
			return a.ChunkIndex < b.ChunkIndex
		}
		return a.DocumentID < b.DocumentID
	})
}

// SourcesFromChunks converts retrieved chunks into ordered citations.
func SourcesFromChunks(chunks []*ScoredChunk) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, sc := range chunks {
		sources = append(sources, Source{
			DocumentID:     sc.Chunk.DocumentID,
			DocumentName:   sc.Chunk.DocumentName,
			ChunkIndex:     sc.Chunk.Sequence,
			RelevanceScore: sc.Score,
		})
	}
	SortSources(sources)
	return sources
}
