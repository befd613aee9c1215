package ai

import (
	"context"
	"sort"
	"strings"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure ExtractiveGenerator implements TextGenerator
var _ driven.TextGenerator = (*ExtractiveGenerator)(nil)

// InsufficientAnswer is returned when no passage shares a content word with
// the question
const InsufficientAnswer = "The provided documents do not contain enough information to answer this question."

// ExtractiveGenerator answers offline by quoting the sentences of the
// retrieved passages that share the most content words with the question.
type ExtractiveGenerator struct {
	maxSentences int
}

// NewExtractiveGenerator creates an extractive generator
func NewExtractiveGenerator() *ExtractiveGenerator {
	return &ExtractiveGenerator{maxSentences: 3}
}

type scoredSentence struct {
	text    string
	overlap int
	order   int
}

func (g *ExtractiveGenerator) Generate(ctx context.Context, prompt driven.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	question := make(map[string]struct{})
	for _, tok := range tokenize(prompt.Question) {
		question[tok] = struct{}{}
	}

	var candidates []scoredSentence
	seen := make(map[string]struct{})
	order := 0
	for _, p := range prompt.Passages {
		for _, sentence := range splitSentences(p.Content) {
			if _, dup := seen[sentence]; dup {
				continue
			}
			seen[sentence] = struct{}{}

			overlap := 0
			counted := make(map[string]struct{})
			for _, tok := range tokenize(sentence) {
				if _, ok := question[tok]; !ok {
					continue
				}
				if _, done := counted[tok]; done {
					continue
				}
				counted[tok] = struct{}{}
				overlap++
			}
			if overlap > 0 {
				candidates = append(candidates, scoredSentence{text: sentence, overlap: overlap, order: order})
			}
			order++
		}
	}

	if len(candidates) == 0 {
		return InsufficientAnswer, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].overlap > candidates[j].overlap
	})

	// Keep sentences close to the best match, then restore reading order
	best := candidates[0].overlap
	var picked []scoredSentence
	for _, c := range candidates {
		if len(picked) == g.maxSentences || c.overlap*2 < best {
			break
		}
		picked = append(picked, c)
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].order < picked[j].order })

	parts := make([]string, len(picked))
	for i, c := range picked {
		parts[i] = c.text
	}
	return strings.Join(parts, " "), nil
}

func (g *ExtractiveGenerator) Model() string {
	return "extractive"
}

func (g *ExtractiveGenerator) Ping(ctx context.Context) error {
	return nil
}

func (g *ExtractiveGenerator) Close() error {
	return nil
}
