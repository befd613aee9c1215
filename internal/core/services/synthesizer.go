package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// groundingInstruction is the system message of every answer prompt
const groundingInstruction = `You answer questions using only the passages provided below.
Do not use any other knowledge.
If the passages do not contain enough information to answer, say explicitly that the provided documents do not contain the answer.
When you use a passage, mention its document name.`

// errBlankAnswer is the cause recorded when the generator returns no text
var errBlankAnswer = errors.New("generator returned a blank answer")

// SynthesizerConfig holds the collaborators of the answer synthesizer.
type SynthesizerConfig struct {
	Generator driven.TextGenerator
	// Timeout bounds one generation call; zero leaves it to the caller's context
	Timeout time.Duration
	Logger  *slog.Logger
}

// Synthesizer turns retrieved chunks into a grounded answer with citations.
type Synthesizer struct {
	generator driven.TextGenerator
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(cfg SynthesizerConfig) *Synthesizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		generator: cfg.Generator,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "synthesizer"),
	}
}

// Answer builds the grounding prompt and calls the generator. When the
// generator fails, times out, is cancelled or returns nothing, the error is
// a *domain.GenerationError that still carries the citations.
func (s *Synthesizer) Answer(ctx context.Context, ownerID, question string, retrieved []*domain.ScoredChunk) (*domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.Invalid("question must not be blank")
	}
	for _, sc := range retrieved {
		if sc.Chunk.OwnerID != ownerID {
			return nil, fmt.Errorf("%w: chunk %s is not owned by the caller", domain.ErrIndexFailure, sc.Chunk.ID)
		}
	}

	ordered := make([]*domain.ScoredChunk, len(retrieved))
	copy(ordered, retrieved)
	domain.SortScoredChunks(ordered)
	sources := domain.SourcesFromChunks(ordered)

	genCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	answer, err := s.generator.Generate(genCtx, BuildPrompt(question, ordered))
	if err == nil {
		// A generator that ignores its context must not report success
		// after the deadline.
		err = genCtx.Err()
	}
	if err != nil {
		s.logger.Warn("generation failed", "owner_id", ownerID, "model", s.generator.Model(), "error", err)
		return nil, &domain.GenerationError{Sources: sources, Err: err}
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, &domain.GenerationError{Sources: sources, Err: errBlankAnswer}
	}

	return &domain.QueryResult{
		Question: question,
		Answer:   answer,
		Sources:  sources,
	}, nil
}

// BuildPrompt renders the grounding prompt. Each passage is labelled with
// its document name and chunk index.
func BuildPrompt(question string, chunks []*domain.ScoredChunk) driven.Prompt {
	passages := make([]driven.Passage, len(chunks))
	var b strings.Builder
	b.WriteString("Passages:\n")
	for i, sc := range chunks {
		passages[i] = driven.Passage{
			DocumentName: sc.Chunk.DocumentName,
			ChunkIndex:   sc.Chunk.Sequence,
			Content:      sc.Chunk.Content,
		}
		fmt.Fprintf(&b, "\n[%d] Document: %s (chunk %d)\n%s\n",
			i+1, sc.Chunk.DocumentName, sc.Chunk.Sequence, sc.Chunk.Content)
	}
	if len(chunks) == 0 {
		b.WriteString("\n(no passages were found)\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", question)

	return driven.Prompt{
		System:   groundingInstruction,
		User:     b.String(),
		Question: question,
		Passages: passages,
	}
}
