package driven

import (
	"context"
)

// Prompt is the input to a text generator.
// System and User are the rendered chat messages; Question and Passages
// carry the same material unrendered for generators that work on text
// directly.
type Prompt struct {
	// System holds the grounding instructions
	System string
	// User holds the retrieved material and the question
	User string

	Question string
	Passages []Passage
}

// Passage is one retrieved chunk as presented to the generator
type Passage struct {
	DocumentName string
	ChunkIndex   int
	Content      string
}

// TextGenerator produces prose from a prompt. It is treated as a black box.
type TextGenerator interface {
	// Generate returns the generated text for the prompt
	Generate(ctx context.Context, prompt Prompt) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the generator is available
	Ping(ctx context.Context) error

	// Close releases resources held by the generator
	Close() error
}
