package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrSessionNotFound,
		ErrInvalidCredentials,
		ErrEmbeddingUnavailable,
		ErrGenerationUnavailable,
		ErrEmptyCorpus,
		ErrIndexFailure,
		ErrNotSupported,
		ErrMalformedDocument,
		ErrInvalidTransition,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"validation", Invalid("title is required"), CodeValidation},
		{"malformed document", fmt.Errorf("extract: %w", ErrMalformedDocument), CodeValidation},
		{"not found", fmt.Errorf("get document: %w", ErrNotFound), CodeNotFound},
		{"embedding", fmt.Errorf("embed: %w", ErrEmbeddingUnavailable), CodeEmbeddingUnavailable},
		{"generation", &GenerationError{Err: errors.New("timeout")}, CodeGenerationUnavailable},
		{"empty corpus", ErrEmptyCorpus, CodeEmptyCorpus},
		{"index", fmt.Errorf("insert: %w", ErrIndexFailure), CodeIndexFailure},
		{"not supported", ErrNotSupported, CodeNotSupported},
		{"expired token", ErrTokenExpired, CodeUnauthorized},
		{"bad credentials", ErrInvalidCredentials, CodeUnauthorized},
		{"duplicate", ErrAlreadyExists, CodeConflict},
		{"transition", ErrInvalidTransition, CodeConflict},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestInvalid(t *testing.T) {
	err := Invalid("k must be positive, got %d", -1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatal("expected ErrInvalidInput")
	}
	if err.Error() != "invalid input: k must be positive, got -1" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("connection refused")
	sources := []Source{{DocumentID: "doc-1", ChunkIndex: 0, RelevanceScore: 0.8}}
	var err error = &GenerationError{Sources: sources, Err: cause}

	if !errors.Is(err, ErrGenerationUnavailable) {
		t.Error("expected ErrGenerationUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}

	var genErr *GenerationError
	if !errors.As(fmt.Errorf("ask: %w", err), &genErr) {
		t.Fatal("expected errors.As to find GenerationError")
	}
	if len(genErr.Sources) != 1 || genErr.Sources[0].DocumentID != "doc-1" {
		t.Errorf("expected sources to survive wrapping, got %+v", genErr.Sources)
	}

	bare := &GenerationError{}
	if bare.Error() != ErrGenerationUnavailable.Error() {
		t.Errorf("unexpected message %q", bare.Error())
	}
}
