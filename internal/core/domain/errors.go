package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the caller sent invalid input
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidCredentials indicates wrong email/password combination
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmbeddingUnavailable indicates the embedder could not be reached
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrGenerationUnavailable indicates the text generator failed or timed out
	ErrGenerationUnavailable = errors.New("generation unavailable")

	// ErrEmptyCorpus indicates the owner has no completed documents to query
	ErrEmptyCorpus = errors.New("no documents found, please upload some documents first")

	// ErrIndexFailure indicates a corpus index read or write failed
	ErrIndexFailure = errors.New("index failure")

	// ErrNotSupported indicates the backend does not implement the operation
	ErrNotSupported = errors.New("not supported")

	// ErrMalformedDocument indicates text could not be extracted from a source
	ErrMalformedDocument = errors.New("malformed document")

	// ErrInvalidTransition indicates a document status change that the state machine forbids
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ErrorCode is the machine-readable code surfaced at the API boundary.
type ErrorCode string

const (
	CodeValidation            ErrorCode = "validation_error"
	CodeNotFound              ErrorCode = "not_found"
	CodeEmbeddingUnavailable  ErrorCode = "embedding_unavailable"
	CodeGenerationUnavailable ErrorCode = "generation_unavailable"
	CodeEmptyCorpus           ErrorCode = "empty_corpus"
	CodeIndexFailure          ErrorCode = "index_failure"
	CodeNotSupported          ErrorCode = "not_supported"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeConflict              ErrorCode = "conflict"
	CodeInternal              ErrorCode = "internal_error"
)

// CodeOf classifies err into an ErrorCode.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMalformedDocument):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrEmbeddingUnavailable):
		return CodeEmbeddingUnavailable
	case errors.Is(err, ErrGenerationUnavailable):
		return CodeGenerationUnavailable
	case errors.Is(err, ErrEmptyCorpus):
		return CodeEmptyCorpus
	case errors.Is(err, ErrIndexFailure):
		return CodeIndexFailure
	case errors.Is(err, ErrNotSupported):
		return CodeNotSupported
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrSessionNotFound):
		return CodeUnauthorized
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, ErrInvalidTransition):
		return CodeConflict
	default:
		return CodeInternal
	}
}

// Invalid returns an ErrInvalidInput wrapped with a human-readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// GenerationError is returned when the answer text could not be produced.
// Sources holds the citations computed before generation failed.
type GenerationError struct {
	Sources []Source
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return ErrGenerationUnavailable.Error()
	}
	return fmt.Sprintf("%s: %v", ErrGenerationUnavailable, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *GenerationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrGenerationUnavailable}
	}
	return []error{ErrGenerationUnavailable, e.Err}
}
