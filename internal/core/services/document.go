package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
	"github.com/custodia-labs/sercha-corpus/internal/normalisers"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

const (
	// DefaultMaxUploadBytes bounds a document payload when no limit is configured
	DefaultMaxUploadBytes = 20 << 20

	defaultListLimit = 50
	maxListLimit     = 200
)

// uploadTypes are the formats accepted for upload
var uploadTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
	"text/markdown":   true,
	"text/x-markdown": true,
	"text/html":       true,
}

// DocumentServiceConfig holds the dependencies of the document service.
type DocumentServiceConfig struct {
	Documents      driven.DocumentStore
	Index          driven.CorpusIndex
	TaskQueue      driven.TaskQueue
	Events         driven.EventBus // Optional: required for Subscribe
	MaxUploadBytes int64
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// documentService implements the DocumentService interface
type documentService struct {
	documents driven.DocumentStore
	index     driven.CorpusIndex
	taskQueue driven.TaskQueue
	events    driven.EventBus
	maxBytes  int64
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(cfg DocumentServiceConfig) driving.DocumentService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &documentService{
		documents: cfg.Documents,
		index:     cfg.Index,
		taskQueue: cfg.TaskQueue,
		events:    cfg.Events,
		maxBytes:  maxBytes,
		metrics:   cfg.Metrics,
		logger:    logger.With("component", "documents"),
	}
}

// IngestText accepts a pasted text block. It is stored as title + ".txt"
// unless the title already carries an extension.
func (s *documentService) IngestText(ctx context.Context, ownerID string, req driving.IngestTextRequest) (*domain.IngestReceipt, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.Invalid("title must not be blank")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, domain.Invalid("content must not be blank")
	}
	if int64(len(req.Content)) > s.maxBytes {
		return nil, domain.Invalid("content exceeds %d bytes", s.maxBytes)
	}

	return s.accept(ctx, ownerID, textDocumentName(title), "text/plain", []byte(req.Content))
}

// IngestFile accepts an uploaded PDF, text, Markdown or HTML file
func (s *documentService) IngestFile(ctx context.Context, ownerID string, req driving.IngestFileRequest) (*domain.IngestReceipt, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	name := filepath.Base(strings.TrimSpace(req.Filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, domain.Invalid("filename is required")
	}
	if len(req.Payload) == 0 {
		return nil, domain.Invalid("file %q is empty", name)
	}
	if int64(len(req.Payload)) > s.maxBytes {
		return nil, domain.Invalid("file %q exceeds %d bytes", name, s.maxBytes)
	}

	mimeType, ok := uploadType(req.MimeType, name, req.Payload)
	if !ok {
		return nil, domain.Invalid("unsupported file type %q; upload PDF, text, Markdown or HTML", mimeType)
	}

	return s.accept(ctx, ownerID, name, mimeType, req.Payload)
}

// accept stores a pending document with its payload and queues ingestion
func (s *documentService) accept(ctx context.Context, ownerID, name, mimeType string, payload []byte) (*domain.IngestReceipt, error) {
	doc := domain.NewDocument(ownerID, name, mimeType, int64(len(payload)))
	if err := s.documents.Create(ctx, doc, payload); err != nil {
		return nil, err
	}
	s.metrics.DocumentTransition(string(doc.Status))
	publishDocument(ctx, s.events, s.logger, doc)

	// A document left pending is picked up by the stalled-ingestion sweep
	if err := s.taskQueue.Enqueue(ctx, domain.NewIngestDocumentTask(ownerID, doc.ID)); err != nil {
		s.logger.Error("failed to enqueue ingestion", "document_id", doc.ID, "error", err)
	}

	s.logger.Info("document accepted",
		"document_id", doc.ID,
		"owner_id", ownerID,
		"mime_type", mimeType,
		"size_bytes", doc.SizeBytes,
	)
	return &domain.IngestReceipt{DocumentID: doc.ID, Status: doc.Status}, nil
}

// List returns the owner's documents, newest first
func (s *documentService) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.DocumentSummary, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := s.documents.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	summaries := make([]*domain.DocumentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = doc.ToSummary()
	}
	return summaries, nil
}

// Get retrieves one of the owner's documents
func (s *documentService) Get(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.documents.GetForOwner(ctx, ownerID, id)
}

// Delete removes the document's chunks from the index, then the document
// and its payload. Documents still pending or processing cannot be deleted.
func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !doc.Status.IsTerminal() {
		return fmt.Errorf("%w: document is %s", domain.ErrInvalidTransition, doc.Status)
	}

	if err := s.index.DeleteDocument(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.logger.Info("document deleted", "document_id", id, "owner_id", ownerID)
	return nil
}

// Retry re-ingests a failed document from its stored payload as a new
// document. The failed document keeps its terminal state.
func (s *documentService) Retry(ctx context.Context, ownerID, id string) (*domain.IngestReceipt, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusFailed {
		return nil, fmt.Errorf("%w: only failed documents can be retried, document is %s",
			domain.ErrInvalidTransition, doc.Status)
	}

	payload, err := s.documents.GetPayload(ctx, id)
	if err != nil {
		return nil, err
	}

	receipt, err := s.accept(ctx, ownerID, doc.Name, doc.MimeType, payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document retried", "failed_document_id", id, "document_id", receipt.DocumentID)
	return receipt, nil
}

// Subscribe streams the owner's document events
func (s *documentService) Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, nil, err
	}
	if s.events == nil {
		return nil, nil, fmt.Errorf("%w: document events are disabled", domain.ErrNotSupported)
	}
	return s.events.Subscribe(ctx, ownerID)
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return domain.Invalid("owner is required")
	}
	return nil
}

// textDocumentName appends .txt unless title ends in a file extension
func textDocumentName(title string) string {
	if hasExtension(title) {
		return title
	}
	return title + ".txt"
}

func hasExtension(name string) bool {
	ext := filepath.Ext(name)
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// uploadType resolves the MIME type of an upload. The declared type wins
// when it is supported; otherwise the filename and content decide.
func uploadType(declared, filename string, payload []byte) (string, bool) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(declared, ';'); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if uploadTypes[declared] {
		return declared, true
	}
	detected := normalisers.DetectMIMEType(filename, payload)
	return detected, uploadTypes[detected]
}
