package domain

import "time"

// DocumentStatus is the lifecycle state of an ingested document
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsTerminal reports whether no further transition may leave this status.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusPending:
		return next == DocumentStatusProcessing || next == DocumentStatusFailed
	case DocumentStatusProcessing:
		return next == DocumentStatusCompleted || next == DocumentStatusFailed
	default:
		return false
	}
}

// Document is one ingested unit: an uploaded file or a pasted text block
type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id"`
	Name        string         `json:"name"`
	MimeType    string         `json:"mime_type"`
	Status      DocumentStatus `json:"status"`
	ChunkCount  int            `json:"chunk_count"`
	Error       string         `json:"error,omitempty"`
	SizeBytes   int64          `json:"size_bytes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewDocument creates a pending document owned by ownerID
func NewDocument(ownerID, name, mimeType string, size int64) *Document {
	now := time.Now()
	return &Document{
		ID:        GenerateID(),
		OwnerID:   ownerID,
		Name:      name,
		MimeType:  mimeType,
		Status:    DocumentStatusPending,
		SizeBytes: size,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DocumentSummary is the listing view of a document
type DocumentSummary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	CreatedAt  time.Time      `json:"created_at"`
	ChunkCount int            `json:"chunk_count"`
	Status     DocumentStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// ToSummary converts a Document to DocumentSummary
func (d *Document) ToSummary() *DocumentSummary {
	return &DocumentSummary{
		ID:         d.ID,
		Name:       d.Name,
		CreatedAt:  d.CreatedAt,
		ChunkCount: d.ChunkCount,
		Status:     d.Status,
		Error:      d.Error,
	}
}

// StatusUpdate describes a conditional status change.
// The store applies it only when the stored status equals From.
type StatusUpdate struct {
	From       DocumentStatus
	To         DocumentStatus
	ChunkCount int    // only applied when To is completed
	Error      string // only applied when To is failed
}

// Chunk is a contiguous slice of a document's text, the atomic retrieval unit
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	OwnerID      string    `json:"owner_id"`
	Sequence     int       `json:"sequence"` // 0-based index within the document
	Content      string    `json:"content"`
	Embedding    []float32 `json:"embedding,omitempty"`
	StartOffset  int       `json:"start_offset"`
	EndOffset    int       `json:"end_offset"`
	CreatedAt    time.Time `json:"created_at"`
}

// IngestReceipt is returned when an ingestion request is accepted
type IngestReceipt struct {
	DocumentID string         `json:"document_id"`
	Status     DocumentStatus `json:"status"`
}
