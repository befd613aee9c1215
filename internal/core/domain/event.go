package domain

import "time"

// DocumentEvent is published on every document status transition
type DocumentEvent struct {
	DocumentID string         `json:"document_id"`
	OwnerID    string         `json:"owner_id"`
	Name       string         `json:"name"`
	Status     DocumentStatus `json:"status"`
	ChunkCount int            `json:"chunk_count"`
	Error      string         `json:"error,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewDocumentEvent snapshots doc into an event
func NewDocumentEvent(doc *Document) DocumentEvent {
	return DocumentEvent{
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		Name:       doc.Name,
		Status:     doc.Status,
		ChunkCount: doc.ChunkCount,
		Error:      doc.Error,
		OccurredAt: time.Now(),
	}
}
