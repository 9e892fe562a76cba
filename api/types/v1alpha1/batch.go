package v1alpha1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BatchMetadata describes a delivered batch. Sync is set on batches sent
// through the fire-and-forget shutdown path.
type BatchMetadata struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"sessionId,omitempty"`
	BatchSize   int       `json:"batchSize"`
	Compression string    `json:"compression,omitempty"`
	Sync        bool      `json:"sync,omitempty"`
}

// EventBatch is an immutable slice of events taken atomically from one
// category queue at flush time.
type EventBatch struct {
	ID       uuid.UUID
	Category Category
	Events   []Event
	Metadata BatchMetadata
}

// Len returns the number of events in the batch.
func (b EventBatch) Len() int { return len(b.Events) }

// BatchPayload is the wire body of POST /monitoring/<category> as produced
// by the client transport.
type BatchPayload struct {
	Events   []Event       `json:"events"`
	Metadata BatchMetadata `json:"metadata"`
}

// BatchRequest is the ingestion-side view of the same body. Event payloads
// are category specific, so the server decodes them as raw documents.
type BatchRequest struct {
	Events   []json.RawMessage `json:"events"`
	Metadata BatchMetadata     `json:"metadata"`
}
