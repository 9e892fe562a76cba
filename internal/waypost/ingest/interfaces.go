// Package ingest implements the reference ingestion endpoint consumed by the
// client pipeline: POST /monitoring/<category>. It exists for local
// development and integration testing; production deployments point the
// transport at their real collector service.
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

// StoredEvent is one accepted event with its batch context.
type StoredEvent struct {
	ID         uuid.UUID         `json:"id"`
	Category   v1alpha1.Category `json:"category"`
	SessionID  string            `json:"sessionId,omitempty"`
	BatchID    uuid.UUID         `json:"batchId"`
	Sync       bool              `json:"sync,omitempty"`
	ReceivedAt time.Time         `json:"receivedAt"`
	Payload    json.RawMessage   `json:"payload"`
}

// Repository stores accepted events.
type Repository interface {
	// SaveEvents stores all events of one batch atomically.
	SaveEvents(ctx context.Context, events []StoredEvent) error
	// RecentEvents returns up to limit events of a category, newest first.
	RecentEvents(ctx context.Context, category v1alpha1.Category, limit int) ([]StoredEvent, error)
}

// Service accepts incoming batches.
type Service interface {
	// AcceptBatch validates and stores a batch for a category.
	AcceptBatch(ctx context.Context, category v1alpha1.Category, req v1alpha1.BatchRequest) error
	// RecentEvents returns recently accepted events for a category.
	RecentEvents(ctx context.Context, category v1alpha1.Category, limit int) ([]StoredEvent, error)
}
