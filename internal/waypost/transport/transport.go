// Package transport delivers event batches to the ingestion endpoint
package transport

import (
	"context"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

// Sender delivers batches to the ingestion endpoint. The queue manager owns
// retry semantics; a Sender attempts delivery exactly once per call.
type Sender interface {
	// Send delivers a batch and reports failure so the caller can queue the
	// batch for retry.
	Send(ctx context.Context, batch v1alpha1.EventBatch) error

	// SendBeacon delivers a batch on a best-effort basis under a hard
	// deadline. It is used only during shutdown, when the process may
	// terminate before a normal send completes. Failures are not reported.
	SendBeacon(batch v1alpha1.EventBatch)
}
