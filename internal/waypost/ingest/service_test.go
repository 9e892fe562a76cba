package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/api/types/v1alpha1"
	werrors "github.com/waypost/waypost/internal/waypost/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawEvents(n int) []json.RawMessage {
	out := make([]json.RawMessage, n)
	for i := range out {
		out[i] = json.RawMessage(fmt.Sprintf(`{"name":"metric_%d","value":1}`, i))
	}
	return out
}

func TestAcceptBatchStoresEvents(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, testLogger())

	req := v1alpha1.BatchRequest{
		Events: rawEvents(3),
		Metadata: v1alpha1.BatchMetadata{
			SessionID: "session-1",
			BatchSize: 3,
			Sync:      true,
		},
	}
	require.NoError(t, svc.AcceptBatch(context.Background(), v1alpha1.CategoryBusinessMetric, req))

	events, err := svc.RecentEvents(context.Background(), v1alpha1.CategoryBusinessMetric, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	batchID := events[0].BatchID
	for _, e := range events {
		assert.Equal(t, v1alpha1.CategoryBusinessMetric, e.Category)
		assert.Equal(t, "session-1", e.SessionID)
		assert.Equal(t, batchID, e.BatchID, "all events share the batch id")
		assert.True(t, e.Sync)
		assert.False(t, e.ReceivedAt.IsZero())
	}
}

func TestAcceptBatchRejectsInvalidInput(t *testing.T) {
	svc := NewService(NewMemoryRepository(), testLogger())

	err := svc.AcceptBatch(context.Background(), "", v1alpha1.BatchRequest{Events: rawEvents(1)})
	assert.ErrorIs(t, err, werrors.ErrInvalidInput)

	err = svc.AcceptBatch(context.Background(), v1alpha1.CategoryUsability, v1alpha1.BatchRequest{})
	assert.ErrorIs(t, err, werrors.ErrInvalidInput)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, testLogger())

	for i := 0; i < 3; i++ {
		req := v1alpha1.BatchRequest{
			Events: []json.RawMessage{json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i))},
		}
		require.NoError(t, svc.AcceptBatch(context.Background(), v1alpha1.CategoryUsability, req))
	}

	events, err := svc.RecentEvents(context.Background(), v1alpha1.CategoryUsability, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.JSONEq(t, `{"seq":2}`, string(events[0].Payload))
	assert.JSONEq(t, `{"seq":1}`, string(events[1].Payload))
}

func TestRecentEventsLimitClamped(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, testLogger())

	req := v1alpha1.BatchRequest{Events: rawEvents(150)}
	require.NoError(t, svc.AcceptBatch(context.Background(), v1alpha1.CategoryUsability, req))

	// Out-of-range limits fall back to 100.
	events, err := svc.RecentEvents(context.Background(), v1alpha1.CategoryUsability, 0)
	require.NoError(t, err)
	assert.Len(t, events, 100)

	events, err = svc.RecentEvents(context.Background(), v1alpha1.CategoryUsability, 1000)
	require.NoError(t, err)
	assert.Len(t, events, 100)
}

func TestMemoryRepositoryBounded(t *testing.T) {
	repo := NewMemoryRepository()

	events := make([]StoredEvent, maxMemoryEvents+10)
	for i := range events {
		events[i] = StoredEvent{
			Category: v1alpha1.CategoryUsability,
			Payload:  json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)),
		}
	}
	require.NoError(t, repo.SaveEvents(context.Background(), events))

	got, err := repo.RecentEvents(context.Background(), v1alpha1.CategoryUsability, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, fmt.Sprintf(`{"seq":%d}`, maxMemoryEvents+9), string(got[0].Payload))
}
