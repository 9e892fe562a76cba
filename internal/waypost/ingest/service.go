package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/waypost/waypost/api/types/v1alpha1"
	werrors "github.com/waypost/waypost/internal/waypost/errors"
)

type service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates the ingestion service.
func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) AcceptBatch(ctx context.Context, category v1alpha1.Category, req v1alpha1.BatchRequest) error {
	if category == "" {
		return fmt.Errorf("%w: missing category", werrors.ErrInvalidInput)
	}
	if len(req.Events) == 0 {
		return fmt.Errorf("%w: empty batch", werrors.ErrInvalidInput)
	}

	now := time.Now().UTC()
	batchID := uuid.New()
	events := make([]StoredEvent, 0, len(req.Events))
	for _, payload := range req.Events {
		events = append(events, StoredEvent{
			ID:         uuid.New(),
			Category:   category,
			SessionID:  req.Metadata.SessionID,
			BatchID:    batchID,
			Sync:       req.Metadata.Sync,
			ReceivedAt: now,
			Payload:    payload,
		})
	}

	if err := s.repo.SaveEvents(ctx, events); err != nil {
		return err
	}

	s.logger.Debug("accepted batch",
		"category", category,
		"events", len(events),
		"sessionId", req.Metadata.SessionID,
		"sync", req.Metadata.Sync,
	)
	return nil
}

func (s *service) RecentEvents(ctx context.Context, category v1alpha1.Category, limit int) ([]StoredEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.RecentEvents(ctx, category, limit)
}
