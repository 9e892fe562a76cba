// Package postgres implements the ingestion repository on PostgreSQL
package postgres

import (
	"context"
	"database/sql"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/database"
	"github.com/waypost/waypost/internal/waypost/ingest"
)

type repository struct {
	db *sql.DB
}

// NewRepository creates a postgres-backed ingestion repository
func NewRepository(db *sql.DB) ingest.Repository {
	return &repository{db: db}
}

// SaveEvents implements ingest.Repository.SaveEvents
func (r *repository) SaveEvents(ctx context.Context, events []ingest.StoredEvent) error {
	const op = "IngestRepository.SaveEvents"

	err := database.RunInTx(ctx, r.db, nil, func(tx *database.Tx) error {
		for _, event := range events {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO telemetry_events (
					id, category, session_id, received_at, batch_id, sync, payload
				) VALUES ($1, $2, $3, $4, $5, $6, $7)
			`,
				event.ID,
				event.Category,
				event.SessionID,
				event.ReceivedAt,
				event.BatchID,
				event.Sync,
				[]byte(event.Payload),
			)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return database.MapError(err, op)
	}

	return nil
}

// RecentEvents implements ingest.Repository.RecentEvents
func (r *repository) RecentEvents(ctx context.Context, category v1alpha1.Category, limit int) ([]ingest.StoredEvent, error) {
	const op = "IngestRepository.RecentEvents"

	var events []ingest.StoredEvent

	err := database.RunInTx(ctx, r.db, &database.TxOptions{ReadOnly: true}, func(tx *database.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, category, session_id, received_at, batch_id, sync, payload
			FROM telemetry_events
			WHERE category = $1
			ORDER BY received_at DESC
			LIMIT $2
		`, category, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var event ingest.StoredEvent
			var payload []byte

			err := rows.Scan(
				&event.ID,
				&event.Category,
				&event.SessionID,
				&event.ReceivedAt,
				&event.BatchID,
				&event.Sync,
				&payload,
			)
			if err != nil {
				return err
			}
			event.Payload = payload
			events = append(events, event)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, database.MapError(err, op)
	}

	return events, nil
}
