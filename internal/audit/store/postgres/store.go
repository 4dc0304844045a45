package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"qidscan/internal/audit"
)

// Store implements audit.Store on the scan_audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	const query = `
		INSERT INTO scan_audit_events
			(action, processing_id, subject_hash, success, error_code,
			 duration_ms, device_class, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		string(event.Action),
		event.ProcessingID,
		event.SubjectHash,
		event.Success,
		event.ErrorCode,
		event.Duration.Milliseconds(),
		event.DeviceClass,
		event.RequestID,
		event.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const query = `
		SELECT action, processing_id, subject_hash, success, error_code,
		       duration_ms, device_class, request_id, occurred_at
		FROM scan_audit_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e          audit.Event
			action     string
			durationMS int64
		)
		if err := rows.Scan(&action, &e.ProcessingID, &e.SubjectHash, &e.Success, &e.ErrorCode,
			&durationMS, &e.DeviceClass, &e.RequestID, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Duration = time.Duration(durationMS) * time.Millisecond
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
