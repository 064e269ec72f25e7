package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/rogers-f/phasebook/internal/domain"
)

// EventRepo handles persistence for WorkflowEvent records.
type EventRepo struct {
	DB *sql.DB
}

// Append inserts an event and returns it with Seq and EventID filled in.
func (r *EventRepo) Append(ctx context.Context, event domain.WorkflowEvent) (domain.WorkflowEvent, error) {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.PayloadJSON == "" {
		event.PayloadJSON = "{}"
	}

	const q = `INSERT INTO workflow_events (event_id, phase_id, event_type, payload_json, created_at)
VALUES (?, ?, ?, ?, ?)`
	res, err := r.DB.ExecContext(ctx, q,
		event.EventID,
		event.PhaseID,
		event.EventType,
		event.PayloadJSON,
		event.CreatedAt,
	)
	if err != nil {
		return event, domain.WrapEngineError(domain.ErrStoreWrite.Code, "append event", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return event, domain.WrapEngineError(domain.ErrStoreWrite.Code, "append event", err)
	}
	event.Seq = seq
	return event, nil
}

// ListSince returns events with sequence numbers greater than sinceSeq,
// ordered by sequence number ascending. A limit of zero or less means no limit.
func (r *EventRepo) ListSince(ctx context.Context, sinceSeq int64, limit int) ([]domain.WorkflowEvent, error) {
	q := `SELECT seq, event_id, phase_id, event_type, payload_json, created_at
FROM workflow_events
WHERE seq > ?
ORDER BY seq ASC`
	args := []any{sinceSeq}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, domain.WrapEngineError(domain.ErrStoreQuery.Code, "list events", err)
	}
	defer rows.Close()

	events := []domain.WorkflowEvent{}
	for rows.Next() {
		var e domain.WorkflowEvent
		if err := rows.Scan(&e.Seq, &e.EventID, &e.PhaseID, &e.EventType, &e.PayloadJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
