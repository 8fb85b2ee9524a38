package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/BladexZN/dashboard-c/internal/models"
)

var statusEventColumns = []string{"id", "seq", "request_id", "status", "user_id", "occurred_at", "note"}

// StatusEventRepository is the append-only status log. It exposes no update or
// delete operation.
type StatusEventRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewStatusEventRepository constructs the repository.
func NewStatusEventRepository(db *sqlx.DB) *StatusEventRepository {
	return &StatusEventRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Append records one event. The row is written by a single INSERT, so a
// failure leaves nothing behind.
func (r *StatusEventRepository) Append(ctx context.Context, event *models.StatusEvent) error {
	return insertStatusEvent(ctx, r.db, event)
}

func insertStatusEvent(ctx context.Context, q sqlx.QueryerContext, event *models.StatusEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	const query = `INSERT INTO status_events (id, request_id, status, user_id, occurred_at, note)
	VALUES ($1, $2, $3, $4, $5, $6) RETURNING seq`
	if err := q.QueryRowxContext(ctx, query,
		event.ID, event.RequestID, event.Status, event.UserID, event.Timestamp, event.Note,
	).Scan(&event.Seq); err != nil {
		return fmt.Errorf("append status event: %w", err)
	}
	return nil
}

// ListFor returns the events of one request in ascending timestamp order.
func (r *StatusEventRepository) ListFor(ctx context.Context, requestID string) ([]models.StatusEvent, error) {
	const query = `SELECT id, seq, request_id, status, user_id, occurred_at, note
FROM status_events WHERE request_id = $1 ORDER BY occurred_at ASC, seq ASC`
	var events []models.StatusEvent
	if err := r.db.SelectContext(ctx, &events, query, requestID); err != nil {
		return nil, fmt.Errorf("list status events: %w", err)
	}
	return events, nil
}

// LatestFor returns the newest event of each listed request, ordered by
// occurred_at and then seq. Requests without events are absent.
func (r *StatusEventRepository) LatestFor(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT DISTINCT ON (request_id) id, seq, request_id, status, user_id, occurred_at, note
FROM status_events WHERE request_id = ANY($1) ORDER BY request_id, occurred_at DESC, seq DESC`
	var events []models.StatusEvent
	if err := r.db.SelectContext(ctx, &events, query, pq.Array(requestIDs)); err != nil {
		return nil, fmt.Errorf("list latest status events: %w", err)
	}
	return events, nil
}

// ListForRequests returns the complete history of the listed requests in
// ascending timestamp order.
func (r *StatusEventRepository) ListForRequests(ctx context.Context, requestIDs []string) ([]models.StatusEvent, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, seq, request_id, status, user_id, occurred_at, note
FROM status_events WHERE request_id = ANY($1) ORDER BY occurred_at ASC, seq ASC`
	var events []models.StatusEvent
	if err := r.db.SelectContext(ctx, &events, query, pq.Array(requestIDs)); err != nil {
		return nil, fmt.Errorf("list status events for requests: %w", err)
	}
	return events, nil
}

// ListRecent returns the newest events first, joined with folio and actor name.
// before, when set, pages backwards from that timestamp.
func (r *StatusEventRepository) ListRecent(ctx context.Context, limit uint64, before *time.Time) ([]models.AuditRow, error) {
	if limit == 0 || limit > 1000 {
		limit = 200
	}
	builder := r.sb.Select(
		"e.id", "e.seq", "e.request_id", "e.status", "e.user_id", "e.occurred_at", "e.note",
		"q.folio", "u.full_name AS user_name",
	).
		From("status_events e").
		LeftJoin("requests q ON q.id = e.request_id").
		LeftJoin("users u ON u.id = e.user_id").
		OrderBy("e.occurred_at DESC", "e.seq DESC").
		Limit(limit)
	if before != nil {
		builder = builder.Where(sq.Lt{"e.occurred_at": *before})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent status events query: %w", err)
	}
	var rows []models.AuditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list recent status events: %w", err)
	}
	return rows, nil
}
