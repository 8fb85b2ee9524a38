package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/BladexZN/dashboard-c/internal/models"
)

var requestColumns = []string{
	"id", "folio", "client", "product", "type", "priority", "description", "brief", "links",
	"attachments", "final_design", "board_number", "advisor_id", "created_by_user_id",
	"created_at", "updated_at", "completed_at", "is_deleted", "deleted_at", "deleted_by",
}

const selectRequest = `SELECT id, folio, client, product, type, priority, description, brief, links,
       attachments, final_design, board_number, advisor_id, created_by_user_id,
       created_at, updated_at, completed_at, is_deleted, deleted_at, deleted_by
FROM requests`

// RequestRepository persists request records. It never reads or writes status;
// that lives in the status event log.
type RequestRepository struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// CreateWithInitialEvent inserts the request and its first status event in one
// transaction. The database assigns the folio.
func (r *RequestRepository) CreateWithInitialEvent(ctx context.Context, req *models.Request, event *models.StatusEvent) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Links == nil {
		req.Links = pq.StringArray{}
	}
	if req.Attachments == nil {
		req.Attachments = models.Attachments{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request tx: %w", err)
	}

	const query = `INSERT INTO requests
	(id, client, product, type, priority, description, brief, links, attachments, final_design,
	 board_number, advisor_id, created_by_user_id, created_at, updated_at, is_deleted)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, FALSE)
	RETURNING folio`
	err = tx.QueryRowxContext(ctx, query,
		req.ID, req.Client, req.Product, req.Type, req.Priority, req.Description, req.Brief,
		req.Links, req.Attachments, req.FinalDesign, req.BoardNumber, req.AdvisorID,
		req.CreatedByUserID, req.CreatedAt, req.UpdatedAt,
	).Scan(&req.Folio)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create request: %w", err)
	}

	event.RequestID = req.ID
	if event.Timestamp.IsZero() {
		event.Timestamp = req.CreatedAt
	}
	if err := insertStatusEvent(ctx, tx, event); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request tx: %w", err)
	}
	return nil
}

// GetByID returns a request by internal identifier, deleted or not.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	var req models.Request
	if err := r.db.GetContext(ctx, &req, selectRequest+` WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request by id: %w", err)
	}
	return &req, nil
}

// GetByFolio returns a request by folio number.
func (r *RequestRepository) GetByFolio(ctx context.Context, folio int64) (*models.Request, error) {
	var req models.Request
	if err := r.db.GetContext(ctx, &req, selectRequest+` WHERE folio = $1`, folio); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request by folio: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := r.sb.Select(requestColumns...).
		From("requests").
		Where(sq.Eq{"is_deleted": filter.Deleted}).
		OrderBy("created_at DESC")
	if filter.CreatedFrom != nil {
		builder = builder.Where(sq.GtOrEq{"created_at": *filter.CreatedFrom})
	}
	if filter.CreatedTo != nil {
		builder = builder.Where(sq.Lt{"created_at": *filter.CreatedTo})
	}
	if filter.AdvisorID != "" {
		builder = builder.Where(sq.Eq{"advisor_id": filter.AdvisorID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list requests query: %w", err)
	}
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// ListTrash returns soft-deleted requests, most recently deleted first.
func (r *RequestRepository) ListTrash(ctx context.Context, limit int) ([]models.TrashItem, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	const query = `SELECT r.id, r.folio, r.client, r.product, r.type, r.priority, r.description, r.brief, r.links,
       r.attachments, r.final_design, r.board_number, r.advisor_id, r.created_by_user_id,
       r.created_at, r.updated_at, r.completed_at, r.is_deleted, r.deleted_at, r.deleted_by,
       u.full_name AS deleted_by_name
FROM requests r
LEFT JOIN users u ON u.id = r.deleted_by
WHERE r.is_deleted = TRUE
ORDER BY r.deleted_at DESC NULLS LAST
LIMIT $1`
	var items []models.TrashItem
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	return items, nil
}

// UpdateFields applies field edits to an active request.
func (r *RequestRepository) UpdateFields(ctx context.Context, id string, upd models.RequestFieldUpdate) error {
	set := map[string]interface{}{"updated_at": time.Now().UTC()}
	if upd.Client != nil {
		set["client"] = *upd.Client
	}
	if upd.Product != nil {
		set["product"] = *upd.Product
	}
	if upd.Type != nil {
		set["type"] = *upd.Type
	}
	if upd.Priority != nil {
		set["priority"] = *upd.Priority
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Brief != nil {
		set["brief"] = *upd.Brief
	}
	if upd.Links != nil {
		set["links"] = pq.StringArray(upd.Links)
	}
	if upd.AdvisorID != nil {
		set["advisor_id"] = *upd.AdvisorID
	}
	if upd.BoardNumber != nil {
		set["board_number"] = *upd.BoardNumber
	}
	if upd.FinalDesign != nil {
		set["final_design"] = upd.FinalDesign
	}

	query, args, err := r.sb.Update("requests").
		SetMap(set).
		Where(sq.Eq{"id": id, "is_deleted": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update request query: %w", err)
	}
	return r.execOne(ctx, "update request", query, args...)
}

// SetCompletedAt stamps the delivery time.
func (r *RequestRepository) SetCompletedAt(ctx context.Context, id string, completedAt time.Time) error {
	const query = `UPDATE requests SET completed_at = $2 WHERE id = $1`
	return r.execOne(ctx, "set completed_at", query, id, completedAt)
}

// SetAttachments replaces the attachment list and final design of an active request.
func (r *RequestRepository) SetAttachments(ctx context.Context, id string, attachments models.Attachments, finalDesign *models.FinalDesign) error {
	if attachments == nil {
		attachments = models.Attachments{}
	}
	const query = `UPDATE requests SET attachments = $2, final_design = $3, updated_at = $4 WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "set attachments", query, id, attachments, finalDesign, time.Now().UTC())
}

// SoftDelete flags the request as deleted and clears its file and link references.
func (r *RequestRepository) SoftDelete(ctx context.Context, id string, deletedBy *string, deletedAt time.Time) error {
	const query = `UPDATE requests
SET is_deleted = TRUE, deleted_at = $2, deleted_by = $3, attachments = '[]'::jsonb, links = '{}', final_design = NULL
WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "soft delete request", query, id, deletedAt, deletedBy)
}

// Restore clears every soft-delete marker.
func (r *RequestRepository) Restore(ctx context.Context, id string) error {
	const query = `UPDATE requests SET is_deleted = FALSE, deleted_at = NULL, deleted_by = NULL WHERE id = $1 AND is_deleted = TRUE`
	return r.execOne(ctx, "restore request", query, id)
}

// ListArchivable returns active requests completed before cutoff.
func (r *RequestRepository) ListArchivable(ctx context.Context, cutoff time.Time) ([]models.Request, error) {
	query, args, err := r.sb.Select(requestColumns...).
		From("requests").
		Where(sq.Eq{"is_deleted": false}).
		Where(sq.NotEq{"completed_at": nil}).
		Where(sq.Lt{"completed_at": cutoff}).
		OrderBy("completed_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build archivable query: %w", err)
	}
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list archivable requests: %w", err)
	}
	return requests, nil
}

// ArchiveMany soft-deletes the given requests on behalf of the system (deleted_by NULL).
func (r *RequestRepository) ArchiveMany(ctx context.Context, ids []string, archivedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	const query = `UPDATE requests SET is_deleted = TRUE, deleted_at = $1, deleted_by = NULL WHERE id = ANY($2) AND is_deleted = FALSE`
	res, err := r.db.ExecContext(ctx, query, archivedAt, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("archive requests: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check archive rows: %w", err)
	}
	return affected, nil
}

func (r *RequestRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
