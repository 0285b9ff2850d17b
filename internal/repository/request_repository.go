package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bellsnotice/board-api/internal/models"
)

const requestColumns = `id, requester_id, rep_id, title, description, status, response_message, responded_at, notice_id, created_at`

const requestMediaColumns = `id, request_id, media_type, media_url, is_link, file_name, created_at`

// RequestRepository persists notice requests and their media, including
// the transactional approval that materializes a notice.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request row in pending status.
func (r *RequestRepository) Create(ctx context.Context, request *models.NoticeRequest) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notice_requests (id, requester_id, rep_id, title, description, status, created_at)
VALUES (:id, :requester_id, :rep_id, :title, :description, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, request); err != nil {
		return fmt.Errorf("create notice request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.NoticeRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM notice_requests WHERE id = $1`, requestColumns)
	var request models.NoticeRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter. Pending listings order by
// created_at, resolved listings by responded_at, both newest first.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.NoticeRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf("SELECT %s FROM notice_requests", requestColumns))

	conditions := make([]string, 0, 3)
	if filter.RepID != "" {
		args = append(args, filter.RepID)
		conditions = append(conditions, fmt.Sprintf("rep_id = $%d", len(args)))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	resolvedOnly := len(filter.Status) > 0
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
			if status == models.RequestStatusPending {
				resolvedOnly = false
			}
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	if resolvedOnly {
		builder.WriteString(" ORDER BY responded_at DESC")
	} else {
		builder.WriteString(" ORDER BY created_at DESC")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.NoticeRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list notice requests: %w", err)
	}
	return requests, nil
}

// CreateMedia attaches a media row to a request.
func (r *RequestRepository) CreateMedia(ctx context.Context, media *models.RequestMedia) error {
	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notice_request_media (id, request_id, media_type, media_url, is_link, file_name, created_at)
VALUES (:id, :request_id, :media_type, :media_url, :is_link, :file_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, media); err != nil {
		return fmt.Errorf("create request media: %w", err)
	}
	return nil
}

// ListMedia returns the media rows for one request.
func (r *RequestRepository) ListMedia(ctx context.Context, requestID string) ([]models.RequestMedia, error) {
	query := fmt.Sprintf(`SELECT %s FROM notice_request_media WHERE request_id = $1 ORDER BY created_at ASC`, requestMediaColumns)
	var media []models.RequestMedia
	if err := r.db.SelectContext(ctx, &media, query, requestID); err != nil {
		return nil, fmt.Errorf("list request media: %w", err)
	}
	return media, nil
}

// Reject marks a pending request rejected with the given message. The
// update is conditional on status still being pending; if another
// decision already landed it returns sql.ErrNoRows.
func (r *RequestRepository) Reject(ctx context.Context, id, message string, respondedAt time.Time) error {
	const query = `UPDATE notice_requests SET status = $2, response_message = $3, responded_at = $4
WHERE id = $1 AND status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, models.RequestStatusRejected, message, respondedAt)
	if err != nil {
		return fmt.Errorf("reject notice request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reject rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ApproveAndMaterialize runs the accept workflow in a single
// transaction: it copies the request's media, creates the notice with
// its duplicated media rows, then conditionally flips the request to
// approved. A request already decided elsewhere aborts the whole
// transaction with sql.ErrNoRows, leaving no orphan notice behind.
func (r *RequestRepository) ApproveAndMaterialize(ctx context.Context, requestID string, notice *models.Notice, message string, respondedAt time.Time) ([]models.NoticeMedia, error) {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	mediaQuery := fmt.Sprintf(`SELECT %s FROM notice_request_media WHERE request_id = $1 ORDER BY created_at ASC`, requestMediaColumns)
	var requestMedia []models.RequestMedia
	if err := tx.SelectContext(ctx, &requestMedia, mediaQuery, requestID); err != nil {
		return nil, fmt.Errorf("read request media: %w", err)
	}

	const noticeInsert = `INSERT INTO notices (id, title, description, author_id, view_count, is_important, is_featured, expires_at, created_at, updated_at)
VALUES (:id, :title, :description, :author_id, :view_count, :is_important, :is_featured, :expires_at, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, noticeInsert, notice); err != nil {
		return nil, fmt.Errorf("materialize notice: %w", err)
	}

	copied := make([]models.NoticeMedia, 0, len(requestMedia))
	const mediaInsert = `INSERT INTO notice_media (id, notice_id, media_type, media_url, is_link, file_name, created_at)
VALUES (:id, :notice_id, :media_type, :media_url, :is_link, :file_name, :created_at)`
	for _, rm := range requestMedia {
		nm := models.NoticeMedia{
			ID:        uuid.NewString(),
			NoticeID:  notice.ID,
			MediaType: rm.MediaType,
			MediaURL:  rm.MediaURL,
			IsLink:    rm.IsLink,
			FileName:  rm.FileName,
			CreatedAt: now,
		}
		if _, err := tx.NamedExecContext(ctx, mediaInsert, nm); err != nil {
			return nil, fmt.Errorf("copy request media: %w", err)
		}
		copied = append(copied, nm)
	}

	const approve = `UPDATE notice_requests SET status = $2, response_message = $3, responded_at = $4, notice_id = $5
WHERE id = $1 AND status = 'pending'`
	result, err := tx.ExecContext(ctx, approve, requestID, models.RequestStatusApproved, message, respondedAt, notice.ID)
	if err != nil {
		return nil, fmt.Errorf("approve notice request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check approve rows: %w", err)
	}
	if rows == 0 {
		return nil, sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve tx: %w", err)
	}
	return copied, nil
}

// DeleteWithMedia removes a request and its media rows, media first so
// no orphan rows survive a partial failure.
func (r *RequestRepository) DeleteWithMedia(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM notice_request_media WHERE request_id = $1`, id); err != nil {
		return fmt.Errorf("delete request media: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM notice_requests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete notice request: %w", err)
	}
	return tx.Commit()
}
