package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bellsnotice/board-api/internal/models"
)

const noticeColumns = `id, title, description, author_id, view_count, is_important, is_featured, expires_at, created_at, updated_at`

const noticeMediaColumns = `id, notice_id, media_type, media_url, is_link, file_name, created_at`

// NoticeRepository persists notices, their media, tag links and view
// records.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository constructs the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// Create inserts a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = now
	const query = `INSERT INTO notices (id, title, description, author_id, view_count, is_important, is_featured, expires_at, created_at, updated_at)
VALUES (:id, :title, :description, :author_id, :view_count, :is_important, :is_featured, :expires_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id string) (*models.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE id = $1`, noticeColumns)
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		return nil, err
	}
	return &notice, nil
}

// List returns notices matching the filter with the total count,
// newest first. Expired notices are excluded unless asked for.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error) {
	base := "FROM notices"
	where := []string{"1=1"}
	args := []interface{}{}

	if !filter.IncludeExpired {
		where = append(where, "(expires_at IS NULL OR expires_at > NOW())")
	}
	if filter.Important != nil {
		args = append(args, *filter.Important)
		where = append(where, fmt.Sprintf("is_important = $%d", len(args)))
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		where = append(where, fmt.Sprintf("is_featured = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		where = append(where, fmt.Sprintf("author_id = $%d", len(args)))
	}
	if filter.TagID != "" {
		args = append(args, filter.TagID)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM notice_tags nt WHERE nt.notice_id = notices.id AND nt.tag_id = $%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(description) LIKE $%d)", len(args), len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		noticeColumns, base, whereClause, size, offset)
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s WHERE %s", base, whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}

// Update modifies an existing notice's editable fields.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	notice.UpdatedAt = time.Now().UTC()
	const query = `UPDATE notices SET title = :title, description = :description, is_important = :is_important,
is_featured = :is_featured, expires_at = :expires_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	return nil
}

// DeleteCascade removes a notice and every dependent row: tag links,
// media, comments, reactions, saved bookmarks and view records first,
// then the notice itself, all in one transaction.
func (r *NoticeRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notice delete tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	steps := []string{
		`DELETE FROM notice_tags WHERE notice_id = $1`,
		`DELETE FROM notice_media WHERE notice_id = $1`,
		`DELETE FROM comments WHERE notice_id = $1`,
		`DELETE FROM reactions WHERE notice_id = $1`,
		`DELETE FROM saved_notices WHERE notice_id = $1`,
		`DELETE FROM notice_views WHERE notice_id = $1`,
		`DELETE FROM notices WHERE id = $1`,
	}
	for _, step := range steps {
		if _, err := tx.ExecContext(ctx, step, id); err != nil {
			return fmt.Errorf("cascade delete notice: %w", err)
		}
	}
	return tx.Commit()
}

// CreateMedia attaches a media row to a notice.
func (r *NoticeRepository) CreateMedia(ctx context.Context, media *models.NoticeMedia) error {
	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notice_media (id, notice_id, media_type, media_url, is_link, file_name, created_at)
VALUES (:id, :notice_id, :media_type, :media_url, :is_link, :file_name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, media); err != nil {
		return fmt.Errorf("create notice media: %w", err)
	}
	return nil
}

// ListMedia returns media rows for one notice.
func (r *NoticeRepository) ListMedia(ctx context.Context, noticeID string) ([]models.NoticeMedia, error) {
	query := fmt.Sprintf(`SELECT %s FROM notice_media WHERE notice_id = $1 ORDER BY created_at ASC`, noticeMediaColumns)
	var media []models.NoticeMedia
	if err := r.db.SelectContext(ctx, &media, query, noticeID); err != nil {
		return nil, fmt.Errorf("list notice media: %w", err)
	}
	return media, nil
}

// FindOrCreateTags resolves tag names to rows, creating missing ones.
func (r *NoticeRepository) FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var existing []models.Tag
	if err := r.db.SelectContext(ctx, &existing, `SELECT id, name FROM tags WHERE name = ANY($1)`, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		have[tag.Name] = struct{}{}
	}
	for _, name := range names {
		if _, ok := have[name]; ok {
			continue
		}
		tag := models.Tag{ID: uuid.NewString(), Name: name}
		if _, err := r.db.ExecContext(ctx, `INSERT INTO tags (id, name) VALUES ($1, $2)`, tag.ID, tag.Name); err != nil {
			return nil, fmt.Errorf("create tag: %w", err)
		}
		existing = append(existing, tag)
		have[name] = struct{}{}
	}
	return existing, nil
}

// LinkTag associates a tag with a notice.
func (r *NoticeRepository) LinkTag(ctx context.Context, noticeID, tagID string) error {
	const query = `INSERT INTO notice_tags (notice_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, noticeID, tagID); err != nil {
		return fmt.Errorf("link notice tag: %w", err)
	}
	return nil
}

// ListTags returns the tags attached to a notice.
func (r *NoticeRepository) ListTags(ctx context.Context, noticeID string) ([]models.Tag, error) {
	const query = `SELECT t.id, t.name FROM tags t
JOIN notice_tags nt ON nt.tag_id = t.id WHERE nt.notice_id = $1 ORDER BY t.name ASC`
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, query, noticeID); err != nil {
		return nil, fmt.Errorf("list notice tags: %w", err)
	}
	return tags, nil
}

// ListAllTags returns every tag ordered by name.
func (r *NoticeRepository) ListAllTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.SelectContext(ctx, &tags, `SELECT id, name FROM tags ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// RecordView counts a view at most once per (user, notice). The view
// row insert and counter increment share a transaction so the counter
// never drifts from the dedup table. Returns whether the counter moved.
func (r *NoticeRepository) RecordView(ctx context.Context, noticeID, userID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin view tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insert = `INSERT INTO notice_views (notice_id, user_id, viewed_at) VALUES ($1, $2, $3)
ON CONFLICT (notice_id, user_id) DO NOTHING`
	result, err := tx.ExecContext(ctx, insert, noticeID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record notice view: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check view rows: %w", err)
	}
	if rows == 0 {
		return false, tx.Commit()
	}
	if _, err := tx.ExecContext(ctx, `UPDATE notices SET view_count = view_count + 1 WHERE id = $1`, noticeID); err != nil {
		return false, fmt.Errorf("increment view count: %w", err)
	}
	return true, tx.Commit()
}
