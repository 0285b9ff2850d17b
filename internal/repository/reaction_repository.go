package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bellsnotice/board-api/internal/models"
)

// ReactionRepository persists reactions and saved-notice bookmarks.
type ReactionRepository struct {
	db *sqlx.DB
}

// NewReactionRepository constructs the repository.
func NewReactionRepository(db *sqlx.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// ToggleReaction adds the user's reaction if absent, removes it if
// present. Returns true when the reaction exists after the call.
func (r *ReactionRepository) ToggleReaction(ctx context.Context, noticeID, userID, reactionType string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE notice_id = $1 AND user_id = $2`, noticeID, userID)
	if err != nil {
		return false, fmt.Errorf("remove reaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check reaction rows: %w", err)
	}
	if rows > 0 {
		return false, nil
	}
	reaction := models.Reaction{
		ID:           uuid.NewString(),
		NoticeID:     noticeID,
		UserID:       userID,
		ReactionType: reactionType,
		CreatedAt:    time.Now().UTC(),
	}
	const query = `INSERT INTO reactions (id, notice_id, user_id, reaction_type, created_at)
VALUES (:id, :notice_id, :user_id, :reaction_type, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, &reaction); err != nil {
		return false, fmt.Errorf("create reaction: %w", err)
	}
	return true, nil
}

// CountReactions returns the reaction count for a notice.
func (r *ReactionRepository) CountReactions(ctx context.Context, noticeID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reactions WHERE notice_id = $1`, noticeID); err != nil {
		return 0, fmt.Errorf("count reactions: %w", err)
	}
	return total, nil
}

// HasReacted reports whether the user has reacted to the notice.
func (r *ReactionRepository) HasReacted(ctx context.Context, noticeID, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM reactions WHERE notice_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, noticeID, userID); err != nil {
		return false, fmt.Errorf("check reaction: %w", err)
	}
	return exists, nil
}

// ToggleSaved bookmarks the notice for the user, or removes the
// bookmark if it already exists. Returns true when saved after the call.
func (r *ReactionRepository) ToggleSaved(ctx context.Context, noticeID, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM saved_notices WHERE notice_id = $1 AND user_id = $2`, noticeID, userID)
	if err != nil {
		return false, fmt.Errorf("remove saved notice: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check saved rows: %w", err)
	}
	if rows > 0 {
		return false, nil
	}
	saved := models.SavedNotice{
		ID:        uuid.NewString(),
		UserID:    userID,
		NoticeID:  noticeID,
		CreatedAt: time.Now().UTC(),
	}
	const query = `INSERT INTO saved_notices (id, user_id, notice_id, created_at)
VALUES (:id, :user_id, :notice_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, &saved); err != nil {
		return false, fmt.Errorf("create saved notice: %w", err)
	}
	return true, nil
}

// HasSaved reports whether the user bookmarked the notice.
func (r *ReactionRepository) HasSaved(ctx context.Context, noticeID, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM saved_notices WHERE notice_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, noticeID, userID); err != nil {
		return false, fmt.Errorf("check saved notice: %w", err)
	}
	return exists, nil
}

// ListSavedNotices returns the notices a user bookmarked, most recently
// saved first.
func (r *ReactionRepository) ListSavedNotices(ctx context.Context, userID string) ([]models.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices
JOIN saved_notices sn ON sn.notice_id = notices.id
WHERE sn.user_id = $1 ORDER BY sn.created_at DESC`, qualifiedNoticeColumns())
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, userID); err != nil {
		return nil, fmt.Errorf("list saved notices: %w", err)
	}
	return notices, nil
}

func qualifiedNoticeColumns() string {
	return `notices.id, notices.title, notices.description, notices.author_id, notices.view_count,
notices.is_important, notices.is_featured, notices.expires_at, notices.created_at, notices.updated_at`
}
