package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type reactionStore interface {
	ToggleReaction(ctx context.Context, noticeID, userID, reactionType string) (bool, error)
	CountReactions(ctx context.Context, noticeID string) (int, error)
	ToggleSaved(ctx context.Context, noticeID, userID string) (bool, error)
	ListSavedNotices(ctx context.Context, userID string) ([]models.Notice, error)
}

// ToggleResult reports the post-toggle state.
type ToggleResult struct {
	Active bool `json:"active"`
	Count  int  `json:"count"`
}

// ReactionService toggles reactions and saved-notice bookmarks.
type ReactionService struct {
	repo    reactionStore
	notices noticeGetter
	logger  *zap.Logger
}

// NewReactionService constructs the service.
func NewReactionService(repo reactionStore, notices noticeGetter, logger *zap.Logger) *ReactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReactionService{repo: repo, notices: notices, logger: logger}
}

// ToggleReaction flips the caller's like on a notice and returns the
// resulting state with the fresh count.
func (s *ReactionService) ToggleReaction(ctx context.Context, claims *models.JWTClaims, noticeID string) (*ToggleResult, error) {
	if err := s.ensureNotice(ctx, noticeID); err != nil {
		return nil, err
	}
	active, err := s.repo.ToggleReaction(ctx, noticeID, claims.UserID, models.ReactionTypeLike)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle reaction")
	}
	count, err := s.repo.CountReactions(ctx, noticeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reactions")
	}
	return &ToggleResult{Active: active, Count: count}, nil
}

// ToggleSaved flips the caller's bookmark on a notice.
func (s *ReactionService) ToggleSaved(ctx context.Context, claims *models.JWTClaims, noticeID string) (*ToggleResult, error) {
	if err := s.ensureNotice(ctx, noticeID); err != nil {
		return nil, err
	}
	active, err := s.repo.ToggleSaved(ctx, noticeID, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle saved notice")
	}
	return &ToggleResult{Active: active}, nil
}

// SavedNotices lists the caller's bookmarked notices.
func (s *ReactionService) SavedNotices(ctx context.Context, claims *models.JWTClaims) ([]models.Notice, error) {
	notices, err := s.repo.ListSavedNotices(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list saved notices")
	}
	return notices, nil
}

func (s *ReactionService) ensureNotice(ctx context.Context, noticeID string) error {
	if _, err := s.notices.GetByID(ctx, noticeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	return nil
}
