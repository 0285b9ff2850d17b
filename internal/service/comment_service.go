package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type commentStore interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListByNotice(ctx context.Context, noticeID string) ([]models.Comment, error)
	Delete(ctx context.Context, id string) error
}

type noticeGetter interface {
	GetByID(ctx context.Context, id string) (*models.Notice, error)
}

// CommentService manages notice comments with one level of replies.
type CommentService struct {
	repo      commentStore
	notices   noticeGetter
	users     userDirectory
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCommentService constructs the service.
func NewCommentService(repo commentStore, notices noticeGetter, users userDirectory, validate *validator.Validate, logger *zap.Logger) *CommentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CommentService{repo: repo, notices: notices, users: users, validator: validate, logger: logger}
}

// AddComment posts a comment or a reply. Replies to replies are
// rejected: a parent must itself be a top-level comment on the same
// notice.
func (s *CommentService) AddComment(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.CreateCommentRequest) (*dto.CommentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}

	if _, err := s.notices.GetByID(ctx, noticeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}

	if req.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "parent comment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load parent comment")
		}
		if parent.NoticeID != noticeID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "parent comment belongs to another notice")
		}
		if parent.ParentID != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "replies cannot be nested further")
		}
	}

	comment := &models.Comment{
		NoticeID: noticeID,
		UserID:   claims.UserID,
		Content:  strings.TrimSpace(req.Content),
		ParentID: req.ParentID,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	return &dto.CommentView{
		Comment: *comment,
		Author:  dto.AuthorInfo{ID: claims.UserID, DisplayName: claims.DisplayName},
	}, nil
}

// Thread returns the notice's comments as top-level entries with their
// replies folded underneath, both oldest first.
func (s *CommentService) Thread(ctx context.Context, noticeID string) ([]dto.CommentView, error) {
	comments, err := s.repo.ListByNotice(ctx, noticeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}

	authorIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment authors")
	}

	authorInfo := func(userID string) dto.AuthorInfo {
		if author, ok := authors[userID]; ok {
			return dto.AuthorInfo{ID: author.ID, DisplayName: author.DisplayName, AvatarURL: author.AvatarURL}
		}
		return dto.AuthorInfo{ID: userID, DisplayName: "Anonymous"}
	}

	thread := make([]dto.CommentView, 0, len(comments))
	index := make(map[string]int, len(comments))
	for _, c := range comments {
		if c.ParentID != nil {
			continue
		}
		thread = append(thread, dto.CommentView{Comment: c, Author: authorInfo(c.UserID)})
		index[c.ID] = len(thread) - 1
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		pos, ok := index[*c.ParentID]
		if !ok {
			// Parent vanished mid-listing; surface the reply at top level.
			thread = append(thread, dto.CommentView{Comment: c, Author: authorInfo(c.UserID)})
			continue
		}
		thread[pos].Replies = append(thread[pos].Replies, dto.CommentView{Comment: c, Author: authorInfo(c.UserID)})
	}
	return thread, nil
}

// DeleteComment removes a comment (and any replies). The comment's
// author, the notice's author and admins may delete.
func (s *CommentService) DeleteComment(ctx context.Context, claims *models.JWTClaims, commentID string) error {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load comment")
	}
	allowed := comment.UserID == claims.UserID || isAdmin(claims.Role)
	if !allowed {
		if notice, err := s.notices.GetByID(ctx, comment.NoticeID); err == nil {
			allowed = notice.AuthorID == claims.UserID
		}
	}
	if !allowed {
		return appErrors.Clone(appErrors.ErrForbidden, "only the comment or notice author may delete it")
	}
	if err := s.repo.Delete(ctx, commentID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete comment")
	}
	return nil
}
