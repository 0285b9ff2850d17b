package dto

import "github.com/bellsnotice/board-api/internal/models"

// CreateCommentRequest posts a comment or a single-level reply.
type CreateCommentRequest struct {
	Content  string  `json:"content" validate:"required"`
	ParentID *string `json:"parent_id"`
}

// CommentView is a comment enriched with its author's identity.
type CommentView struct {
	models.Comment
	Author  AuthorInfo    `json:"author"`
	Replies []CommentView `json:"replies,omitempty"`
}
