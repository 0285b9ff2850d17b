package dto

import (
	"time"

	"github.com/bellsnotice/board-api/internal/models"
)

// CreateNoticeForm is the multipart payload for direct notice creation
// by a rep or admin. Uploaded files arrive as multipart parts; Links and
// Tags are JSON-encoded form fields decoded by the handler.
type CreateNoticeForm struct {
	Title       string          `form:"title" validate:"required"`
	Description string          `form:"description" validate:"required"`
	IsImportant bool            `form:"is_important"`
	ExpiresAt   *time.Time      `form:"-"`
	Links       []MediaLinkItem `form:"-"`
	Tags        []string        `form:"-"`
}

// UpdateNoticeRequest edits mutable notice fields.
type UpdateNoticeRequest struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description" validate:"required"`
	IsImportant bool       `json:"is_important"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// NoticeFlagsRequest toggles moderation flags; nil fields are unchanged.
type NoticeFlagsRequest struct {
	IsImportant *bool `json:"is_important"`
	IsFeatured  *bool `json:"is_featured"`
}

// NoticeListQuery captures public listing filters.
type NoticeListQuery struct {
	Important *bool
	Featured  *bool
	TagID     string
	Search    string
	AuthorID  string
	Page      int
	PageSize  int
	// IncludeExpired is only settable through the admin listing.
	IncludeExpired bool
}

// AuthorInfo enriches notices with their author's public identity.
type AuthorInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// NoticeListItem is a notice enriched for list rendering.
type NoticeListItem struct {
	models.Notice
	Author AuthorInfo `json:"author"`
	Tags   []string   `json:"tags"`
}

// NoticeDetail is the full notice view.
type NoticeDetail struct {
	models.Notice
	Author        AuthorInfo           `json:"author"`
	Media         []models.NoticeMedia `json:"media"`
	Tags          []models.Tag         `json:"tags"`
	ReactionCount int                  `json:"reaction_count"`
	CommentCount  int                  `json:"comment_count"`
	HasReacted    bool                 `json:"has_reacted"`
	HasSaved      bool                 `json:"has_saved"`
}

// CreateNoticeResponse mirrors CreateRequestResponse for direct posting.
type CreateNoticeResponse struct {
	Notice      models.Notice        `json:"notice"`
	Media       []models.NoticeMedia `json:"media"`
	Tags        []models.Tag         `json:"tags"`
	FailedMedia []FailedMediaItem    `json:"failed_media,omitempty"`
}
