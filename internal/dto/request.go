package dto

import (
	"time"

	"github.com/bellsnotice/board-api/internal/models"
)

// MediaLinkItem is an externally hosted attachment submitted with a
// request or a notice.
type MediaLinkItem struct {
	MediaType string `json:"media_type" validate:"required,oneof=image video file"`
	URL       string `json:"url" validate:"required"`
	FileName  string `json:"file_name"`
}

// CreateRequestForm is the multipart form payload for request intake.
// File uploads arrive alongside as multipart file parts.
type CreateRequestForm struct {
	RepID       string `form:"rep_id" validate:"required"`
	Title       string `form:"title" validate:"required"`
	Description string `form:"description" validate:"required"`
	// Links is a JSON-encoded array of MediaLinkItem in the form field
	// "links"; decoded by the handler before reaching the service.
	Links []MediaLinkItem `form:"-"`
}

// FailedMediaItem reports an attachment that could not be stored. The
// request itself still succeeds; the caller may retry the named items.
type FailedMediaItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// CreateRequestResponse returns the created request plus any media items
// that failed to attach.
type CreateRequestResponse struct {
	Request     models.NoticeRequest  `json:"request"`
	Media       []models.RequestMedia `json:"media"`
	FailedMedia []FailedMediaItem     `json:"failed_media,omitempty"`
}

// RequesterInfo is the enrichment attached to inbox entries.
type RequesterInfo struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// RequestView is a request enriched for the rep's inbox.
type RequestView struct {
	models.NoticeRequest
	Requester RequesterInfo         `json:"requester"`
	Media     []models.RequestMedia `json:"media"`
}

// RequestInbox partitions a rep's requests into pending and resolved.
type RequestInbox struct {
	Pending  []RequestView `json:"pending"`
	Resolved []RequestView `json:"resolved"`
}

// DecisionRequest carries the rep's accept/reject decision.
type DecisionRequest struct {
	Action  string `json:"action" validate:"required,oneof=accept reject"`
	Message string `json:"message"`
}

// DecisionResponse reports the decided request and, on acceptance, the
// materialized notice.
type DecisionResponse struct {
	Request models.NoticeRequest `json:"request"`
	Notice  *models.Notice       `json:"notice,omitempty"`
}

// HistoryEntry is a requester-side view of a submitted request.
type HistoryEntry struct {
	models.NoticeRequest
	RepDisplayName string     `json:"rep_display_name"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}
