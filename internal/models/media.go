package models

import "time"

// MediaKind classifies an attachment.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
	MediaKindFile  MediaKind = "file"
)

// RequestMedia is an attachment bound to a NoticeRequest. The locator is
// either the public URL of an uploaded object or an external link,
// distinguished by IsLink.
type RequestMedia struct {
	ID        string    `db:"id" json:"id"`
	RequestID string    `db:"request_id" json:"request_id"`
	MediaType MediaKind `db:"media_type" json:"media_type"`
	MediaURL  string    `db:"media_url" json:"media_url"`
	IsLink    bool      `db:"is_link" json:"is_link"`
	FileName  *string   `db:"file_name" json:"file_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NoticeMedia has the same shape as RequestMedia but is scoped to a
// published Notice. Approval copies request media rows into this table.
type NoticeMedia struct {
	ID        string    `db:"id" json:"id"`
	NoticeID  string    `db:"notice_id" json:"notice_id"`
	MediaType MediaKind `db:"media_type" json:"media_type"`
	MediaURL  string    `db:"media_url" json:"media_url"`
	IsLink    bool      `db:"is_link" json:"is_link"`
	FileName  *string   `db:"file_name" json:"file_name,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
