package models

import "time"

// Notice is a published, publicly visible board item.
type Notice struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	AuthorID    string     `db:"author_id" json:"author_id"`
	ViewCount   int        `db:"view_count" json:"view_count"`
	IsImportant bool       `db:"is_important" json:"is_important"`
	IsFeatured  bool       `db:"is_featured" json:"is_featured"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// NoticeFilter constrains public notice listings.
type NoticeFilter struct {
	Important      *bool
	Featured       *bool
	TagID          string
	Search         string
	AuthorID       string
	IncludeExpired bool
	Page           int
	PageSize       int
}

// Tag is a free-form label attached to notices, unique by name.
type Tag struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
