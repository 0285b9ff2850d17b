package models

import "time"

// Comment is freeform text tied to a notice and an author. ParentID is a
// nullable self-reference; the service layer only allows one level of
// nesting even though the shape permits arbitrary depth.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	NoticeID  string    `db:"notice_id" json:"notice_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	ParentID  *string   `db:"parent_id" json:"parent_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
