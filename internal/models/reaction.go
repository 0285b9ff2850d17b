package models

import "time"

// ReactionTypeLike is the only reaction the board currently supports.
const ReactionTypeLike = "like"

// Reaction records a user's reaction on a notice, unique per (notice, user).
type Reaction struct {
	ID           string    `db:"id" json:"id"`
	NoticeID     string    `db:"notice_id" json:"notice_id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ReactionType string    `db:"reaction_type" json:"reaction_type"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SavedNotice is a user's bookmark on a notice.
type SavedNotice struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	NoticeID  string    `db:"notice_id" json:"notice_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
