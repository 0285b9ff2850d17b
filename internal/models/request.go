package models

import "time"

// RequestStatus captures the notice-request workflow states.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Default response messages applied when the deciding rep leaves the
// message blank.
const (
	DefaultApprovalMessage  = "Your notice has been approved and posted."
	DefaultRejectionMessage = "Your notice request has been rejected."
)

// NoticeRequest is a submission awaiting a rep's accept/reject decision.
// Status transitions exactly once, pending to approved or rejected;
// ResponseMessage and RespondedAt are set together on that transition,
// and NoticeID is set if and only if the request was approved.
type NoticeRequest struct {
	ID              string        `db:"id" json:"id"`
	RequesterID     string        `db:"requester_id" json:"requester_id"`
	RepID           string        `db:"rep_id" json:"rep_id"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	Status          RequestStatus `db:"status" json:"status"`
	ResponseMessage *string       `db:"response_message" json:"response_message,omitempty"`
	RespondedAt     *time.Time    `db:"responded_at" json:"responded_at,omitempty"`
	NoticeID        *string       `db:"notice_id" json:"notice_id,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	RepID       string
	RequesterID string
	Status      []RequestStatus
	Limit       int
	Offset      int
}
