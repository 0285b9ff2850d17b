package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleRep        UserRole = "REP"
	RoleStudent    UserRole = "STUDENT"
)

// User represents an application account stored in the users table.
// Reps publish notices and decide on requests; students submit requests.
type User struct {
	ID                    string     `db:"id" json:"id"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	DisplayName           string     `db:"display_name" json:"display_name"`
	Role                  UserRole   `db:"role" json:"role"`
	Active                bool       `db:"active" json:"active"`
	AvatarURL             *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	ReadReceiptVisibility bool       `db:"read_receipt_visibility" json:"read_receipt_visibility"`
	LastLogin             *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
