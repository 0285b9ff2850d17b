package dto

import "github.com/bellsnotice/board-api/internal/models"

// UpdateProfileForm edits the caller's own profile. The avatar arrives
// as an optional multipart file part.
type UpdateProfileForm struct {
	DisplayName           string `form:"display_name" validate:"required"`
	ReadReceiptVisibility *bool  `form:"-"`
}

// RepInfo is a directory entry for the request intake form.
type RepInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// PublicProfile is a user's public-facing profile view.
type PublicProfile struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Role        models.UserRole `json:"role"`
	AvatarURL   *string         `json:"avatar_url,omitempty"`
}
