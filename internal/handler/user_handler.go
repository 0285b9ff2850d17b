package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/response"
)

type userProfiles interface {
	Profile(ctx context.Context, claims *models.JWTClaims) (*models.User, error)
	UpdateProfile(ctx context.Context, claims *models.JWTClaims, form dto.UpdateProfileForm, avatar *multipart.FileHeader) (*models.User, error)
	Reps(ctx context.Context) ([]dto.RepInfo, error)
	PublicProfile(ctx context.Context, userID string) (*dto.PublicProfile, error)
}

// UserHandler serves profile and directory endpoints.
type UserHandler struct {
	service userProfiles
}

func NewUserHandler(service userProfiles) *UserHandler {
	return &UserHandler{service: service}
}

// Me godoc
// @Summary Current user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	user, err := h.service.Profile(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// UpdateMe godoc
// @Summary Update the caller's profile
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Param display_name formData string true "Display name"
// @Param read_receipt_visibility formData boolean false "Read receipt visibility"
// @Param avatar formData file false "Avatar image"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var form dto.UpdateProfileForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid profile payload"))
		return
	}
	if raw := c.PostForm("read_receipt_visibility"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "read_receipt_visibility must be a boolean"))
			return
		}
		form.ReadReceiptVisibility = &v
	}
	avatar, err := c.FormFile("avatar")
	if err != nil {
		avatar = nil
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), claims, form, avatar)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// Reps godoc
// @Summary List active class reps for the request intake form
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /users/reps [get]
func (h *UserHandler) Reps(c *gin.Context) {
	reps, err := h.service.Reps(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reps, nil)
}

// Profile godoc
// @Summary Public profile of a user
// @Tags Users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /users/{id} [get]
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.service.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
