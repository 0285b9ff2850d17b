package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bellsnotice/board-api/internal/models"
	"github.com/bellsnotice/board-api/internal/service"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/response"
)

type engagementToggler interface {
	ToggleReaction(ctx context.Context, claims *models.JWTClaims, noticeID string) (*service.ToggleResult, error)
	ToggleSaved(ctx context.Context, claims *models.JWTClaims, noticeID string) (*service.ToggleResult, error)
	SavedNotices(ctx context.Context, claims *models.JWTClaims) ([]models.Notice, error)
}

// ReactionHandler serves like and save toggles.
type ReactionHandler struct {
	service engagementToggler
}

func NewReactionHandler(service engagementToggler) *ReactionHandler {
	return &ReactionHandler{service: service}
}

// ToggleReaction godoc
// @Summary Toggle a like on a notice
// @Tags Reactions
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id}/reaction [put]
func (h *ReactionHandler) ToggleReaction(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.ToggleReaction(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ToggleSaved godoc
// @Summary Toggle a notice in the caller's saved list
// @Tags Reactions
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id}/save [put]
func (h *ReactionHandler) ToggleSaved(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.ToggleSaved(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Saved godoc
// @Summary List the caller's saved notices
// @Tags Reactions
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /saved [get]
func (h *ReactionHandler) Saved(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	notices, err := h.service.SavedNotices(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notices, nil)
}
