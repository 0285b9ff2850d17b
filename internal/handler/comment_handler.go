package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/response"
)

type commentThread interface {
	AddComment(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.CreateCommentRequest) (*dto.CommentView, error)
	Thread(ctx context.Context, noticeID string) ([]dto.CommentView, error)
	DeleteComment(ctx context.Context, claims *models.JWTClaims, commentID string) error
}

// CommentHandler serves comment endpoints scoped to a notice.
type CommentHandler struct {
	service commentThread
}

func NewCommentHandler(service commentThread) *CommentHandler {
	return &CommentHandler{service: service}
}

// Create godoc
// @Summary Comment on a notice
// @Tags Comments
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body dto.CreateCommentRequest true "Comment"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id}/comments [post]
func (h *CommentHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid comment payload"))
		return
	}
	comment, err := h.service.AddComment(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, comment, nil)
}

// List godoc
// @Summary Threaded comments for a notice
// @Tags Comments
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Router /notices/{id}/comments [get]
func (h *CommentHandler) List(c *gin.Context) {
	thread, err := h.service.Thread(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, thread, nil)
}

// Delete godoc
// @Summary Delete a comment and its replies
// @Tags Comments
// @Param id path string true "Comment ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteComment(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
