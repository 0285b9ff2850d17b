package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/response"
)

type requestWorkflow interface {
	CreateRequest(ctx context.Context, claims *models.JWTClaims, form dto.CreateRequestForm, files []*multipart.FileHeader) (*dto.CreateRequestResponse, error)
	Inbox(ctx context.Context, claims *models.JWTClaims) (*dto.RequestInbox, error)
	Decide(ctx context.Context, claims *models.JWTClaims, requestID string, req dto.DecisionRequest) (*dto.DecisionResponse, error)
	History(ctx context.Context, claims *models.JWTClaims) ([]dto.HistoryEntry, error)
	DeleteRequest(ctx context.Context, claims *models.JWTClaims, requestID string) error
}

// RequestHandler serves the notice-request workflow endpoints.
type RequestHandler struct {
	service requestWorkflow
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestWorkflow) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Submit a notice request to a rep
// @Tags Requests
// @Accept multipart/form-data
// @Produce json
// @Param rep_id formData string true "Target rep"
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param links formData string false "JSON array of media links"
// @Param files formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.CreateRequestForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	if raw := c.PostForm("links"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Links); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "links must be a JSON array"))
			return
		}
	}

	var files []*multipart.FileHeader
	if multipartForm, err := c.MultipartForm(); err == nil && multipartForm != nil {
		files = multipartForm.File["files"]
	}

	resp, err := h.service.CreateRequest(c.Request.Context(), claims, form, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil)
}

// Inbox godoc
// @Summary Rep inbox of pending and resolved requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/inbox [get]
func (h *RequestHandler) Inbox(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	inbox, err := h.service.Inbox(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, inbox, nil)
}

// Decide godoc
// @Summary Accept or reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DecisionRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/decision [post]
func (h *RequestHandler) Decide(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	resp, err := h.service.Decide(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// History godoc
// @Summary The caller's own submitted requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/mine [get]
func (h *RequestHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	entries, err := h.service.History(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Delete godoc
// @Summary Delete a request and its media
// @Tags Requests
// @Param id path string true "Request ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /requests/{id} [delete]
func (h *RequestHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteRequest(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
