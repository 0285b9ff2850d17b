package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	"github.com/bellsnotice/board-api/internal/service"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/response"
)

type noticeBoard interface {
	CreateNotice(ctx context.Context, claims *models.JWTClaims, form dto.CreateNoticeForm, files []*multipart.FileHeader) (*dto.CreateNoticeResponse, error)
	List(ctx context.Context, query dto.NoticeListQuery) ([]dto.NoticeListItem, models.Pagination, error)
	Detail(ctx context.Context, claims *models.JWTClaims, noticeID string) (*dto.NoticeDetail, error)
	RegisterView(ctx context.Context, claims *models.JWTClaims, noticeID string) (bool, error)
	Update(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.UpdateNoticeRequest) (*models.Notice, error)
	UpdateFlags(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.NoticeFlagsRequest) (*models.Notice, error)
	Delete(ctx context.Context, claims *models.JWTClaims, noticeID string) error
	Tags(ctx context.Context) ([]models.Tag, error)
}

type boardExporter interface {
	Generate(ctx context.Context, claims *models.JWTClaims, format service.ExportFormat) (*service.ExportResult, error)
}

// NoticeHandler serves the public board endpoints.
type NoticeHandler struct {
	service  noticeBoard
	exporter boardExporter
}

// NewNoticeHandler constructs the handler.
func NewNoticeHandler(service noticeBoard, exporter boardExporter) *NoticeHandler {
	return &NoticeHandler{service: service, exporter: exporter}
}

// Create godoc
// @Summary Post a notice directly (rep/admin only)
// @Tags Notices
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string true "Description"
// @Param is_important formData boolean false "Important flag"
// @Param expires_at formData string false "RFC3339 expiry"
// @Param links formData string false "JSON array of media links"
// @Param tags formData string false "JSON array of tag names"
// @Param files formData file false "Attachments"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /notices [post]
func (h *NoticeHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var form dto.CreateNoticeForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid notice payload"))
		return
	}
	if raw := c.PostForm("links"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Links); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "links must be a JSON array"))
			return
		}
	}
	if raw := c.PostForm("tags"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Tags); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "tags must be a JSON array"))
			return
		}
	}
	if raw := c.PostForm("expires_at"); raw != "" {
		expires, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "expires_at must be RFC3339"))
			return
		}
		form.ExpiresAt = &expires
	}

	var files []*multipart.FileHeader
	if multipartForm, err := c.MultipartForm(); err == nil && multipartForm != nil {
		files = multipartForm.File["files"]
	}

	resp, err := h.service.CreateNotice(c.Request.Context(), claims, form, files)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, resp, nil)
}

// List godoc
// @Summary List board notices
// @Tags Notices
// @Produce json
// @Param important query boolean false "Important only"
// @Param featured query boolean false "Featured only"
// @Param tag query string false "Tag ID"
// @Param q query string false "Title/description search"
// @Param authorId query string false "Author ID"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	query, err := h.bindListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &pagination)
}

// AdminList godoc
// @Summary List all notices, expired included
// @Tags Notices
// @Produce json
// @Param q query string false "Title/description search"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/notices [get]
func (h *NoticeHandler) AdminList(c *gin.Context) {
	query, err := h.bindListQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	query.IncludeExpired = true

	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &pagination)
}

func (h *NoticeHandler) bindListQuery(c *gin.Context) (dto.NoticeListQuery, error) {
	query := dto.NoticeListQuery{
		TagID:    c.Query("tag"),
		Search:   c.Query("q"),
		AuthorID: c.Query("authorId"),
	}
	if raw := c.Query("important"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "important must be a boolean")
		}
		query.Important = &v
	}
	if raw := c.Query("featured"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "featured must be a boolean")
		}
		query.Featured = &v
	}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return query, nil
}

// Detail godoc
// @Summary Full notice view
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Router /notices/{id} [get]
func (h *NoticeHandler) Detail(c *gin.Context) {
	detail, err := h.service.Detail(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// View godoc
// @Summary Record a view on a notice
// @Tags Notices
// @Produce json
// @Param id path string true "Notice ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id}/view [post]
func (h *NoticeHandler) View(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	counted, err := h.service.RegisterView(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"counted": counted}, nil)
}

// Update godoc
// @Summary Edit a notice
// @Tags Notices
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body dto.UpdateNoticeRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id} [put]
func (h *NoticeHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid notice payload"))
		return
	}
	notice, err := h.service.Update(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Flags godoc
// @Summary Toggle moderation flags on a notice
// @Tags Notices
// @Accept json
// @Produce json
// @Param id path string true "Notice ID"
// @Param payload body dto.NoticeFlagsRequest true "Flags"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /notices/{id}/flags [patch]
func (h *NoticeHandler) Flags(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.NoticeFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flags payload"))
		return
	}
	notice, err := h.service.UpdateFlags(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Delete godoc
// @Summary Delete a notice and its dependents
// @Tags Notices
// @Param id path string true "Notice ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Router /notices/{id} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Tags godoc
// @Summary List all known tags
// @Tags Notices
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /notices/tags [get]
func (h *NoticeHandler) Tags(c *gin.Context) {
	tags, err := h.service.Tags(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tags, nil)
}

// Export godoc
// @Summary Export the board as CSV or PDF
// @Tags Notices
// @Produce octet-stream
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /admin/notices/export [get]
func (h *NoticeHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export is not configured"))
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	result, err := h.exporter.Generate(c.Request.Context(), claims, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
