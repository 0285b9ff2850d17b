package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/middleware"
	"github.com/bellsnotice/board-api/internal/models"
	"github.com/bellsnotice/board-api/internal/service"
)

type fakeNoticeSrv struct {
	lastQuery  dto.NoticeListQuery
	lastFlags  dto.NoticeFlagsRequest
	lastCreate dto.CreateNoticeForm
	viewCount  bool
}

func (f *fakeNoticeSrv) CreateNotice(_ context.Context, _ *models.JWTClaims, form dto.CreateNoticeForm, _ []*multipart.FileHeader) (*dto.CreateNoticeResponse, error) {
	f.lastCreate = form
	return &dto.CreateNoticeResponse{Notice: models.Notice{ID: "notice-1", Title: form.Title}}, nil
}

func (f *fakeNoticeSrv) List(_ context.Context, query dto.NoticeListQuery) ([]dto.NoticeListItem, models.Pagination, error) {
	f.lastQuery = query
	return []dto.NoticeListItem{{Notice: models.Notice{ID: "notice-1"}}}, models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: 1}, nil
}

func (f *fakeNoticeSrv) Detail(context.Context, *models.JWTClaims, string) (*dto.NoticeDetail, error) {
	return &dto.NoticeDetail{Notice: models.Notice{ID: "notice-1"}}, nil
}

func (f *fakeNoticeSrv) RegisterView(context.Context, *models.JWTClaims, string) (bool, error) {
	return f.viewCount, nil
}

func (f *fakeNoticeSrv) Update(_ context.Context, _ *models.JWTClaims, noticeID string, req dto.UpdateNoticeRequest) (*models.Notice, error) {
	return &models.Notice{ID: noticeID, Title: req.Title}, nil
}

func (f *fakeNoticeSrv) UpdateFlags(_ context.Context, _ *models.JWTClaims, noticeID string, req dto.NoticeFlagsRequest) (*models.Notice, error) {
	f.lastFlags = req
	return &models.Notice{ID: noticeID}, nil
}

func (f *fakeNoticeSrv) Delete(context.Context, *models.JWTClaims, string) error {
	return nil
}

func (f *fakeNoticeSrv) Tags(context.Context) ([]models.Tag, error) {
	return []models.Tag{{ID: "tag-1", Name: "exams"}}, nil
}

type fakeExporterSrv struct {
	lastFormat service.ExportFormat
}

func (f *fakeExporterSrv) Generate(_ context.Context, _ *models.JWTClaims, format service.ExportFormat) (*service.ExportResult, error) {
	f.lastFormat = format
	return &service.ExportResult{FileName: "notices.csv", ContentType: "text/csv", Payload: []byte("id,title\n")}, nil
}

func TestNoticeHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeNoticeSrv{}
	handler := NewNoticeHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/notices?important=true&tag=tag-1&q=exam&page=2&page_size=5", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastQuery.Important)
	assert.True(t, *srv.lastQuery.Important)
	assert.Nil(t, srv.lastQuery.Featured)
	assert.Equal(t, "tag-1", srv.lastQuery.TagID)
	assert.Equal(t, "exam", srv.lastQuery.Search)
	assert.Equal(t, 2, srv.lastQuery.Page)
	assert.Equal(t, 5, srv.lastQuery.PageSize)

	var envelope struct {
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestNoticeHandlerAdminListIncludesExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeNoticeSrv{}
	handler := NewNoticeHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/notices", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.AdminList(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, srv.lastQuery.IncludeExpired)
}

func TestNoticeHandlerListRejectsBadBool(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNoticeHandler(&fakeNoticeSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/notices?important=banana", nil)

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoticeHandlerCreateParsesTagsAndExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeNoticeSrv{}
	handler := NewNoticeHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, contentType := multipartRequestBody(t, map[string]string{
		"title":       "Library hours",
		"description": "Extended during exams",
		"tags":        `["library","exams"]`,
		"expires_at":  "2026-10-01T00:00:00Z",
	})
	c.Request = httptest.NewRequest(http.MethodPost, "/notices", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rep-1", Role: models.RoleRep})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"library", "exams"}, srv.lastCreate.Tags)
	require.NotNil(t, srv.lastCreate.ExpiresAt)
	assert.Equal(t, 2026, srv.lastCreate.ExpiresAt.Year())
}

func TestNoticeHandlerCreateRejectsBadExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNoticeHandler(&fakeNoticeSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, contentType := multipartRequestBody(t, map[string]string{
		"title":       "t",
		"description": "d",
		"expires_at":  "next tuesday",
	})
	c.Request = httptest.NewRequest(http.MethodPost, "/notices", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rep-1", Role: models.RoleRep})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoticeHandlerViewReportsCounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewNoticeHandler(&fakeNoticeSrv{viewCount: true}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/notices/notice-1/view", nil)
	c.Params = gin.Params{{Key: "id", Value: "notice-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.View(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Data["counted"])
}

func TestNoticeHandlerFlagsPartialPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeNoticeSrv{}
	handler := NewNoticeHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPatch, "/notices/notice-1/flags", strings.NewReader(`{"is_featured":true}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "notice-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Flags(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFlags.IsFeatured)
	assert.True(t, *srv.lastFlags.IsFeatured)
	assert.Nil(t, srv.lastFlags.IsImportant)
}

func TestNoticeHandlerExportSetsDisposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &fakeExporterSrv{}
	handler := NewNoticeHandler(&fakeNoticeSrv{}, exporter)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/notices/export?format=CSV", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Export(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.lastFormat)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notices.csv")
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}
