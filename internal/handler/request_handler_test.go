package handler

import (
	"bytes"
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
)

type fakeRequestSrv struct {
	createResp *dto.CreateRequestResponse
	createErr  error
	lastForm   dto.CreateRequestForm
	lastFiles  int
	decideResp *dto.DecisionResponse
	decideErr  error
	lastDecide struct {
		requestID string
		req       dto.DecisionRequest
	}
	deleted []string
}

func (f *fakeRequestSrv) CreateRequest(_ context.Context, _ *models.JWTClaims, form dto.CreateRequestForm, files []*multipart.FileHeader) (*dto.CreateRequestResponse, error) {
	f.lastForm = form
	f.lastFiles = len(files)
	return f.createResp, f.createErr
}

func (f *fakeRequestSrv) Inbox(context.Context, *models.JWTClaims) (*dto.RequestInbox, error) {
	return &dto.RequestInbox{
		Pending:  []dto.RequestView{{NoticeRequest: models.NoticeRequest{ID: "req-1"}}},
		Resolved: []dto.RequestView{},
	}, nil
}

func (f *fakeRequestSrv) Decide(_ context.Context, _ *models.JWTClaims, requestID string, req dto.DecisionRequest) (*dto.DecisionResponse, error) {
	f.lastDecide.requestID = requestID
	f.lastDecide.req = req
	return f.decideResp, f.decideErr
}

func (f *fakeRequestSrv) History(context.Context, *models.JWTClaims) ([]dto.HistoryEntry, error) {
	return []dto.HistoryEntry{}, nil
}

func (f *fakeRequestSrv) DeleteRequest(_ context.Context, _ *models.JWTClaims, requestID string) error {
	f.deleted = append(f.deleted, requestID)
	return nil
}

func multipartRequestBody(t *testing.T, fields map[string]string, fileNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, name := range fileNames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestRequestHandlerCreateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, contentType := multipartRequestBody(t, map[string]string{"rep_id": "rep-1", "title": "t", "description": "d"})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", body)
	c.Request.Header.Set("Content-Type", contentType)

	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequestHandlerCreateParsesLinksAndFiles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeRequestSrv{createResp: &dto.CreateRequestResponse{Request: models.NoticeRequest{ID: "req-1"}}}
	handler := NewRequestHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, contentType := multipartRequestBody(t, map[string]string{
		"rep_id":      "rep-1",
		"title":       "Exam venue change",
		"description": "Moved to LT2",
		"links":       `[{"url":"https://example.edu/timetable"}]`,
	}, "poster.png")
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "rep-1", service.lastForm.RepID)
	require.Len(t, service.lastForm.Links, 1)
	assert.Equal(t, "https://example.edu/timetable", service.lastForm.Links[0].URL)
	assert.Equal(t, 1, service.lastFiles)
}

func TestRequestHandlerCreateRejectsMalformedLinks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	body, contentType := multipartRequestBody(t, map[string]string{
		"rep_id":      "rep-1",
		"title":       "t",
		"description": "d",
		"links":       "not-json",
	})
	c.Request = httptest.NewRequest(http.MethodPost, "/requests", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestHandlerDecidePassesAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeRequestSrv{decideResp: &dto.DecisionResponse{Request: models.NoticeRequest{ID: "req-1"}}}
	handler := NewRequestHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/decision", strings.NewReader(`{"action":"reject","message":"duplicate"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rep-1", Role: models.RoleRep})

	handler.Decide(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-1", service.lastDecide.requestID)
	assert.Equal(t, "reject", service.lastDecide.req.Action)
	assert.Equal(t, "duplicate", service.lastDecide.req.Message)
}

func TestRequestHandlerInbox(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests/inbox", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "rep-1", Role: models.RoleRep})

	handler.Inbox(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	pending, ok := envelope.Data["pending"].([]interface{})
	require.True(t, ok)
	assert.Len(t, pending, 1)
}

func TestRequestHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeRequestSrv{}
	handler := NewRequestHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/requests/req-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Delete(c)
	// CreateTestContext does not flush a bare Status on its own.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"req-1"}, service.deleted)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
