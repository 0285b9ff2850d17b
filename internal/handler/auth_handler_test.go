package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bellsnotice/board-api/internal/middleware"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type fakeAuthSrv struct {
	loginErr   error
	lastLogin  models.LoginRequest
	lastLogout struct {
		refreshToken string
		userID       string
	}
}

func (f *fakeAuthSrv) Register(_ context.Context, req models.RegisterRequest) (*models.UserInfo, error) {
	return &models.UserInfo{ID: "user-1", Email: req.Email, DisplayName: req.DisplayName, Role: models.UserRole(req.Role)}, nil
}

func (f *fakeAuthSrv) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.lastLogin = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeAuthSrv) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, refreshToken string, userID string, _ models.LoginRequest) error {
	f.lastLogout.refreshToken = refreshToken
	f.lastLogout.userID = userID
	return nil
}

func TestAuthHandlerLoginStampsClientMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"rep@campus.edu","password":"secret"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.Header.Set("User-Agent", "board-test/1.0")

	handler.Login(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rep@campus.edu", service.lastLogin.Email)
	assert.Equal(t, "board-test/1.0", service.lastLogin.UserAgent)
	assert.NotEmpty(t, service.lastLogin.IP)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{loginErr: appErrors.ErrInvalidCredentials})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"rep@campus.edu","password":"wrong"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogoutRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewAuthHandler(&fakeAuthSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"abc"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Logout(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogoutForwardsToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeAuthSrv{}
	handler := NewAuthHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"abc"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	handler.Logout(c)
	// CreateTestContext does not flush a bare Status on its own.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "abc", service.lastLogout.refreshToken)
	assert.Equal(t, "user-1", service.lastLogout.userID)
}
