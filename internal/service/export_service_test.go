package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin, DisplayName: "Admin"}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	repo := newNoticeRepoStub()
	repo.notices["notice-1"] = &models.Notice{
		ID: "notice-1", Title: "Exam schedule", AuthorID: "rep-1",
		ViewCount: 12, IsImportant: true, CreatedAt: time.Now(),
	}
	users := newUserDirectoryStub(models.User{ID: "rep-1", DisplayName: "Rep One"})
	audit := &auditStub{}
	svc := NewExportService(repo, users, audit, nil, nil, nil)

	result, err := svc.Generate(context.Background(), adminClaims(), ExportFormatCSV)
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.True(t, strings.HasPrefix(result.FileName, "notices-"))
	require.True(t, strings.HasSuffix(result.FileName, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "ID,Title,Author,Views,Important,Featured,Created", lines[0])
	// Row cells must land under their headers, not in insertion order.
	fields := strings.Split(lines[1], ",")
	require.Equal(t, "notice-1", fields[0])
	require.Equal(t, "Exam schedule", fields[1])
	require.Equal(t, "Rep One", fields[2])
	require.Equal(t, "12", fields[3])
	require.Equal(t, "true", fields[4])

	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionNoticeExport, audit.logs[0].Action)
}

func TestExportServiceGeneratePDF(t *testing.T) {
	repo := newNoticeRepoStub()
	repo.notices["notice-1"] = &models.Notice{ID: "notice-1", Title: "Sports day", AuthorID: "rep-1", CreatedAt: time.Now()}
	svc := NewExportService(repo, newUserDirectoryStub(), &auditStub{}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), adminClaims(), ExportFormatPDF)
	require.NoError(t, err)
	require.Equal(t, "application/pdf", result.ContentType)
	require.True(t, strings.HasSuffix(result.FileName, ".pdf"))
	require.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceUnknownFormat(t *testing.T) {
	svc := NewExportService(newNoticeRepoStub(), newUserDirectoryStub(), &auditStub{}, nil, nil, nil)

	_, err := svc.Generate(context.Background(), adminClaims(), ExportFormat("xlsx"))
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceAnonymousAuthorFallback(t *testing.T) {
	repo := newNoticeRepoStub()
	repo.notices["notice-1"] = &models.Notice{ID: "notice-1", Title: "Orphaned", AuthorID: "gone", CreatedAt: time.Now()}
	svc := NewExportService(repo, newUserDirectoryStub(), &auditStub{}, nil, nil, nil)

	result, err := svc.Generate(context.Background(), adminClaims(), ExportFormatCSV)
	require.NoError(t, err)
	require.Contains(t, string(result.Payload), "Anonymous")
}
