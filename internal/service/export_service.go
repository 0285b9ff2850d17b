package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
	"github.com/bellsnotice/board-api/pkg/export"
)

type noticeLister interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat selects the rendered output type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered board export ready to stream to the caller.
type ExportResult struct {
	FileName    string
	ContentType string
	Payload     []byte
}

// ExportService renders the full notice board for admins, CSV or PDF.
type ExportService struct {
	notices noticeLister
	users   userDirectory
	audit   auditRecorder
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(notices noticeLister, users userDirectory, audit auditRecorder, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{notices: notices, users: users, audit: audit, csv: csv, pdf: pdf, logger: logger}
}

// Generate renders every notice, expired ones included, in the chosen
// format.
func (s *ExportService) Generate(ctx context.Context, claims *models.JWTClaims, format ExportFormat) (*ExportResult, error) {
	notices, _, err := s.notices.List(ctx, models.NoticeFilter{IncludeExpired: true, PageSize: 100, Page: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices for export")
	}

	authorIDs := make([]string, 0, len(notices))
	for _, n := range notices {
		authorIDs = append(authorIDs, n.AuthorID)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authors for export")
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Title", "Author", "Views", "Important", "Featured", "Created"},
	}
	for _, n := range notices {
		author := "Anonymous"
		if a, ok := authors[n.AuthorID]; ok {
			author = a.DisplayName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":        n.ID,
			"Title":     n.Title,
			"Author":    author,
			"Views":     strconv.Itoa(n.ViewCount),
			"Important": strconv.FormatBool(n.IsImportant),
			"Featured":  strconv.FormatBool(n.IsFeatured),
			"Created":   n.CreatedAt.Format(time.RFC3339),
		})
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	var result ExportResult
	switch format {
	case ExportFormatCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render CSV export")
		}
		result = ExportResult{
			FileName:    fmt.Sprintf("notices-%s.csv", stamp),
			ContentType: "text/csv",
			Payload:     payload,
		}
	case ExportFormatPDF:
		payload, err := s.pdf.Render(dataset, "Notice Board Export")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render PDF export")
		}
		result = ExportResult{
			FileName:    fmt.Sprintf("notices-%s.pdf", stamp),
			ContentType: "application/pdf",
			Payload:     payload,
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", strings.TrimSpace(string(format))))
	}

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:    &claims.UserID,
			Action:    models.AuditActionNoticeExport,
			Resource:  "notice",
			NewValues: []byte(fmt.Sprintf(`{"format":%q,"rows":%d}`, format, len(dataset.Rows))),
		}); err != nil {
			s.logger.Warn("failed to record export audit log", zap.Error(err))
		}
	}
	return &result, nil
}
