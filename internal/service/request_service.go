package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.NoticeRequest) error
	GetByID(ctx context.Context, id string) (*models.NoticeRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.NoticeRequest, error)
	CreateMedia(ctx context.Context, media *models.RequestMedia) error
	ListMedia(ctx context.Context, requestID string) ([]models.RequestMedia, error)
	Reject(ctx context.Context, id, message string, respondedAt time.Time) error
	ApproveAndMaterialize(ctx context.Context, requestID string, notice *models.Notice, message string, respondedAt time.Time) ([]models.NoticeMedia, error)
	DeleteWithMedia(ctx context.Context, id string) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type mediaStore interface {
	SaveStream(name string, r io.Reader) (string, error)
	Delete(name string) error
}

type mediaURLResolver interface {
	PublicURL(objectPath string) string
	ObjectPath(publicURL string) (string, bool)
}

type listCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RequestService runs the notice-request workflow: student intake, the
// rep inbox, the accept/reject decision and requester history.
type RequestService struct {
	repo        requestStore
	users       userDirectory
	audit       auditRecorder
	storage     mediaStore
	urls        mediaURLResolver
	cache       listCacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	maxFileSize int64
}

// NewRequestService constructs the service. A nil metrics service
// disables domain counters.
func NewRequestService(repo requestStore, users userDirectory, audit auditRecorder, storage mediaStore, urls mediaURLResolver, cache listCacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, maxFileSize int64) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxFileSize <= 0 {
		maxFileSize = 25 << 20
	}
	return &RequestService{
		repo:        repo,
		users:       users,
		audit:       audit,
		storage:     storage,
		urls:        urls,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// CreateRequest persists a new pending request with its attachments.
// Individual media failures do not fail the request: the row is created
// first, failed items are reported back so the caller can retry them.
func (s *RequestService) CreateRequest(ctx context.Context, claims *models.JWTClaims, form dto.CreateRequestForm, files []*multipart.FileHeader) (*dto.CreateRequestResponse, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	rep, err := s.users.FindByID(ctx, form.RepID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "rep not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve rep")
	}
	if rep.Role != models.RoleRep {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target user is not a rep")
	}
	if !rep.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target rep is inactive")
	}

	request := &models.NoticeRequest{
		RequesterID: claims.UserID,
		RepID:       form.RepID,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	var attached []models.RequestMedia
	var failed []dto.FailedMediaItem

	for _, header := range files {
		media, reason := s.storeUpload(ctx, request.ID, claims.UserID, header)
		if reason != "" {
			failed = append(failed, dto.FailedMediaItem{Name: header.Filename, Reason: reason})
			continue
		}
		attached = append(attached, *media)
	}

	for _, link := range form.Links {
		media, reason := s.attachLink(ctx, request.ID, link)
		if reason != "" {
			failed = append(failed, dto.FailedMediaItem{Name: link.URL, Reason: reason})
			continue
		}
		attached = append(attached, *media)
	}

	s.metrics.RequestCreated()
	s.emitAudit(ctx, claims.UserID, models.AuditActionRequestCreate, "notice_request", request.ID,
		[]byte(fmt.Sprintf(`{"media":%d,"failed":%d}`, len(attached), len(failed))))

	return &dto.CreateRequestResponse{
		Request:     *request,
		Media:       attached,
		FailedMedia: failed,
	}, nil
}

// Inbox returns the rep's requests split into pending (newest submission
// first) and resolved (most recently decided first), enriched with
// requester info and media.
func (s *RequestService) Inbox(ctx context.Context, claims *models.JWTClaims) (*dto.RequestInbox, error) {
	pending, err := s.repo.List(ctx, models.RequestFilter{
		RepID:  claims.UserID,
		Status: []models.RequestStatus{models.RequestStatusPending},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	resolved, err := s.repo.List(ctx, models.RequestFilter{
		RepID:  claims.UserID,
		Status: []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusRejected},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list resolved requests")
	}

	ids := make([]string, 0, len(pending)+len(resolved))
	for _, r := range pending {
		ids = append(ids, r.RequesterID)
	}
	for _, r := range resolved {
		ids = append(ids, r.RequesterID)
	}
	requesters, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requesters")
	}

	inbox := &dto.RequestInbox{
		Pending:  make([]dto.RequestView, 0, len(pending)),
		Resolved: make([]dto.RequestView, 0, len(resolved)),
	}
	for _, r := range pending {
		inbox.Pending = append(inbox.Pending, s.enrichRequest(ctx, r, requesters))
	}
	for _, r := range resolved {
		inbox.Resolved = append(inbox.Resolved, s.enrichRequest(ctx, r, requesters))
	}
	return inbox, nil
}

// Decide applies the rep's accept or reject decision exactly once. A
// request already decided by a concurrent call yields ErrAlreadyDecided;
// an accept that loses the race leaves no notice behind.
func (s *RequestService) Decide(ctx context.Context, claims *models.JWTClaims, requestID string, req dto.DecisionRequest) (*dto.DecisionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}

	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.RepID != claims.UserID && !isAdmin(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request is assigned to another rep")
	}

	respondedAt := time.Now().UTC()
	message := strings.TrimSpace(req.Message)

	if req.Action == "reject" {
		if message == "" {
			message = models.DefaultRejectionMessage
		}
		if err := s.repo.Reject(ctx, requestID, message, respondedAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "request already decided")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
		}
		request.Status = models.RequestStatusRejected
		request.ResponseMessage = &message
		request.RespondedAt = &respondedAt

		s.metrics.DecisionMade("reject")
		s.emitAudit(ctx, claims.UserID, models.AuditActionRequestDecision, "notice_request", requestID,
			[]byte(`{"action":"reject"}`))
		return &dto.DecisionResponse{Request: *request}, nil
	}

	if message == "" {
		message = models.DefaultApprovalMessage
	}
	notice := &models.Notice{
		ID:          uuid.NewString(),
		Title:       request.Title,
		Description: request.Description,
		AuthorID:    claims.UserID,
	}
	if _, err := s.repo.ApproveAndMaterialize(ctx, requestID, notice, message, respondedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyDecided, "request already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}

	request.Status = models.RequestStatusApproved
	request.ResponseMessage = &message
	request.RespondedAt = &respondedAt
	request.NoticeID = &notice.ID

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "notices:list:*"); err != nil {
			s.logger.Warn("failed to invalidate notice list cache", zap.Error(err))
		}
	}
	s.metrics.DecisionMade("accept")
	s.emitAudit(ctx, claims.UserID, models.AuditActionRequestDecision, "notice_request", requestID,
		[]byte(fmt.Sprintf(`{"action":"accept","notice_id":%q}`, notice.ID)))

	return &dto.DecisionResponse{Request: *request, Notice: notice}, nil
}

// History returns the caller's own submitted requests, newest first,
// with the deciding rep's display name when available.
func (s *RequestService) History(ctx context.Context, claims *models.JWTClaims) ([]dto.HistoryEntry, error) {
	requests, err := s.repo.List(ctx, models.RequestFilter{RequesterID: claims.UserID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.RepID)
	}
	reps, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reps")
	}

	entries := make([]dto.HistoryEntry, 0, len(requests))
	for _, r := range requests {
		entry := dto.HistoryEntry{NoticeRequest: r, DecidedAt: r.RespondedAt}
		if rep, ok := reps[r.RepID]; ok {
			entry.RepDisplayName = rep.DisplayName
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteRequest removes a request together with its media rows and any
// uploaded objects. The requester, the assigned rep and admins may
// delete; stored objects are removed best effort after the rows.
func (s *RequestService) DeleteRequest(ctx context.Context, claims *models.JWTClaims, requestID string) error {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.RequesterID != claims.UserID && request.RepID != claims.UserID && !isAdmin(claims.Role) {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to delete this request")
	}

	media, err := s.repo.ListMedia(ctx, requestID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list request media")
	}

	if err := s.repo.DeleteWithMedia(ctx, requestID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}

	for _, m := range media {
		if m.IsLink {
			continue
		}
		objectPath, ok := s.urls.ObjectPath(m.MediaURL)
		if !ok {
			continue
		}
		if err := s.storage.Delete(objectPath); err != nil {
			s.logger.Warn("failed to delete media object",
				zap.String("request_id", requestID), zap.String("object", objectPath), zap.Error(err))
		}
	}

	s.emitAudit(ctx, claims.UserID, models.AuditActionRequestDelete, "notice_request", requestID, nil)
	return nil
}

func (s *RequestService) storeUpload(ctx context.Context, requestID, uploaderID string, header *multipart.FileHeader) (*models.RequestMedia, string) {
	if header.Size > s.maxFileSize {
		return nil, fmt.Sprintf("file exceeds %d bytes", s.maxFileSize)
	}
	file, err := header.Open()
	if err != nil {
		return nil, "could not read uploaded file"
	}
	defer file.Close() //nolint:errcheck

	objectPath := uploadObjectPath("requests", uploaderID, header.Filename)
	if _, err := s.storage.SaveStream(objectPath, file); err != nil {
		s.logger.Warn("failed to store upload", zap.String("object", objectPath), zap.Error(err))
		return nil, "could not store uploaded file"
	}

	fileName := header.Filename
	media := &models.RequestMedia{
		RequestID: requestID,
		MediaType: mediaKindForFile(header.Filename),
		MediaURL:  s.urls.PublicURL(objectPath),
		IsLink:    false,
		FileName:  &fileName,
	}
	if err := s.repo.CreateMedia(ctx, media); err != nil {
		if derr := s.storage.Delete(objectPath); derr != nil {
			s.logger.Warn("failed to remove orphan upload", zap.String("object", objectPath), zap.Error(derr))
		}
		return nil, "could not record uploaded file"
	}
	return media, ""
}

func (s *RequestService) attachLink(ctx context.Context, requestID string, link dto.MediaLinkItem) (*models.RequestMedia, string) {
	parsed, err := url.ParseRequestURI(link.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "invalid link URL"
	}
	media := &models.RequestMedia{
		RequestID: requestID,
		MediaType: models.MediaKind(link.MediaType),
		MediaURL:  link.URL,
		IsLink:    true,
	}
	if link.FileName != "" {
		name := link.FileName
		media.FileName = &name
	}
	if err := s.repo.CreateMedia(ctx, media); err != nil {
		return nil, "could not record media link"
	}
	return media, ""
}

func (s *RequestService) enrichRequest(ctx context.Context, request models.NoticeRequest, requesters map[string]models.User) dto.RequestView {
	view := dto.RequestView{
		NoticeRequest: request,
		Requester:     dto.RequesterInfo{DisplayName: "Anonymous", Email: ""},
	}
	if requester, ok := requesters[request.RequesterID]; ok {
		view.Requester = dto.RequesterInfo{DisplayName: requester.DisplayName, Email: requester.Email}
	}
	media, err := s.repo.ListMedia(ctx, request.ID)
	if err != nil {
		s.logger.Warn("failed to list request media", zap.String("request_id", request.ID), zap.Error(err))
		media = nil
	}
	view.Media = media
	return view
}

func (s *RequestService) emitAudit(ctx context.Context, userID, action, resource, resourceID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func isAdmin(role models.UserRole) bool {
	return role == models.RoleAdmin || role == models.RoleSuperAdmin
}

func uploadObjectPath(scope, uploaderID, filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return fmt.Sprintf("%s/%s/%d-%s-%s", scope, uploaderID, time.Now().UnixNano(), uuid.NewString()[:8], base)
}

func mediaKindForFile(filename string) models.MediaKind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "jpg", "jpeg", "png", "gif", "webp":
		return models.MediaKindImage
	case "mp4", "webm", "mov", "avi":
		return models.MediaKindVideo
	default:
		return models.MediaKindFile
	}
}
