package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type noticeStore interface {
	Create(ctx context.Context, notice *models.Notice) error
	GetByID(ctx context.Context, id string) (*models.Notice, error)
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	Update(ctx context.Context, notice *models.Notice) error
	DeleteCascade(ctx context.Context, id string) error
	CreateMedia(ctx context.Context, media *models.NoticeMedia) error
	ListMedia(ctx context.Context, noticeID string) ([]models.NoticeMedia, error)
	FindOrCreateTags(ctx context.Context, names []string) ([]models.Tag, error)
	LinkTag(ctx context.Context, noticeID, tagID string) error
	ListTags(ctx context.Context, noticeID string) ([]models.Tag, error)
	ListAllTags(ctx context.Context) ([]models.Tag, error)
	RecordView(ctx context.Context, noticeID, userID string) (bool, error)
}

type engagementCounter interface {
	CountReactions(ctx context.Context, noticeID string) (int, error)
	HasReacted(ctx context.Context, noticeID, userID string) (bool, error)
	HasSaved(ctx context.Context, noticeID, userID string) (bool, error)
}

type commentCounter interface {
	CountByNotice(ctx context.Context, noticeID string) (int, error)
}

type noticeListCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cachedNoticeList struct {
	Items      []dto.NoticeListItem `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
}

// NoticeService serves the public board: listing, detail, views, direct
// posting by reps and moderation flags.
type NoticeService struct {
	repo        noticeStore
	users       userDirectory
	engagement  engagementCounter
	comments    commentCounter
	audit       auditRecorder
	storage     mediaStore
	urls        mediaURLResolver
	cache       noticeListCache
	cacheTTL    time.Duration
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	maxFileSize int64
}

// NewNoticeService constructs the service. A nil metrics service
// disables domain counters.
func NewNoticeService(repo noticeStore, users userDirectory, engagement engagementCounter, comments commentCounter, audit auditRecorder, storage mediaStore, urls mediaURLResolver, cache noticeListCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, maxFileSize int64) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	if maxFileSize <= 0 {
		maxFileSize = 25 << 20
	}
	return &NoticeService{
		repo:        repo,
		users:       users,
		engagement:  engagement,
		comments:    comments,
		audit:       audit,
		storage:     storage,
		urls:        urls,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

// CreateNotice posts a notice directly, bypassing the request workflow.
// Only reps and admins may publish this way; students go through
// requests. Media failures are reported, not fatal, mirroring request
// intake.
func (s *NoticeService) CreateNotice(ctx context.Context, claims *models.JWTClaims, form dto.CreateNoticeForm, files []*multipart.FileHeader) (*dto.CreateNoticeResponse, error) {
	if claims.Role != models.RoleRep && !isAdmin(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only reps may publish notices directly")
	}
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	notice := &models.Notice{
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		AuthorID:    claims.UserID,
		IsImportant: form.IsImportant,
		ExpiresAt:   form.ExpiresAt,
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}

	var attached []models.NoticeMedia
	var failed []dto.FailedMediaItem

	for _, header := range files {
		media, reason := s.storeNoticeUpload(ctx, notice.ID, claims.UserID, header)
		if reason != "" {
			failed = append(failed, dto.FailedMediaItem{Name: header.Filename, Reason: reason})
			continue
		}
		attached = append(attached, *media)
	}
	for _, link := range form.Links {
		media, reason := s.attachNoticeLink(ctx, notice.ID, link)
		if reason != "" {
			failed = append(failed, dto.FailedMediaItem{Name: link.URL, Reason: reason})
			continue
		}
		attached = append(attached, *media)
	}

	tags, err := s.attachTags(ctx, notice.ID, form.Tags)
	if err != nil {
		return nil, err
	}

	s.invalidateListCache(ctx)
	s.emitNoticeAudit(ctx, claims.UserID, models.AuditActionNoticeCreate, notice.ID,
		[]byte(fmt.Sprintf(`{"media":%d,"failed":%d}`, len(attached), len(failed))))

	return &dto.CreateNoticeResponse{
		Notice:      *notice,
		Media:       attached,
		Tags:        tags,
		FailedMedia: failed,
	}, nil
}

// List returns board notices for the given query, newest first, served
// from the listing cache when warm.
func (s *NoticeService) List(ctx context.Context, query dto.NoticeListQuery) ([]dto.NoticeListItem, models.Pagination, error) {
	key := listCacheKey(query)
	useCache := s.cache != nil && !query.IncludeExpired
	if useCache {
		var cached cachedNoticeList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.CacheHit()
			return cached.Items, cached.Pagination, nil
		}
		s.metrics.CacheMiss()
	}

	filter := models.NoticeFilter{
		Important:      query.Important,
		Featured:       query.Featured,
		TagID:          query.TagID,
		Search:         query.Search,
		AuthorID:       query.AuthorID,
		Page:           query.Page,
		PageSize:       query.PageSize,
		IncludeExpired: query.IncludeExpired,
	}
	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}

	authorIDs := make([]string, 0, len(notices))
	for _, n := range notices {
		authorIDs = append(authorIDs, n.AuthorID)
	}
	authors, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authors")
	}

	items := make([]dto.NoticeListItem, 0, len(notices))
	for _, n := range notices {
		item := dto.NoticeListItem{
			Notice: n,
			Author: s.authorInfo(n.AuthorID, authors),
			Tags:   []string{},
		}
		if tags, err := s.repo.ListTags(ctx, n.ID); err == nil {
			for _, tag := range tags {
				item.Tags = append(item.Tags, tag.Name)
			}
		}
		items = append(items, item)
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if useCache {
		if err := s.cache.Set(ctx, key, cachedNoticeList{Items: items, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache notice list", zap.Error(err))
		}
	}
	return items, pagination, nil
}

// Detail returns a fully enriched notice. Engagement flags depend on
// the caller; anonymous callers get them as false.
func (s *NoticeService) Detail(ctx context.Context, claims *models.JWTClaims, noticeID string) (*dto.NoticeDetail, error) {
	notice, err := s.repo.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}

	authors, err := s.users.FindByIDs(ctx, []string{notice.AuthorID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load author")
	}

	detail := &dto.NoticeDetail{
		Notice: *notice,
		Author: s.authorInfo(notice.AuthorID, authors),
	}
	if detail.Media, err = s.repo.ListMedia(ctx, noticeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice media")
	}
	if detail.Tags, err = s.repo.ListTags(ctx, noticeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice tags")
	}
	if detail.ReactionCount, err = s.engagement.CountReactions(ctx, noticeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reactions")
	}
	if detail.CommentCount, err = s.comments.CountByNotice(ctx, noticeID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count comments")
	}
	if claims != nil {
		if detail.HasReacted, err = s.engagement.HasReacted(ctx, noticeID, claims.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check reaction")
		}
		if detail.HasSaved, err = s.engagement.HasSaved(ctx, noticeID, claims.UserID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check saved state")
		}
	}
	return detail, nil
}

// RegisterView records a view for the caller, counting each user once
// per notice. Returns whether the counter moved.
func (s *NoticeService) RegisterView(ctx context.Context, claims *models.JWTClaims, noticeID string) (bool, error) {
	if _, err := s.repo.GetByID(ctx, noticeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	counted, err := s.repo.RecordView(ctx, noticeID, claims.UserID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record view")
	}
	if counted {
		s.metrics.NoticeViewed()
	}
	return counted, nil
}

// Update edits a notice. Only the author or an admin may edit.
func (s *NoticeService) Update(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.UpdateNoticeRequest) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	notice, err := s.repo.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if notice.AuthorID != claims.UserID && !isAdmin(claims.Role) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author may edit this notice")
	}

	notice.Title = strings.TrimSpace(req.Title)
	notice.Description = strings.TrimSpace(req.Description)
	notice.IsImportant = req.IsImportant
	notice.ExpiresAt = req.ExpiresAt
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}

	s.invalidateListCache(ctx)
	s.emitNoticeAudit(ctx, claims.UserID, models.AuditActionNoticeUpdate, noticeID, nil)
	return notice, nil
}

// UpdateFlags toggles moderation flags. Route-level RBAC restricts this
// to admins; nil fields stay untouched.
func (s *NoticeService) UpdateFlags(ctx context.Context, claims *models.JWTClaims, noticeID string, req dto.NoticeFlagsRequest) (*models.Notice, error) {
	notice, err := s.repo.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if req.IsImportant != nil {
		notice.IsImportant = *req.IsImportant
	}
	if req.IsFeatured != nil {
		notice.IsFeatured = *req.IsFeatured
	}
	if err := s.repo.Update(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice flags")
	}

	s.invalidateListCache(ctx)
	s.emitNoticeAudit(ctx, claims.UserID, models.AuditActionNoticeUpdate, noticeID,
		[]byte(fmt.Sprintf(`{"is_important":%t,"is_featured":%t}`, notice.IsImportant, notice.IsFeatured)))
	return notice, nil
}

// Delete removes a notice with all attached rows and stored objects.
func (s *NoticeService) Delete(ctx context.Context, claims *models.JWTClaims, noticeID string) error {
	notice, err := s.repo.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if notice.AuthorID != claims.UserID && !isAdmin(claims.Role) {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author may delete this notice")
	}

	media, err := s.repo.ListMedia(ctx, noticeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notice media")
	}
	if err := s.repo.DeleteCascade(ctx, noticeID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
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
				zap.String("notice_id", noticeID), zap.String("object", objectPath), zap.Error(err))
		}
	}

	s.invalidateListCache(ctx)
	s.emitNoticeAudit(ctx, claims.UserID, models.AuditActionNoticeDelete, noticeID, nil)
	return nil
}

// Tags returns every known tag for filter pickers.
func (s *NoticeService) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.repo.ListAllTags(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tags")
	}
	return tags, nil
}

func (s *NoticeService) storeNoticeUpload(ctx context.Context, noticeID, uploaderID string, header *multipart.FileHeader) (*models.NoticeMedia, string) {
	if header.Size > s.maxFileSize {
		return nil, fmt.Sprintf("file exceeds %d bytes", s.maxFileSize)
	}
	file, err := header.Open()
	if err != nil {
		return nil, "could not read uploaded file"
	}
	defer file.Close() //nolint:errcheck

	objectPath := uploadObjectPath("notices", uploaderID, header.Filename)
	if _, err := s.storage.SaveStream(objectPath, file); err != nil {
		s.logger.Warn("failed to store upload", zap.String("object", objectPath), zap.Error(err))
		return nil, "could not store uploaded file"
	}

	fileName := header.Filename
	media := &models.NoticeMedia{
		NoticeID:  noticeID,
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

func (s *NoticeService) attachNoticeLink(ctx context.Context, noticeID string, link dto.MediaLinkItem) (*models.NoticeMedia, string) {
	parsed, err := url.ParseRequestURI(link.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "invalid link URL"
	}
	media := &models.NoticeMedia{
		NoticeID:  noticeID,
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

func (s *NoticeService) attachTags(ctx context.Context, noticeID string, names []string) ([]models.Tag, error) {
	cleaned := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	tags, err := s.repo.FindOrCreateTags(ctx, cleaned)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve tags")
	}
	for _, tag := range tags {
		if err := s.repo.LinkTag(ctx, noticeID, tag.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link tag")
		}
	}
	return tags, nil
}

func (s *NoticeService) authorInfo(authorID string, authors map[string]models.User) dto.AuthorInfo {
	if author, ok := authors[authorID]; ok {
		return dto.AuthorInfo{ID: author.ID, DisplayName: author.DisplayName, AvatarURL: author.AvatarURL}
	}
	return dto.AuthorInfo{ID: authorID, DisplayName: "Anonymous"}
}

func (s *NoticeService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "notices:list:*"); err != nil {
		s.logger.Warn("failed to invalidate notice list cache", zap.Error(err))
	}
}

func (s *NoticeService) emitNoticeAudit(ctx context.Context, userID, action, noticeID string, newValues []byte) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "notice",
		ResourceID: &noticeID,
		NewValues:  newValues,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func listCacheKey(query dto.NoticeListQuery) string {
	flag := func(v *bool) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprintf("%t", *v)
	}
	return fmt.Sprintf("notices:list:%s:%s:%s:%s:%s:%d:%d",
		flag(query.Important), flag(query.Featured), query.TagID, query.Search, query.AuthorID, query.Page, query.PageSize)
}
