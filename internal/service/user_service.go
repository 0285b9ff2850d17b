package service

import (
	"context"
	"database/sql"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type userProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

// UserService serves profiles and the rep directory.
type UserService struct {
	repo      userProfileStore
	storage   mediaStore
	urls      mediaURLResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userProfileStore, storage mediaStore, urls mediaURLResolver, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, storage: storage, urls: urls, validator: validate, logger: logger}
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, claims *models.JWTClaims) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// UpdateProfile edits the caller's display name, read-receipt setting
// and, when a file part is supplied, the avatar.
func (s *UserService) UpdateProfile(ctx context.Context, claims *models.JWTClaims, form dto.UpdateProfileForm, avatar *multipart.FileHeader) (*models.User, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user.DisplayName = strings.TrimSpace(form.DisplayName)
	if form.ReadReceiptVisibility != nil {
		user.ReadReceiptVisibility = *form.ReadReceiptVisibility
	}

	if avatar != nil {
		if mediaKindForFile(avatar.Filename) != models.MediaKindImage {
			return nil, appErrors.Clone(appErrors.ErrValidation, "avatar must be an image")
		}
		file, err := avatar.Open()
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "could not read avatar file")
		}
		defer file.Close() //nolint:errcheck

		objectPath := uploadObjectPath("avatars", claims.UserID, avatar.Filename)
		if _, err := s.storage.SaveStream(objectPath, file); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
		}
		previous := user.AvatarURL
		avatarURL := s.urls.PublicURL(objectPath)
		user.AvatarURL = &avatarURL

		if previous != nil {
			if old, ok := s.urls.ObjectPath(*previous); ok {
				if err := s.storage.Delete(old); err != nil {
					s.logger.Warn("failed to delete previous avatar", zap.String("object", old), zap.Error(err))
				}
			}
		}
	}

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}
	return user, nil
}

// Reps lists active reps for the request intake form, sorted by name.
func (s *UserService) Reps(ctx context.Context) ([]dto.RepInfo, error) {
	role := models.RoleRep
	active := true
	users, _, err := s.repo.List(ctx, models.UserFilter{Role: &role, Active: &active, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reps")
	}
	reps := make([]dto.RepInfo, 0, len(users))
	for _, u := range users {
		reps = append(reps, dto.RepInfo{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
	}
	return reps, nil
}

// PublicProfile returns another user's public-facing profile.
func (s *UserService) PublicProfile(ctx context.Context, userID string) (*dto.PublicProfile, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return &dto.PublicProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		AvatarURL:   user.AvatarURL,
	}, nil
}
