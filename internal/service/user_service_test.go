package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type userProfileRepoStub struct {
	users map[string]*models.User
}

func newUserProfileRepoStub(users ...models.User) *userProfileRepoStub {
	stub := &userProfileRepoStub{users: make(map[string]*models.User)}
	for i := range users {
		stub.users[users[i].ID] = &users[i]
	}
	return stub
}

func (u *userProfileRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := u.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (u *userProfileRepoStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var result []models.User
	for _, user := range u.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		result = append(result, *user)
	}
	return result, len(result), nil
}

func (u *userProfileRepoStub) UpdateProfile(ctx context.Context, user *models.User) error {
	copied := *user
	u.users[user.ID] = &copied
	return nil
}

func TestUserServiceUpdateProfileTrimsName(t *testing.T) {
	repo := newUserProfileRepoStub(models.User{ID: "student-1", DisplayName: "Old Name", Active: true})
	svc := NewUserService(repo, newStorageStub(), urlsStub{}, nil, nil)

	visible := false
	user, err := svc.UpdateProfile(context.Background(), studentClaims(), dto.UpdateProfileForm{
		DisplayName:           "  Ada Obi  ",
		ReadReceiptVisibility: &visible,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "Ada Obi", user.DisplayName)
	require.False(t, user.ReadReceiptVisibility)
	require.Equal(t, "Ada Obi", repo.users["student-1"].DisplayName)
}

func TestUserServiceUpdateProfileUnknownUser(t *testing.T) {
	svc := NewUserService(newUserProfileRepoStub(), newStorageStub(), urlsStub{}, nil, nil)

	_, err := svc.UpdateProfile(context.Background(), studentClaims(), dto.UpdateProfileForm{DisplayName: "Ada"}, nil)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserServiceRepsFiltersInactive(t *testing.T) {
	repo := newUserProfileRepoStub(
		models.User{ID: "rep-1", DisplayName: "Rep One", Email: "rep1@campus.edu", Role: models.RoleRep, Active: true},
		models.User{ID: "rep-2", DisplayName: "Rep Two", Email: "rep2@campus.edu", Role: models.RoleRep, Active: false},
		models.User{ID: "student-1", DisplayName: "Ada Obi", Role: models.RoleStudent, Active: true},
	)
	svc := NewUserService(repo, newStorageStub(), urlsStub{}, nil, nil)

	reps, err := svc.Reps(context.Background())
	require.NoError(t, err)
	require.Len(t, reps, 1)
	require.Equal(t, "rep-1", reps[0].ID)
	require.Equal(t, "rep1@campus.edu", reps[0].Email)
}

func TestUserServicePublicProfileHidesEmail(t *testing.T) {
	avatar := "http://media.test/avatars/rep-1/pic.png"
	repo := newUserProfileRepoStub(models.User{
		ID: "rep-1", DisplayName: "Rep One", Email: "rep1@campus.edu",
		Role: models.RoleRep, Active: true, AvatarURL: &avatar,
	})
	svc := NewUserService(repo, newStorageStub(), urlsStub{}, nil, nil)

	profile, err := svc.PublicProfile(context.Background(), "rep-1")
	require.NoError(t, err)
	require.Equal(t, "Rep One", profile.DisplayName)
	require.Equal(t, models.RoleRep, profile.Role)
	require.NotNil(t, profile.AvatarURL)
}
