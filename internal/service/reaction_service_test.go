package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/models"
	appErrors "github.com/bellsnotice/board-api/pkg/errors"
)

type reactionRepoStub struct {
	reactions map[string]bool
	saved     map[string]bool
}

func newReactionRepoStub() *reactionRepoStub {
	return &reactionRepoStub{
		reactions: make(map[string]bool),
		saved:     make(map[string]bool),
	}
}

func (r *reactionRepoStub) ToggleReaction(ctx context.Context, noticeID, userID, reactionType string) (bool, error) {
	key := noticeID + "/" + userID
	r.reactions[key] = !r.reactions[key]
	return r.reactions[key], nil
}

func (r *reactionRepoStub) CountReactions(ctx context.Context, noticeID string) (int, error) {
	count := 0
	for key, active := range r.reactions {
		if active && strings.HasPrefix(key, noticeID+"/") {
			count++
		}
	}
	return count, nil
}

func (r *reactionRepoStub) ToggleSaved(ctx context.Context, noticeID, userID string) (bool, error) {
	key := noticeID + "/" + userID
	r.saved[key] = !r.saved[key]
	return r.saved[key], nil
}

func (r *reactionRepoStub) ListSavedNotices(ctx context.Context, userID string) ([]models.Notice, error) {
	var notices []models.Notice
	for key, active := range r.saved {
		if active && strings.HasSuffix(key, "/"+userID) {
			notices = append(notices, models.Notice{ID: strings.TrimSuffix(key, "/"+userID)})
		}
	}
	return notices, nil
}

func TestReactionServiceToggleFlipsState(t *testing.T) {
	repo := newReactionRepoStub()
	notices := newNoticeRepoStub()
	notices.notices["notice-1"] = &models.Notice{ID: "notice-1", Title: "Sports day"}
	svc := NewReactionService(repo, notices, nil)

	result, err := svc.ToggleReaction(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.True(t, result.Active)
	require.Equal(t, 1, result.Count)

	result, err = svc.ToggleReaction(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.False(t, result.Active)
	require.Equal(t, 0, result.Count)
}

func TestReactionServiceToggleUnknownNotice(t *testing.T) {
	svc := NewReactionService(newReactionRepoStub(), newNoticeRepoStub(), nil)

	_, err := svc.ToggleReaction(context.Background(), studentClaims(), "missing")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReactionServiceSavedRoundTrip(t *testing.T) {
	repo := newReactionRepoStub()
	notices := newNoticeRepoStub()
	notices.notices["notice-1"] = &models.Notice{ID: "notice-1"}
	svc := NewReactionService(repo, notices, nil)

	result, err := svc.ToggleSaved(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.True(t, result.Active)

	saved, err := svc.SavedNotices(context.Background(), studentClaims())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "notice-1", saved[0].ID)

	result, err = svc.ToggleSaved(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.False(t, result.Active)
}
