package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/dto"
	"github.com/bellsnotice/board-api/internal/models"
)

func TestMetricsCountRequestLifecycle(t *testing.T) {
	metrics := NewMetricsService()
	repo := newRequestRepoStub()
	users := newUserDirectoryStub(models.User{ID: "rep-1", Role: models.RoleRep, Active: true})
	svc := NewRequestService(repo, users, &auditStub{}, newStorageStub(), urlsStub{}, nil, metrics, nil, nil, 0)

	form := dto.CreateRequestForm{RepID: "rep-1", Title: "t", Description: "d"}
	resp, err := svc.CreateRequest(context.Background(), studentClaims(), form, nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.requestsCreated))

	_, err = svc.Decide(context.Background(), repClaims(), resp.Request.ID, dto.DecisionRequest{Action: "accept"})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.decisionsTotal.WithLabelValues("accept")))
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.decisionsTotal.WithLabelValues("reject")))
}

func TestMetricsCountViewsAndCache(t *testing.T) {
	metrics := NewMetricsService()
	repo := newNoticeRepoStub()
	repo.notices["notice-1"] = &models.Notice{ID: "notice-1", AuthorID: "rep-1"}
	engagement := &engagementStub{counts: map[string]int{}, reacted: map[string]bool{}, saved: map[string]bool{}}
	comments := &commentCounterStub{counts: map[string]int{}}
	listCache := newNoticeCacheStub()
	svc := NewNoticeService(repo, newUserDirectoryStub(), engagement, comments, &auditStub{}, newStorageStub(), urlsStub{}, listCache, time.Minute, metrics, nil, nil, 0)

	// Repeat views by the same user count once.
	counted, err := svc.RegisterView(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.True(t, counted)
	_, err = svc.RegisterView(context.Background(), studentClaims(), "notice-1")
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.noticeViews))

	// Cold list misses, warm list hits.
	_, _, err = svc.List(context.Background(), dto.NoticeListQuery{})
	require.NoError(t, err)
	_, _, err = svc.List(context.Background(), dto.NoticeListQuery{})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
}
