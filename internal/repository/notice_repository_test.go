package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/bellsnotice/board-api/internal/models"
)

func newNoticeRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func noticeRows(id string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "title", "description", "author_id", "view_count", "is_important", "is_featured", "expires_at", "created_at", "updated_at"}).
		AddRow(id, "Exam schedule", "Midterms start Monday", "rep-1", 4, true, false, nil, now, now)
}

func TestNoticeRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newNoticeRepoMock(t)
	defer cleanup()

	repo := NewNoticeRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notices")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	notice := &models.Notice{Title: "Exam schedule", Description: "Midterms start Monday", AuthorID: "rep-1"}
	require.NoError(t, repo.Create(context.Background(), notice))
	require.NotEmpty(t, notice.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description")).
		WithArgs(notice.ID).
		WillReturnRows(noticeRows(notice.ID))

	found, err := repo.GetByID(context.Background(), notice.ID)
	require.NoError(t, err)
	require.Equal(t, notice.ID, found.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newNoticeRepoMock(t)
	defer cleanup()

	repo := NewNoticeRepository(db)
	important := true

	mock.ExpectQuery("SELECT id, title, description.+ORDER BY created_at DESC").
		WithArgs(true, "%exam%").
		WillReturnRows(noticeRows("notice-1"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(true, "%exam%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	notices, total, err := repo.List(context.Background(), models.NoticeFilter{
		Important: &important,
		Search:    "Exam",
	})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, notices, 1)
	require.Equal(t, "notice-1", notices[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepositoryDeleteCascade(t *testing.T) {
	db, mock, cleanup := newNoticeRepoMock(t)
	defer cleanup()

	repo := NewNoticeRepository(db)
	mock.ExpectBegin()
	for _, table := range []string{"notice_tags", "notice_media", "comments", "reactions", "saved_notices", "notice_views", "notices"} {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM " + table)).
			WithArgs("notice-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), "notice-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepositoryFindOrCreateTags(t *testing.T) {
	db, mock, cleanup := newNoticeRepoMock(t)
	defer cleanup()

	repo := NewNoticeRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM tags WHERE name = ANY($1)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow("tag-1", "exams"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tags")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	tags, err := repo.FindOrCreateTags(context.Background(), []string{"exams", "campus"})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	require.Equal(t, "exams", tags[0].Name)
	require.Equal(t, "campus", tags[1].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNoticeRepositoryRecordView(t *testing.T) {
	db, mock, cleanup := newNoticeRepoMock(t)
	defer cleanup()

	repo := NewNoticeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notice_views")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE notices SET view_count = view_count + 1")).
		WithArgs("notice-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	counted, err := repo.RecordView(context.Background(), "notice-1", "user-1")
	require.NoError(t, err)
	require.True(t, counted)

	// Repeat view: dedup row already present, counter untouched.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO notice_views")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	counted, err = repo.RecordView(context.Background(), "notice-1", "user-1")
	require.NoError(t, err)
	require.False(t, counted)
	require.NoError(t, mock.ExpectationsWereMet())
}
