package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"webcamupload/internal/model"
	"webcamupload/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "filename", "storage_path", "size", "captured_at"}

func TestCapturePostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCapturePostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	c := &model.Capture{
		ID:          "test-uuid",
		Filename:    "2024-03-05-07-08-09-010.png",
		StoragePath: "/images/webcamupload/2024-03-05-07-08-09-010.png",
		Size:        123,
		CapturedAt:  now,
	}

	t.Run("success", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).
			AddRow(c.ID, c.Filename, c.StoragePath, c.Size, c.CapturedAt)

		mock.ExpectQuery("INSERT INTO captures").
			WithArgs(c.ID, c.Filename, c.StoragePath, c.Size, c.CapturedAt).
			WillReturnRows(rows)

		result, err := repo.Create(ctx, c)

		assert.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, c.ID, result.ID)
		assert.Equal(t, c.Filename, result.Filename)
	})

	t.Run("query error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO captures").
			WillReturnError(errors.New("connection reset"))

		result, err := repo.Create(ctx, c)

		assert.EqualError(t, err, "connection reset")
		assert.Nil(t, result)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapturePostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewCapturePostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM captures").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		rows := sqlmock.NewRows(columns).
			AddRow("id-2", "2024-01-01-00-00-01-000.png", "/images/webcamupload/2024-01-01-00-00-01-000.png", 100, time.Now()).
			AddRow("id-1", "2024-01-01-00-00-00-000.png", "/images/webcamupload/2024-01-01-00-00-00-000.png", 90, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM captures ORDER BY").
			WithArgs(10, 0).
			WillReturnRows(rows)

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

		require.NoError(t, err)
		assert.Equal(t, 2, res.Total)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "id-2", res.Items[0].ID)
	})

	t.Run("count error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM captures").
			WillReturnError(errors.New("db down"))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10})

		assert.Error(t, err)
		assert.Nil(t, res)
	})

	t.Run("empty page", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM captures").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery("SELECT (.+) FROM captures ORDER BY").
			WithArgs(5, 20).
			WillReturnRows(sqlmock.NewRows(columns))

		res, err := repo.List(ctx, repository.PageQuery{Limit: 5, Offset: 20})

		require.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.NotNil(t, res.Items)
		assert.Empty(t, res.Items)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
