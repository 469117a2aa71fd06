package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var imageColumns = []string{
	"id", "user_id", "status", "original_url", "original_storage_id",
	"decorated_url", "decorated_storage_id", "prompt", "created_at", "updated_at",
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return db, mock, sqlDB
}

func TestImageRepository_FindByID(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(imageColumns).
			AddRow(id.String(), 7, "generating", "https://cdn/o", "originals/7/x", nil, nil, "cosy", now, now)
		mock.ExpectQuery(`SELECT \* FROM "images" WHERE id = \$1`).WillReturnRows(rows)

		img, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, img.ID)
		assert.Equal(t, uint(7), img.UserID)
		assert.Equal(t, models.Generating(models.ImageRef{URL: "https://cdn/o", StorageID: "originals/7/x"}, "cosy"), img.Status())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "images" WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(imageColumns))

		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_ListByUser(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(imageColumns).
		AddRow(uuid.NewString(), 3, "uploading", nil, nil, nil, nil, nil, now, now).
		AddRow(uuid.NewString(), 3, "uploaded", "https://cdn/o", "originals/3/y", nil, nil, nil, now.Add(-time.Hour), now)
	mock.ExpectQuery(`SELECT \* FROM "images" WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(uint(3)).
		WillReturnRows(rows)

	images, err := repo.ListByUser(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, models.StatusUploading, images[0].Kind)
	assert.Equal(t, models.StatusUploaded, images[1].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_UpdateStatus(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)
	ctx := context.Background()
	ref := models.ImageRef{URL: "https://cdn/o", StorageID: "originals/1/z"}

	t.Run("Applied", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "images" SET .* WHERE \(?id = \$\d+ AND status IN \(\$\d+\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.UpdateStatus(ctx, uuid.New(), []models.StatusKind{models.StatusUploading}, models.Uploaded(ref))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("LostRace", func(t *testing.T) {
		mock.ExpectExec(`UPDATE "images" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.UpdateStatus(ctx, uuid.New(), []models.StatusKind{models.StatusUploaded, models.StatusGenerated}, models.Generating(ref, "p"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("InvalidStatusNeverHitsTheDatabase", func(t *testing.T) {
		_, err := repo.UpdateStatus(ctx, uuid.New(), []models.StatusKind{models.StatusUploading}, models.ImageStatus{Kind: models.StatusUploaded})
		assert.Error(t, err)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_Delete(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM "images" WHERE id = \$1`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_DeleteInStatus(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM "images" WHERE id = \$1 AND status = \$2`).
		WithArgs(id, "uploading").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DeleteInStatus(context.Background(), id, models.StatusUploading)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImageRepository_ListStaleUploading(t *testing.T) {
	db, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()
	repo := NewImageRepository(db)

	cutoff := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows(imageColumns).
		AddRow(uuid.NewString(), 2, "uploading", nil, nil, nil, nil, nil, cutoff.Add(-time.Minute), cutoff)
	mock.ExpectQuery(`SELECT \* FROM "images" WHERE status = \$1 AND created_at < \$2 ORDER BY created_at ASC LIMIT`).
		WillReturnRows(rows)

	images, err := repo.ListStaleUploading(context.Background(), cutoff, 50)
	require.NoError(t, err)
	assert.Len(t, images, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
