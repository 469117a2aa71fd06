package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/models"
	"gorm.io/gorm"
)

type ImageRepository struct {
	db *gorm.DB
}

func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func (r *ImageRepository) Create(ctx context.Context, image *models.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *ImageRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &image, nil
}

// ListByUser returns the user's images, newest first.
func (r *ImageRepository) ListByUser(ctx context.Context, userID uint) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&images).Error
	return images, err
}

// UpdateStatus moves the record to status only when its current kind is one of from.
// It reports false when no row matched, which callers treat as a lost race or a bad state.
func (r *ImageRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.StatusKind, status models.ImageStatus) (bool, error) {
	cols, err := models.StatusColumns(status)
	if err != nil {
		return false, err
	}

	kinds := make([]string, len(from))
	for i, k := range from {
		kinds[i] = string(k)
	}

	res := r.db.WithContext(ctx).
		Model(&models.Image{}).
		Where("id = ? AND status IN ?", id, kinds).
		Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ImageRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Image{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteInStatus removes the record only while it is still in kind.
func (r *ImageRepository) DeleteInStatus(ctx context.Context, id uuid.UUID, kind models.StatusKind) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, string(kind)).Delete(&models.Image{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListStaleUploading finds uploads that never completed.
func (r *ImageRepository) ListStaleUploading(ctx context.Context, createdBefore time.Time, limit int) ([]models.Image, error) {
	var images []models.Image
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(models.StatusUploading), createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&images).Error
	return images, err
}
