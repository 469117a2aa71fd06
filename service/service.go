package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/models"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state transition")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrUnavailable        = errors.New("service unavailable")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid identity or password")
)

type ImageStore interface {
	Create(ctx context.Context, image *models.Image) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Image, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.StatusKind, status models.ImageStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteInStatus(ctx context.Context, id uuid.UUID, kind models.StatusKind) (bool, error)
	ListStaleUploading(ctx context.Context, createdBefore time.Time, limit int) ([]models.Image, error)
}

type SettingsStore interface {
	FindByUser(ctx context.Context, userID uint) (*models.UserSettings, error)
	Upsert(ctx context.Context, settings *models.UserSettings) error
	DeleteByUser(ctx context.Context, userID uint) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Delete(ctx context.Context, id uint) error
}

// Limiter counts one attempt for key and reports whether it is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Enqueuer hands generation jobs to background workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, job GenerationJob) error
}

// GenerationJob is everything a worker needs to produce and record one decorated image.
type GenerationJob struct {
	ImageID  uuid.UUID
	UserID   uint
	Model    models.ImageModel
	Prompt   string
	Source   models.ImageRef
	Original models.ImageRef
	// Previous is the decorated image to release once the new one is recorded.
	Previous   *models.ImageRef
	EnqueuedAt time.Time
}
