package testhelpers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/repository"
)

// ImageRepo is an in-memory image repository with the same conditional-update semantics as the
// gorm one.
type ImageRepo struct {
	mu     sync.Mutex
	images map[uuid.UUID]models.Image
	Now    func() time.Time
}

func NewImageRepo() *ImageRepo {
	return &ImageRepo{images: make(map[uuid.UUID]models.Image), Now: time.Now}
}

func (r *ImageRepo) Create(ctx context.Context, image *models.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := image.BeforeCreate(nil); err != nil {
		return err
	}
	now := r.Now()
	if image.CreatedAt.IsZero() {
		image.CreatedAt = now
	}
	image.UpdatedAt = now
	r.images[image.ID] = *image
	return nil
}

// Put stores image as-is, for seeding tests.
func (r *ImageRepo) Put(image models.Image) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[image.ID] = image
}

func (r *ImageRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &img, nil
}

func (r *ImageRepo) ListByUser(ctx context.Context, userID uint) ([]models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Image
	for _, img := range r.images {
		if img.UserID == userID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *ImageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.StatusKind, status models.ImageStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok || !containsKind(from, img.Kind) {
		return false, nil
	}
	if err := img.SetStatus(status); err != nil {
		return false, err
	}
	img.UpdatedAt = r.Now()
	r.images[id] = img
	return true, nil
}

func (r *ImageRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[id]; !ok {
		return false, nil
	}
	delete(r.images, id)
	return true, nil
}

func (r *ImageRepo) DeleteInStatus(ctx context.Context, id uuid.UUID, kind models.StatusKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[id]
	if !ok || img.Kind != kind {
		return false, nil
	}
	delete(r.images, id)
	return true, nil
}

func (r *ImageRepo) ListStaleUploading(ctx context.Context, createdBefore time.Time, limit int) ([]models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Image
	for _, img := range r.images {
		if img.Kind == models.StatusUploading && img.CreatedAt.Before(createdBefore) {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ImageRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.images)
}

func containsKind(kinds []models.StatusKind, k models.StatusKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

type SettingsRepo struct {
	mu       sync.Mutex
	settings map[uint]models.UserSettings
}

func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{settings: make(map[uint]models.UserSettings)}
}

func (r *SettingsRepo) FindByUser(ctx context.Context, userID uint) (*models.UserSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, settings *models.UserSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.UserID] = *settings
	return nil
}

func (r *SettingsRepo) DeleteByUser(ctx context.Context, userID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.settings, userID)
	return nil
}

type UserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]models.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{nextID: 1, users: make(map[uint]models.User)}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = *user
	return nil
}

func (r *UserRepo) find(match func(models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id })
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username })
}

func (r *UserRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}
