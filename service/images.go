package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/krishkalaria12/decor-serve/generate"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/metrics"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/repository"
	"github.com/krishkalaria12/decor-serve/storage"
	"go.uber.org/zap"
)

const (
	DefaultPrompt   = "Please decorate this so it looks like a professional interior decorator has designed it"
	MaxPromptLength = 1000

	BaseOriginal  = "original"
	BaseDecorated = "decorated"

	janitorBatchSize = 100
)

type ImageServiceConfig struct {
	Images    ImageStore
	Settings  SettingsStore
	Store     storage.Store
	Providers *generate.Registry
	Queue     Enqueuer
	// Limiter is optional; generation is unlimited without it.
	Limiter Limiter
	Metrics *metrics.Metrics

	UploadURLExpiry   time.Duration
	GenerationTimeout time.Duration
}

type ImageService struct {
	images    ImageStore
	settings  *SettingsService
	store     storage.Store
	providers *generate.Registry
	queue     Enqueuer
	limiter   Limiter
	metrics   *metrics.Metrics

	uploadURLExpiry   time.Duration
	generationTimeout time.Duration
	now               func() time.Time
}

func NewImageService(cfg ImageServiceConfig) *ImageService {
	s := &ImageService{
		images:            cfg.Images,
		settings:          NewSettingsService(cfg.Settings),
		store:             cfg.Store,
		providers:         cfg.Providers,
		queue:             cfg.Queue,
		limiter:           cfg.Limiter,
		metrics:           cfg.Metrics,
		uploadURLExpiry:   cfg.UploadURLExpiry,
		generationTimeout: cfg.GenerationTimeout,
		now:               time.Now,
	}
	if s.uploadURLExpiry <= 0 {
		s.uploadURLExpiry = 15 * time.Minute
	}
	if s.generationTimeout <= 0 {
		s.generationTimeout = 5 * time.Minute
	}
	return s
}

type UploadTicket struct {
	UploadURL string    `json:"uploadUrl"`
	ImageID   uuid.UUID `json:"imageId"`
	StorageID string    `json:"storageId"`
}

// owned loads the record and hides records of other users behind ErrNotFound.
func (s *ImageService) owned(ctx context.Context, userID uint, imageID uuid.UUID) (*models.Image, error) {
	img, err := s.images.FindByID(ctx, imageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}
	if img.UserID != userID {
		return nil, ErrNotFound
	}
	return img, nil
}

// release deletes stored files, logging failures.
func (s *ImageService) release(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			logger.Log.Warn("Failed to release stored file", zap.String("storage_id", key), zap.Error(err))
		}
	}
}

// GenerateUploadURL creates an uploading record and a signed URL the client PUTs the original to.
func (s *ImageService) GenerateUploadURL(ctx context.Context, userID uint) (*UploadTicket, error) {
	img := &models.Image{ID: uuid.New(), UserID: userID, Kind: models.StatusUploading}
	if err := s.images.Create(ctx, img); err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	key := storage.OriginalKey(userID, img.ID)
	url, err := s.store.SignedUploadURL(ctx, key, s.uploadURLExpiry)
	if err != nil {
		if _, delErr := s.images.Delete(ctx, img.ID); delErr != nil {
			logger.Log.Warn("Failed to remove image after upload URL error", zap.String("image_id", img.ID.String()), zap.Error(delErr))
		}
		return nil, fmt.Errorf("sign upload url: %w", err)
	}

	logger.Log.Info("Upload URL issued", zap.Uint("user_id", userID), zap.String("image_id", img.ID.String()))
	return &UploadTicket{UploadURL: url, ImageID: img.ID, StorageID: key}, nil
}

// MarkUploaded records that the original has been written to the key issued for the image.
func (s *ImageService) MarkUploaded(ctx context.Context, userID uint, imageID uuid.UUID, storageID string) (*models.Image, error) {
	img, err := s.owned(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if img.Kind != models.StatusUploading {
		return nil, fmt.Errorf("%w: image is %s", ErrInvalidState, img.Kind)
	}

	key := storage.OriginalKey(userID, imageID)
	if storageID != key {
		return nil, fmt.Errorf("%w: storage id was not issued for this image", ErrInvalidInput)
	}

	info, err := s.store.Stat(ctx, key)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("%w: nothing was uploaded", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("stat upload: %w", err)
	}
	if info.ContentType != "" && !strings.HasPrefix(info.ContentType, "image/") {
		return nil, fmt.Errorf("%w: uploaded file is not an image", ErrInvalidInput)
	}

	url, err := s.store.URL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve url: %w", err)
	}

	status := models.Uploaded(models.ImageRef{URL: url, StorageID: key})
	ok, err := s.images.UpdateStatus(ctx, imageID, []models.StatusKind{models.StatusUploading}, status)
	if err != nil {
		return nil, fmt.Errorf("update image: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: image is no longer uploading", ErrInvalidState)
	}

	if err := img.SetStatus(status); err != nil {
		return nil, err
	}
	logger.Log.Info("Image uploaded", zap.String("image_id", imageID.String()))
	return img, nil
}

// UploadDirect streams the original through the server for clients that cannot use the signed URL.
func (s *ImageService) UploadDirect(ctx context.Context, userID uint, imageID uuid.UUID, r io.Reader, size int64, contentType string) (*models.Image, error) {
	img, err := s.owned(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if img.Kind != models.StatusUploading {
		return nil, fmt.Errorf("%w: image is %s", ErrInvalidState, img.Kind)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: file must be an image", ErrInvalidInput)
	}

	key := storage.OriginalKey(userID, imageID)
	if err := s.store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	return s.MarkUploaded(ctx, userID, imageID, key)
}

func normalizePrompt(prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return DefaultPrompt, nil
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return "", fmt.Errorf("%w: prompt too long (max %d characters)", ErrInvalidInput, MaxPromptLength)
	}
	return prompt, nil
}

// StartGeneration moves the image to generating and queues the provider call.
func (s *ImageService) StartGeneration(ctx context.Context, userID uint, imageID uuid.UUID, prompt, base string) (*models.Image, error) {
	prompt, err := normalizePrompt(prompt)
	if err != nil {
		return nil, err
	}
	if base == "" {
		base = BaseOriginal
	}
	if base != BaseOriginal && base != BaseDecorated {
		return nil, fmt.Errorf("%w: base must be %q or %q", ErrInvalidInput, BaseOriginal, BaseDecorated)
	}

	img, err := s.owned(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(img.Kind, models.StatusGenerating) {
		return nil, fmt.Errorf("%w: cannot generate while image is %s", ErrInvalidState, img.Kind)
	}

	current := img.Status()
	if current.Image == nil {
		return nil, fmt.Errorf("%w: image has no original", ErrInvalidState)
	}
	source := *current.Image
	if base == BaseDecorated {
		if current.DecoratedImage == nil {
			return nil, fmt.Errorf("%w: no decorated image to build on", ErrInvalidState)
		}
		source = *current.DecoratedImage
	}

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.providers.Get(settings.ImageModel); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, strconv.FormatUint(uint64(userID), 10))
		if err != nil {
			logger.Log.Warn("Rate limiter unavailable, allowing request", zap.Uint("user_id", userID), zap.Error(err))
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	status := models.Generating(*current.Image, prompt)
	ok, err := s.images.UpdateStatus(ctx, imageID, []models.StatusKind{img.Kind}, status)
	if err != nil {
		return nil, fmt.Errorf("update image: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: image changed while starting generation", ErrInvalidState)
	}

	job := GenerationJob{
		ImageID:    imageID,
		UserID:     userID,
		Model:      settings.ImageModel,
		Prompt:     prompt,
		Source:     source,
		Original:   *current.Image,
		Previous:   current.DecoratedImage,
		EnqueuedAt: s.now(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		logger.Log.Error("Failed to enqueue generation", zap.String("image_id", imageID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := img.SetStatus(status); err != nil {
		return nil, err
	}
	logger.Log.Info("Generation queued",
		zap.String("image_id", imageID.String()),
		zap.String("model", string(settings.ImageModel)),
		zap.String("base", base),
	)
	return img, nil
}

// FinishGeneration records the decorated result. It only applies to records still generating.
func (s *ImageService) FinishGeneration(ctx context.Context, imageID uuid.UUID, original, decorated models.ImageRef, prompt string) error {
	status := models.Generated(original, decorated, prompt)
	ok, err := s.images.UpdateStatus(ctx, imageID, models.SourcesFor(models.StatusGenerated), status)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	if ok {
		return nil
	}

	_, err = s.images.FindByID(ctx, imageID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}
	return fmt.Errorf("%w: image is not generating", ErrInvalidState)
}

func (s *ImageService) Get(ctx context.Context, userID uint, imageID uuid.UUID) (*models.Image, error) {
	return s.owned(ctx, userID, imageID)
}

// List returns the user's images, newest first.
func (s *ImageService) List(ctx context.Context, userID uint) ([]models.Image, error) {
	images, err := s.images.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

func (s *ImageService) remove(ctx context.Context, img *models.Image) error {
	ok, err := s.images.Delete(ctx, img.ID)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	var keys []string
	for _, ref := range img.StorageRefs() {
		if !storage.OwnedBy(ref.StorageID, img.UserID) {
			logger.Log.Warn("Skipping release of foreign storage key", zap.String("storage_id", ref.StorageID))
			continue
		}
		keys = append(keys, ref.StorageID)
	}
	if img.Kind == models.StatusUploading {
		keys = append(keys, storage.OriginalKey(img.UserID, img.ID))
	}
	s.release(ctx, keys...)
	return nil
}

// Delete removes the image and every stored file it references.
func (s *ImageService) Delete(ctx context.Context, userID uint, imageID uuid.UUID) error {
	img, err := s.owned(ctx, userID, imageID)
	if err != nil {
		return err
	}
	if err := s.remove(ctx, img); err != nil {
		return err
	}
	logger.Log.Info("Image deleted", zap.String("image_id", imageID.String()))
	return nil
}

func (s *ImageService) DeleteAllForUser(ctx context.Context, userID uint) error {
	images, err := s.List(ctx, userID)
	if err != nil {
		return err
	}
	for i := range images {
		if err := s.remove(ctx, &images[i]); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}

// CleanupAbandonedUploads deletes uploading records older than maxAge and their upload keys.
func (s *ImageService) CleanupAbandonedUploads(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0

	for {
		stale, err := s.images.ListStaleUploading(ctx, cutoff, janitorBatchSize)
		if err != nil {
			return removed, fmt.Errorf("list stale uploads: %w", err)
		}

		for _, img := range stale {
			ok, err := s.images.DeleteInStatus(ctx, img.ID, models.StatusUploading)
			if err != nil {
				return removed, fmt.Errorf("delete stale upload: %w", err)
			}
			if !ok {
				continue
			}
			s.release(ctx, storage.OriginalKey(img.UserID, img.ID))
			removed++
		}

		if len(stale) < janitorBatchSize {
			return removed, nil
		}
	}
}
