package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/repository"
)

type SettingsService struct {
	settings SettingsStore
}

func NewSettingsService(settings SettingsStore) *SettingsService {
	return &SettingsService{settings: settings}
}

// Get returns the user's saved settings, or the defaults if none were saved.
func (s *SettingsService) Get(ctx context.Context, userID uint) (*models.UserSettings, error) {
	settings, err := s.settings.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

// Update saves the fields that are set. A nil model keeps the current one.
func (s *SettingsService) Update(ctx context.Context, userID uint, imageModel *models.ImageModel) (*models.UserSettings, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if imageModel != nil {
		if !imageModel.Valid() {
			return nil, fmt.Errorf("%w: unknown image model %q", ErrInvalidInput, *imageModel)
		}
		current.ImageModel = *imageModel
	}

	if err := s.settings.Upsert(ctx, current); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}
	return current, nil
}
