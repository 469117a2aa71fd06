package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type RegisterInput struct {
	Email    string
	Username string
	FullName string
	Password string
}

type UserService struct {
	users    UserStore
	images   *ImageService
	settings SettingsStore
}

func NewUserService(users UserStore, images *ImageService, settings SettingsStore) *UserService {
	return &UserService{users: users, images: images, settings: settings}
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(hashed), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func isEmail(identity string) bool {
	_, err := mail.ParseAddress(identity)
	return err == nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.TrimSpace(in.Username)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email is taken", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("%w: username is taken", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Username: username,
		FullName: strings.TrimSpace(in.FullName),
		Password: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	logger.Log.Info("User registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// FindByIdentity looks the user up by email or username.
func (s *UserService) FindByIdentity(ctx context.Context, identity string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if isEmail(identity) {
		user, err = s.users.FindByEmail(ctx, strings.ToLower(identity))
	} else {
		user, err = s.users.FindByUsername(ctx, identity)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// Authenticate looks the user up by email or username and checks the password.
func (s *UserService) Authenticate(ctx context.Context, identity, password string) (*models.User, error) {
	user, err := s.FindByIdentity(ctx, identity)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !checkPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return user, err
}

// DeleteAccount removes the user together with their images, stored files and settings.
func (s *UserService) DeleteAccount(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.images.DeleteAllForUser(ctx, id); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	if err := s.settings.DeleteByUser(ctx, id); err != nil {
		return fmt.Errorf("delete settings: %w", err)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	logger.Log.Info("User account deleted", zap.Uint("user_id", id))
	return nil
}
