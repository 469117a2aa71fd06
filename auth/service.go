package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-pkgz/auth/v2"
	"github.com/go-pkgz/auth/v2/avatar"
	"github.com/go-pkgz/auth/v2/provider"
	"github.com/go-pkgz/auth/v2/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"go.uber.org/zap"
)

const (
	Issuer         = "decor-serve"
	CookieName     = "JWT"
	TokenDuration  = time.Hour * 24
	CookieDuration = time.Hour * 24 * 7
)

// Users is what the auth service needs from the user store.
type Users interface {
	Authenticate(ctx context.Context, identity, password string) (*models.User, error)
	FindByIdentity(ctx context.Context, identity string) (*models.User, error)
}

type Options struct {
	Secret    string
	URL       string
	AvatarDir string
}

type Service struct {
	svc *auth.Service
}

// SetupAuthService builds the go-pkgz/auth service with a local username/password provider
// backed by users.
func SetupAuthService(opts Options, users Users) *Service {
	var avatarStore avatar.Store = avatar.NewNoOp()
	if opts.AvatarDir != "" {
		avatarStore = avatar.NewLocalFS(opts.AvatarDir)
	}

	authService := auth.NewService(auth.Opts{
		SecretReader: token.SecretFunc(func(aud string) (string, error) {
			return opts.Secret, nil
		}),
		TokenDuration:  TokenDuration,
		CookieDuration: CookieDuration,
		Issuer:         Issuer,
		URL:            opts.URL,
		AvatarStore:    avatarStore,
		JWTCookieName:  CookieName,
		// tokens minted by the local provider carry the database id, same as IssueToken
		ClaimsUpd: token.ClaimsUpdFunc(func(claims token.Claims) token.Claims {
			if claims.User == nil {
				return claims
			}
			if _, err := strconv.ParseUint(claims.User.ID, 10, 32); err == nil {
				return claims
			}
			user, err := users.FindByIdentity(context.Background(), claims.User.Name)
			if err != nil {
				logger.Log.Warn("Failed to resolve user for token", zap.String("identity", claims.User.Name), zap.Error(err))
				return claims
			}
			claims.User = tokenUser(user)
			return claims
		}),
	})

	authService.AddDirectProvider("local", provider.CredCheckerFunc(func(identity, password string) (bool, error) {
		_, err := users.Authenticate(context.Background(), identity, password)
		if errors.Is(err, service.ErrInvalidCredentials) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	}))

	return &Service{svc: authService}
}

func tokenUser(user *models.User) *token.User {
	return &token.User{
		ID:    strconv.FormatUint(uint64(user.ID), 10),
		Name:  user.FullName,
		Email: user.Email,
		Attributes: map[string]interface{}{
			"username": user.Username,
		},
	}
}

// IssueToken signs a JWT for user.
func (s *Service) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := token.Claims{
		User: tokenUser(user),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Audience:  []string{Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	}
	return s.svc.TokenService().Token(claims)
}

// Parse validates a token string and returns its claims.
func (s *Service) Parse(tokenStr string) (token.Claims, error) {
	return s.svc.TokenService().Parse(tokenStr)
}

// Handlers exposes the go-pkgz/auth login, logout and user endpoints of the local provider.
func (s *Service) Handlers() http.Handler {
	authHandler, _ := s.svc.Handlers()
	return authHandler
}
