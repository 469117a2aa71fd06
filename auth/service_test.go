package auth

import (
	"context"
	"testing"

	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUsers struct {
	user *models.User
}

func (s stubUsers) Authenticate(ctx context.Context, identity, password string) (*models.User, error) {
	if identity == s.user.Username && password == "secret" {
		return s.user, nil
	}
	return nil, service.ErrInvalidCredentials
}

func (s stubUsers) FindByIdentity(ctx context.Context, identity string) (*models.User, error) {
	if identity == s.user.Username {
		return s.user, nil
	}
	return nil, service.ErrNotFound
}

func TestIssueAndParseToken(t *testing.T) {
	user := &models.User{Email: "jo@example.com", Username: "jo", FullName: "Jo"}
	user.ID = 42
	svc := SetupAuthService(Options{Secret: "test-secret", URL: "http://localhost:3000"}, stubUsers{user: user})

	tokenStr, err := svc.IssueToken(user)
	require.NoError(t, err)

	claims, err := svc.Parse(tokenStr)
	require.NoError(t, err)
	require.NotNil(t, claims.User)
	assert.Equal(t, "42", claims.User.ID)
	assert.Equal(t, "jo@example.com", claims.User.Email)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	user := &models.User{Username: "jo"}
	user.ID = 1
	issuer := SetupAuthService(Options{Secret: "one"}, stubUsers{user: user})
	verifier := SetupAuthService(Options{Secret: "two"}, stubUsers{user: user})

	tokenStr, err := issuer.IssueToken(user)
	require.NoError(t, err)

	_, err = verifier.Parse(tokenStr)
	assert.Error(t, err)

	_, err = verifier.Parse("garbage")
	assert.Error(t, err)
}
