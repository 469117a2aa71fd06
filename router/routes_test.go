package router

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/auth"
	"github.com/krishkalaria12/decor-serve/generate"
	handler "github.com/krishkalaria12/decor-serve/handlers"
	"github.com/krishkalaria12/decor-serve/metrics"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"github.com/krishkalaria12/decor-serve/testhelpers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RoutesSuite struct {
	suite.Suite
	app    *fiber.App
	users  *testhelpers.UserRepo
	images *testhelpers.ImageRepo
	store  *testhelpers.Store
	queue  *testhelpers.Queue
	svc    *service.ImageService
}

func TestRoutesSuite(t *testing.T) {
	suite.Run(t, new(RoutesSuite))
}

func (s *RoutesSuite) SetupTest() {
	s.users = testhelpers.NewUserRepo()
	s.images = testhelpers.NewImageRepo()
	s.store = testhelpers.NewStore()
	s.queue = &testhelpers.Queue{}
	settingsRepo := testhelpers.NewSettingsRepo()

	provider := &testhelpers.Provider{ModelName: models.DefaultImageModel, Output: testhelpers.PNG(10, 10)}
	s.svc = service.NewImageService(service.ImageServiceConfig{
		Images:    s.images,
		Settings:  settingsRepo,
		Store:     s.store,
		Providers: generate.NewRegistry(provider),
		Queue:     s.queue,
	})
	userSvc := service.NewUserService(s.users, s.svc, settingsRepo)
	authSvc := auth.SetupAuthService(auth.Options{Secret: "routes-test", URL: "http://localhost:3000"}, userSvc)

	s.app = fiber.New()
	SetupRoutes(s.app, Deps{
		Images:        handler.NewImageHandler(s.svc),
		Settings:      handler.NewSettingsHandler(service.NewSettingsService(settingsRepo)),
		Auth:          handler.NewAuthHandler(userSvc, authSvc, false),
		Users:         handler.NewUserHandler(userSvc),
		Tokens:        authSvc,
		Accounts:      userSvc,
		Metrics:       metrics.NewMetrics(prometheus.NewRegistry()),
		AuthProviders: authSvc.Handlers(),
	})
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *RoutesSuite) call(method, path, token string, body interface{}) (int, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func (s *RoutesSuite) login(identity, password string) string {
	code, env := s.call("POST", "/api/auth/login", "", map[string]string{"identity": identity, "password": password})
	s.Require().Equal(http.StatusOK, code)
	var user handler.UserResponse
	s.Require().NoError(json.Unmarshal(env.Data, &user))
	s.Require().NotEmpty(user.Token)
	return user.Token
}

func (s *RoutesSuite) register(email, username string) {
	code, _ := s.call("POST", "/api/auth/register", "", map[string]string{
		"email":    email,
		"username": username,
		"name":     "Test User",
		"password": "password123",
	})
	s.Require().Equal(http.StatusCreated, code)
}

func (s *RoutesSuite) TestHealthAndMetrics() {
	code, env := s.call("GET", "/health", "", nil)
	s.Equal(http.StatusOK, code)
	s.Equal("success", env.Status)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RoutesSuite) TestRegisterValidation() {
	code, env := s.call("POST", "/api/auth/register", "", map[string]string{"email": "nope", "username": "x", "password": "short"})
	s.Equal(http.StatusBadRequest, code)
	s.Contains(env.Message, "Validation failed")
}

func (s *RoutesSuite) TestRegisterLoginMe() {
	s.register("jo@example.com", "jo123")

	code, _ := s.call("POST", "/api/auth/register", "", map[string]string{
		"email": "jo@example.com", "username": "other", "password": "password123",
	})
	s.Equal(http.StatusConflict, code)

	code, _ = s.call("POST", "/api/auth/login", "", map[string]string{"identity": "jo123", "password": "wrong-password"})
	s.Equal(http.StatusUnauthorized, code)

	token := s.login("jo@example.com", "password123")

	code, env := s.call("GET", "/api/me", token, nil)
	s.Require().Equal(http.StatusOK, code)
	var me handler.UserResponse
	s.Require().NoError(json.Unmarshal(env.Data, &me))
	s.Equal("jo123", me.Username)

	code, _ = s.call("GET", "/api/me", "", nil)
	s.Equal(http.StatusUnauthorized, code)

	code, _ = s.call("GET", "/api/me", "not-a-token", nil)
	s.Equal(http.StatusUnauthorized, code)
}

func (s *RoutesSuite) TestImageLifecycle() {
	s.register("jo@example.com", "jo123")
	token := s.login("jo123", "password123")

	code, env := s.call("POST", "/api/images/upload-url", token, nil)
	s.Require().Equal(http.StatusCreated, code)
	var ticket service.UploadTicket
	s.Require().NoError(json.Unmarshal(env.Data, &ticket))

	data := testhelpers.PNG(6, 6)
	s.Require().NoError(s.store.Put(s.T().Context(), ticket.StorageID, bytes.NewReader(data), int64(len(data)), "image/png"))

	base := "/api/images/" + ticket.ImageID.String()
	code, _ = s.call("POST", base+"/uploaded", token, map[string]string{"storageId": ticket.StorageID})
	s.Require().Equal(http.StatusOK, code)

	code, _ = s.call("POST", base+"/generate", token, map[string]string{"prompt": "mid-century modern"})
	s.Require().Equal(http.StatusAccepted, code)

	s.svc.ProcessGeneration(s.T().Context(), s.queue.Last())

	code, env = s.call("GET", base, token, nil)
	s.Require().Equal(http.StatusOK, code)
	var img struct {
		Status models.ImageStatus `json:"status"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &img))
	s.Equal(models.StatusGenerated, img.Status.Kind)
	s.Require().NotNil(img.Status.DecoratedImage)

	code, _ = s.call("POST", base+"/generate", token, map[string]string{"base": "decorated"})
	s.Equal(http.StatusAccepted, code)

	code, _ = s.call("DELETE", "/api/me", token, nil)
	s.Require().Equal(http.StatusOK, code)
	s.Equal(0, s.images.Len())

	// the queued regeneration finds the record gone and releases everything it holds
	s.svc.ProcessGeneration(s.T().Context(), s.queue.Last())
	s.Empty(s.store.Keys())

	// the token is still signed and unexpired but its account is gone
	code, _ = s.call("GET", "/api/me", token, nil)
	s.Equal(http.StatusUnauthorized, code)
	code, _ = s.call("POST", "/api/images/upload-url", token, nil)
	s.Equal(http.StatusUnauthorized, code)
	s.Equal(0, s.images.Len())
}

func TestSetupRoutes_WithoutOptionalDeps(t *testing.T) {
	app := fiber.New()
	SetupRoutes(app, Deps{
		Images:   &handler.ImageHandler{},
		Settings: &handler.SettingsHandler{},
		Auth:     &handler.AuthHandler{},
		Users:    &handler.UserHandler{},
		Tokens:   auth.SetupAuthService(auth.Options{Secret: "x"}, nil),
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
