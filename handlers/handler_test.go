package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/generate"
	"github.com/krishkalaria12/decor-serve/middleware"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"github.com/krishkalaria12/decor-serve/testhelpers"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	app      *fiber.App
	images   *testhelpers.ImageRepo
	store    *testhelpers.Store
	queue    *testhelpers.Queue
	settings *testhelpers.SettingsRepo
	imageSvc *service.ImageService
}

// fakeAuth trusts the X-User header so tests can act as any user.
func fakeAuth(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Get("X-User"), 10, 32)
	if err == nil {
		middleware.SetUser(c, uint(id))
	}
	return c.Next()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		images:   testhelpers.NewImageRepo(),
		store:    testhelpers.NewStore(),
		queue:    &testhelpers.Queue{},
		settings: testhelpers.NewSettingsRepo(),
	}
	provider := &testhelpers.Provider{ModelName: models.DefaultImageModel, Output: testhelpers.PNG(4, 4)}
	f.imageSvc = service.NewImageService(service.ImageServiceConfig{
		Images:    f.images,
		Settings:  f.settings,
		Store:     f.store,
		Providers: generate.NewRegistry(provider),
		Queue:     f.queue,
	})

	images := NewImageHandler(f.imageSvc)
	settings := NewSettingsHandler(service.NewSettingsService(f.settings))

	f.app = fiber.New()
	api := f.app.Group("/api", fakeAuth)
	api.Get("/settings", settings.Get)
	api.Put("/settings", settings.Update)
	api.Post("/images/upload-url", images.GenerateUploadURL)
	api.Get("/images", images.List)
	api.Get("/images/:id", images.Get)
	api.Delete("/images/:id", images.Delete)
	api.Post("/images/:id/uploaded", images.MarkUploaded)
	api.Post("/images/:id/file", images.UploadFile)
	api.Post("/images/:id/generate", images.Generate)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, user uint, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != 0 {
		req.Header.Set("X-User", strconv.FormatUint(uint64(user), 10))
	}
	return f.send(t, req)
}

func (f *fixture) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func multipartImage(t *testing.T, path, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="document"; filename="room.png"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
