package router

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	handler "github.com/krishkalaria12/decor-serve/handlers"
	"github.com/krishkalaria12/decor-serve/metrics"
	"github.com/krishkalaria12/decor-serve/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Images   *handler.ImageHandler
	Settings *handler.SettingsHandler
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Tokens   middleware.TokenParser

	// Optional.
	Accounts      middleware.UserLookup
	Metrics       *metrics.Metrics
	AuthProviders http.Handler
}

func SetupRoutes(app *fiber.App, d Deps) {
	if d.Metrics != nil {
		app.Use(d.Metrics.Middleware())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}
	app.Get("/health", handler.Health)

	// go-pkgz/auth provider endpoints, e.g. /auth/local/login
	if d.AuthProviders != nil {
		app.All("/auth/*", adaptor.HTTPHandler(d.AuthProviders))
	}

	api := app.Group("/api", logger.New())
	requireAuth := []fiber.Handler{middleware.AuthMiddleware(d.Tokens)}
	if d.Accounts != nil {
		requireAuth = append(requireAuth, middleware.RequireAccount(d.Accounts))
	}

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", d.Auth.Register)
	auth.Post("/login", d.Auth.Login)
	auth.Post("/logout", d.Auth.Logout)

	// User
	me := api.Group("/me", requireAuth...)
	me.Get("/", d.Users.Me)
	me.Delete("/", d.Users.DeleteMe)

	// Settings
	settings := api.Group("/settings", requireAuth...)
	settings.Get("/", d.Settings.Get)
	settings.Put("/", d.Settings.Update)

	// Images
	images := api.Group("/images", requireAuth...)
	images.Post("/upload-url", d.Images.GenerateUploadURL)
	images.Get("/", d.Images.List)
	images.Get("/:id", d.Images.Get)
	images.Delete("/:id", d.Images.Delete)
	images.Post("/:id/uploaded", d.Images.MarkUploaded)
	images.Post("/:id/file", d.Images.UploadFile)
	images.Post("/:id/generate", d.Images.Generate)
}
