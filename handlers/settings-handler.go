package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/middleware"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
)

type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type updateSettingsRequest struct {
	ImageModel *string `json:"imageModel" validate:"omitempty,image_model"`
}

func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	settings, err := h.settings.Get(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Settings found", settings)
}

func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	var req updateSettingsRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	var model *models.ImageModel
	if req.ImageModel != nil {
		m := models.ImageModel(*req.ImageModel)
		model = &m
	}

	settings, err := h.settings.Update(c.UserContext(), userID, model)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "Settings updated", settings)
}
