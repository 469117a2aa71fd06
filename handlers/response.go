package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"go.uber.org/zap"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("image_model", func(fl validator.FieldLevel) bool {
		return models.ImageModel(fl.Field().String()).Valid()
	})
	return v
}

func success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"message": message,
		"data":    nil,
	})
}

// parseBody decodes and validates the request body into req. When it reports false the error
// response has already been written.
func parseBody(c *fiber.Ctx, req interface{}) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return false, fail(c, fiber.StatusBadRequest, validationMessage(err))
	}
	return true, nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return "Validation failed: " + strings.Join(msgs, "; ")
}

func unauthorized(c *fiber.Ctx) error {
	return fail(c, fiber.StatusUnauthorized, "Authentication required")
}

// serviceError maps service errors onto HTTP statuses.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid identity or password")
	case errors.Is(err, service.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Not found")
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrConflict):
		return fail(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		return fail(c, fiber.StatusTooManyRequests, "Too many generation requests, try again later")
	case errors.Is(err, service.ErrUnavailable):
		return fail(c, fiber.StatusServiceUnavailable, err.Error())
	}

	logger.Log.Error("Request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return fail(c, fiber.StatusInternalServerError, "Internal server error")
}
