package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/middleware"
	"github.com/krishkalaria12/decor-serve/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.StatusOK, "User found", userResponse(user))
}

// DeleteMe removes the account with all of its images and stored files.
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	userID, err := middleware.CheckUserLoggedIn(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.users.DeleteAccount(c.UserContext(), userID); err != nil {
		return serviceError(c, err)
	}

	clearAuthCookie(c)
	return success(c, fiber.StatusOK, "User successfully deleted", nil)
}

func Health(c *fiber.Ctx) error {
	return success(c, fiber.StatusOK, "ok", nil)
}
