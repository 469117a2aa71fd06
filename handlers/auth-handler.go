package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/auth"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
)

type AuthHandler struct {
	users        *service.UserService
	auth         *auth.Service
	secureCookie bool
}

func NewAuthHandler(users *service.UserService, authService *auth.Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{users: users, auth: authService, secureCookie: secureCookie}
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"name"`
	Token    string `json:"token,omitempty"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		FullName: u.FullName,
	}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32,alphanum"`
	FullName string `json:"name" validate:"max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Identity string `json:"identity" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	user, err := h.users.Register(c.UserContext(), service.RegisterInput{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return success(c, fiber.StatusCreated, "User created successfully", userResponse(user))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := parseBody(c, &req); !ok {
		return err
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Identity, req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	tokenStr, err := h.auth.IssueToken(user)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to generate token")
	}

	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    tokenStr,
		Expires:  time.Now().Add(auth.CookieDuration),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: "Lax",
	})

	resp := userResponse(user)
	resp.Token = tokenStr
	return success(c, fiber.StatusOK, "Login successful", resp)
}

func clearAuthCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	clearAuthCookie(c)
	return success(c, fiber.StatusOK, "Logout successful", nil)
}
