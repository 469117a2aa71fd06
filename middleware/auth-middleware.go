package middleware

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-pkgz/auth/v2/token"
	"github.com/gofiber/fiber/v2"
	"github.com/krishkalaria12/decor-serve/logger"
	"github.com/krishkalaria12/decor-serve/models"
	"github.com/krishkalaria12/decor-serve/service"
	"go.uber.org/zap"
)

const (
	userLocal   = "user"
	claimsLocal = "claims"
	cookieName  = "JWT"
)

var ErrNotLoggedIn = errors.New("user is not logged in")

type TokenParser interface {
	Parse(tokenStr string) (token.Claims, error)
}

func AuthMiddleware(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		var tokenStr string

		if strings.HasPrefix(authHeader, "Bearer ") && len(authHeader) > 7 {
			tokenStr = authHeader[7:]
		} else {
			tokenStr = c.Cookies(cookieName)
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "You are not authorized!",
				"data":    nil,
			})
		}

		claims, err := parser.Parse(tokenStr)
		if err != nil || claims.User == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Invalid token",
				"data":    nil,
			})
		}

		c.Locals(userLocal, *claims.User)
		c.Locals(claimsLocal, claims)

		return c.Next()
	}
}

type UserLookup interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// RequireAccount rejects tokens whose user no longer exists. Tokens outlive a deleted account.
func RequireAccount(users UserLookup) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := CheckUserLoggedIn(c)
		if err == nil {
			_, err = users.Get(c.UserContext(), userID)
		}
		if err == nil {
			return c.Next()
		}

		if errors.Is(err, ErrNotLoggedIn) || errors.Is(err, service.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"status":  "error",
				"message": "Account no longer exists",
				"data":    nil,
			})
		}

		logger.Log.Error("Failed to load user", zap.Uint("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": "Something went wrong",
			"data":    nil,
		})
	}
}

// CheckUserLoggedIn returns the id of the authenticated user.
func CheckUserLoggedIn(c *fiber.Ctx) (uint, error) {
	user, ok := c.Locals(userLocal).(token.User)
	if !ok {
		return 0, ErrNotLoggedIn
	}

	userID, err := strconv.ParseUint(user.ID, 10, 32)
	if err != nil {
		logger.Log.Warn("Failed to parse user ID", zap.String("user_id", user.ID))
		return 0, ErrNotLoggedIn
	}

	return uint(userID), nil
}

// SetUser puts an authenticated user into the request locals.
func SetUser(c *fiber.Ctx, userID uint) {
	c.Locals(userLocal, token.User{ID: strconv.FormatUint(uint64(userID), 10)})
}
