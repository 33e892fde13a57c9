package middleware

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/rajivgeraev/autoswap-api/internal/identity"
	"github.com/rajivgeraev/autoswap-api/internal/models"
	"github.com/rajivgeraev/autoswap-api/internal/utils"
)

// AuthMiddleware создаёт middleware для проверки JWT
func AuthMiddleware(provider *identity.Provider, timeout time.Duration) fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		// Проверяем Bearer токен
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		ctx, cancel := utils.RequestContext(timeout)
		defer cancel()

		user, err := provider.Verify(ctx, parts[1])
		switch {
		case errors.Is(err, identity.ErrDisabled):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Your account has been suspended",
			})
		case errors.Is(err, identity.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		case err != nil:
			log.Printf("Ошибка проверки токена: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to verify token",
			})
		}

		// Добавляем пользователя в контекст
		c.Locals("userID", user.ID.String())
		c.Locals("user", user)

		return c.Next()
	}
}

// UserID возвращает ID пользователя, установленный AuthMiddleware
func UserID(c fiber.Ctx) (uuid.UUID, bool) {
	raw, ok := c.Locals("userID").(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CurrentUser возвращает пользователя, установленного AuthMiddleware
func CurrentUser(c fiber.Ctx) *models.User {
	user, _ := c.Locals("user").(*models.User)
	return user
}
