package chat

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API переписок
func (h *Handler) SetupRoutes(app *fiber.App) {
	// Защищенные маршруты (требуют авторизации)
	api := app.Group("/api/conversations", h.auth)

	// Маршрут для получения всех переписок пользователя
	api.Get("/", h.GetConversations)

	// Маршрут для открытия переписки
	api.Post("/", h.CreateConversation)

	// Маршрут для получения сообщений переписки
	api.Get("/:id/messages", h.GetMessages)

	// Маршрут для отправки сообщения
	api.Post("/:id/messages", h.SendMessage)
}
