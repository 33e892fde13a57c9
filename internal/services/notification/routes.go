package notification

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API уведомлений
func (h *Handler) SetupRoutes(app *fiber.App) {
	api := app.Group("/api/notifications", h.auth)

	api.Get("/counts", h.GetCounts)
	api.Post("/messages/:id/read", h.MarkMessagesRead)
	api.Post("/requests/received/view-all", h.MarkAllReceivedViewed)
	api.Post("/requests/sent/view-all", h.MarkAllSentViewed)
	api.Post("/requests/:id/viewed", h.MarkRequestViewed)
}
