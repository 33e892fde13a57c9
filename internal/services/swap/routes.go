package swap

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API запросов на обмен
func (h *Handler) SetupRoutes(app *fiber.App) {
	// Все маршруты требуют авторизации
	api := app.Group("/api/swap-requests", h.auth)

	api.Post("/", h.CreateRequest)
	api.Get("/received", h.GetReceived)
	api.Get("/sent", h.GetSent)
	api.Post("/:id/accept", h.AcceptRequest)
	api.Post("/:id/reject", h.RejectRequest)
	api.Delete("/:id", h.CancelRequest)
}
