package report

import (
	"github.com/gofiber/fiber/v3"
)

// SetupRoutes настраивает маршруты для API жалоб
func (h *Handler) SetupRoutes(app *fiber.App) {
	app.Post("/api/reports", h.SubmitReport, h.auth)
}
